package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

// ListChats returns the sidebar summaries for a user, most recently updated
// first.
func (a *App) ListChats(userID string) ([]domain.ChatSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	return a.store.ListChatsByUser(userID)
}

// GetChat returns one chat's full transcript. A chat owned by a different
// user is reported as not found.
func (a *App) GetChat(userID, chatID string) (domain.Chat, error) {
	if userID == "" || chatID == "" {
		return domain.Chat{}, fmt.Errorf("%w: userId and chatId are required", ErrInvalidRequest)
	}
	chat, ok, err := a.store.GetChat(chatID)
	if err != nil {
		return domain.Chat{}, err
	}
	if !ok || chat.UserID != userID {
		return domain.Chat{}, ErrNotFound
	}
	return chat, nil
}

func (a *App) RenameChat(chatID, title string) error {
	if chatID == "" || strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: chatId and title are required", ErrInvalidRequest)
	}
	return a.store.RenameChat(chatID, title)
}

func (a *App) DeleteChat(chatID string) error {
	if chatID == "" {
		return fmt.Errorf("%w: chatId is required", ErrInvalidRequest)
	}
	return a.store.DeleteChat(chatID)
}

// CreateMemory stores a long-term fact for a user and returns the created
// row.
func (a *App) CreateMemory(userID, content string) (domain.Memory, error) {
	if userID == "" || strings.TrimSpace(content) == "" {
		return domain.Memory{}, fmt.Errorf("%w: userId and content are required", ErrInvalidRequest)
	}
	mem := domain.Memory{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateMemory(mem); err != nil {
		return domain.Memory{}, err
	}
	return mem, nil
}

// ListMemories returns every memory row for a user, newest first.
func (a *App) ListMemories(userID string) ([]domain.Memory, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	return a.store.ListMemoriesByUser(userID, 0)
}

// CreateCustomModel validates and stores a preset. Provider defaults to
// OpenAI when unset.
func (a *App) CreateCustomModel(m domain.CustomModel) (domain.CustomModel, error) {
	if m.UserID == "" || strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Instructions) == "" {
		return domain.CustomModel{}, fmt.Errorf("%w: userId, name and instructions are required", ErrInvalidRequest)
	}
	if m.Provider == "" {
		m.Provider = domain.ProviderOpenAI
	}
	now := time.Now().UTC()
	m.ID = uuid.NewString()
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := a.store.CreateCustomModel(m); err != nil {
		return domain.CustomModel{}, err
	}
	return m, nil
}

func (a *App) ListCustomModels(userID string) ([]domain.CustomModel, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	return a.store.ListCustomModelsByUser(userID)
}

// UpdateCustomModel merges the non-empty fields of patch over the stored
// preset. Ownership is checked before anything is written; a mismatch reads
// as not found.
func (a *App) UpdateCustomModel(userID, id string, patch domain.CustomModel) (domain.CustomModel, error) {
	if userID == "" || id == "" {
		return domain.CustomModel{}, fmt.Errorf("%w: userId and id are required", ErrInvalidRequest)
	}
	existing, ok, err := a.store.GetCustomModel(id)
	if err != nil {
		return domain.CustomModel{}, err
	}
	if !ok || existing.UserID != userID {
		return domain.CustomModel{}, ErrNotFound
	}
	if patch.Name != "" {
		existing.Name = patch.Name
	}
	if patch.Description != "" {
		existing.Description = patch.Description
	}
	if patch.Instructions != "" {
		existing.Instructions = patch.Instructions
	}
	if patch.BaseModelID != "" {
		existing.BaseModelID = patch.BaseModelID
	}
	if patch.BaseModelName != "" {
		existing.BaseModelName = patch.BaseModelName
	}
	if patch.Provider != "" {
		existing.Provider = patch.Provider
	}
	existing.UpdatedAt = time.Now().UTC()
	if err := a.store.UpdateCustomModel(existing); err != nil {
		return domain.CustomModel{}, err
	}
	return existing, nil
}

// DeleteCustomModel removes a preset after verifying ownership.
func (a *App) DeleteCustomModel(userID, id string) error {
	if userID == "" || id == "" {
		return fmt.Errorf("%w: userId and id are required", ErrInvalidRequest)
	}
	existing, ok, err := a.store.GetCustomModel(id)
	if err != nil {
		return err
	}
	if !ok || existing.UserID != userID {
		return ErrNotFound
	}
	return a.store.DeleteCustomModel(id)
}

// KnownModels is the catalog the frontend's model picker renders.
func KnownModels() []domain.ModelSpec {
	return []domain.ModelSpec{
		{ID: "gemini-2.0-flash", Provider: domain.ProviderGemini},
		{ID: "gemini-2.5-pro", Provider: domain.ProviderGemini},
		{ID: "gpt-4o", Provider: domain.ProviderOpenAI},
		{ID: "gpt-4o-mini", Provider: domain.ProviderOpenAI},
	}
}
