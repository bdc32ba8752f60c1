package store

import (
	"context"

	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

// Store defines persistence operations for users, chats, memories, and
// custom model presets.
type Store interface {
	// users
	SaveUser(u domain.User) error
	GetUserByID(id string) (domain.User, bool, error)

	// chats
	CreateChat(c domain.Chat) error
	GetChat(id string) (domain.Chat, bool, error)
	ListChatsByUser(userID string) ([]domain.ChatSummary, error)
	ReplaceChatMessages(id string, messages []domain.Message) error
	RenameChat(id, title string) error
	DeleteChat(id string) error

	// memories
	CreateMemory(m domain.Memory) error
	ListMemoriesByUser(userID string, limit int) ([]domain.Memory, error)

	// custom models
	CreateCustomModel(m domain.CustomModel) error
	GetCustomModel(id string) (domain.CustomModel, bool, error)
	ListCustomModelsByUser(userID string) ([]domain.CustomModel, error)
	UpdateCustomModel(m domain.CustomModel) error
	DeleteCustomModel(id string) error
}

// ContextStore keeps the bounded short-term conversation cache per user.
type ContextStore interface {
	Append(ctx context.Context, userID string, entry domain.ContextEntry) error
	Recent(ctx context.Context, userID string) ([]domain.ContextEntry, error)
}
