package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &ChatModel{}, &MemoryModel{}, &CustomModelModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser inserts the user if absent; an existing row is left untouched.
func (s *GormStore) SaveUser(u domain.User) error {
	model := UserModel{ID: u.ID, CreatedAt: u.CreatedAt}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&model).Error
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return domain.User{ID: model.ID, CreatedAt: model.CreatedAt}, true, nil
}

// CreateChat stores a new chat with its full transcript.
func (s *GormStore) CreateChat(c domain.Chat) error {
	model, err := chatToModel(c)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// GetChat retrieves a chat including its transcript.
func (s *GormStore) GetChat(id string) (domain.Chat, bool, error) {
	var model ChatModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Chat{}, false, nil
		}
		return domain.Chat{}, false, err
	}
	chat, err := chatFromModel(model)
	if err != nil {
		return domain.Chat{}, false, err
	}
	return chat, true, nil
}

// ListChatsByUser returns chat summaries ordered by recency.
func (s *GormStore) ListChatsByUser(userID string) ([]domain.ChatSummary, error) {
	var models []ChatModel
	if err := s.db.Select("id", "title", "created_at", "updated_at").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChatSummary, 0, len(models))
	for _, m := range models {
		res = append(res, domain.ChatSummary{
			ID:        m.ID,
			Title:     m.Title,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}
	return res, nil
}

// ReplaceChatMessages overwrites the chat's transcript wholesale.
func (s *GormStore) ReplaceChatMessages(id string, messages []domain.Message) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return s.db.Model(&ChatModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"messages":   datatypes.JSON(raw),
			"updated_at": time.Now().UTC(),
		}).Error
}

// RenameChat updates the chat title.
func (s *GormStore) RenameChat(id, title string) error {
	return s.db.Model(&ChatModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":      title,
			"updated_at": time.Now().UTC(),
		}).Error
}

// DeleteChat removes a chat immediately and unconditionally.
func (s *GormStore) DeleteChat(id string) error {
	return s.db.Delete(&ChatModel{}, "id = ?", id).Error
}

// CreateMemory records a long-term memory row.
func (s *GormStore) CreateMemory(m domain.Memory) error {
	model := MemoryModel{
		ID:        m.ID,
		UserID:    m.UserID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	return s.db.Create(&model).Error
}

// ListMemoriesByUser returns memories newest first, bounded by limit when
// positive.
func (s *GormStore) ListMemoriesByUser(userID string, limit int) ([]domain.Memory, error) {
	tx := s.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var models []MemoryModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Memory, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Memory{
			ID:        m.ID,
			UserID:    m.UserID,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

// CreateCustomModel stores a custom model preset.
func (s *GormStore) CreateCustomModel(m domain.CustomModel) error {
	model := customModelToModel(m)
	return s.db.Create(&model).Error
}

// GetCustomModel retrieves one preset.
func (s *GormStore) GetCustomModel(id string) (domain.CustomModel, bool, error) {
	var model CustomModelModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.CustomModel{}, false, nil
		}
		return domain.CustomModel{}, false, err
	}
	return customModelFromModel(model), true, nil
}

// ListCustomModelsByUser returns presets newest first.
func (s *GormStore) ListCustomModelsByUser(userID string) ([]domain.CustomModel, error) {
	var models []CustomModelModel
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.CustomModel, 0, len(models))
	for _, m := range models {
		res = append(res, customModelFromModel(m))
	}
	return res, nil
}

// UpdateCustomModel overwrites a preset's mutable fields.
func (s *GormStore) UpdateCustomModel(m domain.CustomModel) error {
	return s.db.Model(&CustomModelModel{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{
			"name":            m.Name,
			"description":     m.Description,
			"instructions":    m.Instructions,
			"base_model_id":   m.BaseModelID,
			"base_model_name": m.BaseModelName,
			"provider":        string(m.Provider),
			"updated_at":      time.Now().UTC(),
		}).Error
}

// DeleteCustomModel removes a preset.
func (s *GormStore) DeleteCustomModel(id string) error {
	return s.db.Delete(&CustomModelModel{}, "id = ?", id).Error
}

func chatToModel(c domain.Chat) (ChatModel, error) {
	raw, err := json.Marshal(c.Messages)
	if err != nil {
		return ChatModel{}, fmt.Errorf("encode transcript: %w", err)
	}
	return ChatModel{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		Messages:  datatypes.JSON(raw),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

func chatFromModel(m ChatModel) (domain.Chat, error) {
	var messages []domain.Message
	if len(m.Messages) > 0 {
		if err := json.Unmarshal(m.Messages, &messages); err != nil {
			return domain.Chat{}, fmt.Errorf("decode transcript: %w", err)
		}
	}
	return domain.Chat{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Messages:  messages,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

func customModelToModel(m domain.CustomModel) CustomModelModel {
	return CustomModelModel{
		ID:            m.ID,
		UserID:        m.UserID,
		Name:          m.Name,
		Description:   m.Description,
		Instructions:  m.Instructions,
		BaseModelID:   m.BaseModelID,
		BaseModelName: m.BaseModelName,
		Provider:      string(m.Provider),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func customModelFromModel(m CustomModelModel) domain.CustomModel {
	return domain.CustomModel{
		ID:            m.ID,
		UserID:        m.UserID,
		Name:          m.Name,
		Description:   m.Description,
		Instructions:  m.Instructions,
		BaseModelID:   m.BaseModelID,
		BaseModelName: m.BaseModelName,
		Provider:      domain.Provider(m.Provider),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
