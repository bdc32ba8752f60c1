package store

import (
	"sort"
	"sync"
	"time"

	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

// MemoryStore keeps everything in-process. It mirrors GormStore behavior for
// tests and local development without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	chats    map[string]domain.Chat
	memories []domain.Memory
	presets  map[string]domain.CustomModel
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		chats:   make(map[string]domain.Chat),
		presets: make(map[string]domain.CustomModel),
	}
}

// SaveUser inserts the user if absent; an existing row is left untouched.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.ID]; !exists {
		m.users[u.ID] = u
	}
	return nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// CreateChat stores a new chat.
func (m *MemoryStore) CreateChat(c domain.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[c.ID] = cloneChat(c)
	return nil
}

// GetChat retrieves a chat including its transcript.
func (m *MemoryStore) GetChat(id string) (domain.Chat, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chats[id]
	if !ok {
		return domain.Chat{}, false, nil
	}
	return cloneChat(c), true, nil
}

// ListChatsByUser returns chat summaries ordered by updated_at descending.
func (m *MemoryStore) ListChatsByUser(userID string) ([]domain.ChatSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ChatSummary, 0)
	for _, c := range m.chats {
		if c.UserID != userID {
			continue
		}
		res = append(res, domain.ChatSummary{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UpdatedAt.After(res[j].UpdatedAt) })
	return res, nil
}

// ReplaceChatMessages overwrites the transcript wholesale.
func (m *MemoryStore) ReplaceChatMessages(id string, messages []domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return nil
	}
	c.Messages = append([]domain.Message(nil), messages...)
	c.UpdatedAt = time.Now().UTC()
	m.chats[id] = c
	return nil
}

// RenameChat updates the chat title.
func (m *MemoryStore) RenameChat(id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return nil
	}
	c.Title = title
	c.UpdatedAt = time.Now().UTC()
	m.chats[id] = c
	return nil
}

// DeleteChat removes a chat.
func (m *MemoryStore) DeleteChat(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chats, id)
	return nil
}

// CreateMemory records a long-term memory row.
func (m *MemoryStore) CreateMemory(mem domain.Memory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memories = append(m.memories, mem)
	return nil
}

// ListMemoriesByUser returns memories newest first, bounded by limit when
// positive.
func (m *MemoryStore) ListMemoriesByUser(userID string, limit int) ([]domain.Memory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Memory, 0)
	for _, mem := range m.memories {
		if mem.UserID == userID {
			res = append(res, mem)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// CreateCustomModel stores a custom model preset.
func (m *MemoryStore) CreateCustomModel(cm domain.CustomModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets[cm.ID] = cm
	return nil
}

// GetCustomModel retrieves one preset.
func (m *MemoryStore) GetCustomModel(id string) (domain.CustomModel, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cm, ok := m.presets[id]
	return cm, ok, nil
}

// ListCustomModelsByUser returns presets newest first.
func (m *MemoryStore) ListCustomModelsByUser(userID string) ([]domain.CustomModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.CustomModel, 0)
	for _, cm := range m.presets {
		if cm.UserID == userID {
			res = append(res, cm)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// UpdateCustomModel overwrites a preset's mutable fields.
func (m *MemoryStore) UpdateCustomModel(cm domain.CustomModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.presets[cm.ID]
	if !ok {
		return nil
	}
	cm.CreatedAt = existing.CreatedAt
	cm.UpdatedAt = time.Now().UTC()
	m.presets[cm.ID] = cm
	return nil
}

// DeleteCustomModel removes a preset.
func (m *MemoryStore) DeleteCustomModel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presets, id)
	return nil
}

func cloneChat(c domain.Chat) domain.Chat {
	c.Messages = append([]domain.Message(nil), c.Messages...)
	return c
}
