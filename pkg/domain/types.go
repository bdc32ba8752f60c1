package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Attachment is a file sent alongside a message, carried inline as base64.
// It is forwarded to the provider and never persisted.
type Attachment struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type Message struct {
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// ModelSpec selects the upstream model for a chat turn. Unknown or empty
// providers fall back to OpenAI.
type ModelSpec struct {
	ID       string   `json:"id"`
	Provider Provider `json:"provider"`
}

type User struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Chat holds the full transcript. The message list is replaced wholesale on
// every turn rather than appended row by row.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatSummary is the sidebar listing shape (no transcript).
type ChatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Memory is a long-term user fact captured by the keyword heuristic.
type Memory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type CustomModel struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Instructions  string    `json:"instructions"`
	BaseModelID   string    `json:"baseModelId"`
	BaseModelName string    `json:"baseModelName"`
	Provider      Provider  `json:"provider"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ContextEntry is a transient role/content pair kept in the short-term
// context cache.
type ContextEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
