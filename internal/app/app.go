// Package app holds the application logic behind the HTTP surface: the chat
// orchestration flow and the CRUD operations for chats, memories, and custom
// model presets.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/C4rlos-asx/IA-con-recuerdos/internal/effects"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/ratelimit"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/store"
	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/ai"
	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

const (
	systemPrompt = "Eres un asistente conversacional útil. Responde siempre en el idioma del usuario."
	memoryPrompt = "Esto es lo que sabes sobre el usuario. Usa estos datos para personalizar tus respuestas:"

	titleMaxRunes = 50
)

// Limiter gates chat requests per identity.
type Limiter interface {
	Check(ctx context.Context, identity string) ratelimit.Result
}

// Config wires an App's collaborators. OpenAI and Gemini may be nil when the
// matching credential is absent; dispatching to a nil generator is a
// configuration error at request time.
type Config struct {
	Store       store.Store
	Contexts    store.ContextStore
	Limiter     Limiter
	OpenAI      ai.Generator
	Gemini      ai.Generator
	Runner      *effects.Runner
	Logger      *slog.Logger
	MemoryLimit int
}

type App struct {
	store       store.Store
	contexts    store.ContextStore
	limiter     Limiter
	openai      ai.Generator
	gemini      ai.Generator
	runner      *effects.Runner
	logger      *slog.Logger
	memoryLimit int
}

func New(cfg Config) *App {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = 5
	}
	return &App{
		store:       cfg.Store,
		contexts:    cfg.Contexts,
		limiter:     cfg.Limiter,
		openai:      cfg.OpenAI,
		gemini:      cfg.Gemini,
		runner:      cfg.Runner,
		logger:      cfg.Logger,
		memoryLimit: cfg.MemoryLimit,
	}
}

// SendMessageInput is one chat turn as submitted by the client. Messages is
// the client's view of the transcript so far plus the new user message.
type SendMessageInput struct {
	Messages []domain.Message
	UserID   string
	Model    domain.ModelSpec
	ChatID   string
	File     *domain.Attachment
}

type SendMessageResult struct {
	Role      domain.Role
	Content   string
	ChatID    string
	Remaining int
}

// SendMessage runs one chat turn: validate, rate-limit, assemble the upstream
// prompt, dispatch to the selected provider, then fan out persistence as
// detached best-effort tasks. Only validation, limiting, and dispatch can fail
// the request; persistence failures are logged and dropped.
func (a *App) SendMessage(ctx context.Context, input SendMessageInput) (SendMessageResult, error) {
	if len(input.Messages) == 0 {
		return SendMessageResult{}, fmt.Errorf("%w: messages must be a non-empty list", ErrInvalidRequest)
	}
	last := input.Messages[len(input.Messages)-1]
	if strings.TrimSpace(last.Content) == "" {
		return SendMessageResult{}, fmt.Errorf("%w: last message has no content", ErrInvalidRequest)
	}

	limit := a.limiter.Check(ctx, input.UserID)
	if !limit.Allowed {
		return SendMessageResult{}, ErrRateLimited
	}

	caller := input.Messages
	if input.File != nil {
		caller = append([]domain.Message(nil), input.Messages...)
		withFile := caller[len(caller)-1]
		withFile.Attachment = input.File
		caller[len(caller)-1] = withFile
	}

	outbound := a.assembleContext(ctx, input.UserID, caller)

	gen, providerName := a.selectGenerator(input.Model.Provider)
	if gen == nil {
		return SendMessageResult{}, fmt.Errorf("%w: %s", ErrProviderNotConfigured, providerName)
	}
	reply, err := gen.Generate(ctx, outbound, input.Model.ID)
	if err != nil {
		return SendMessageResult{}, err
	}

	chatID := input.ChatID
	if input.UserID != "" {
		if chatID == "" {
			chatID = uuid.NewString()
		}
		a.persistTurn(input.UserID, chatID, input.ChatID == "", input.Messages, last.Content, reply)
	}

	return SendMessageResult{
		Role:      domain.RoleAssistant,
		Content:   reply,
		ChatID:    chatID,
		Remaining: limit.Remaining,
	}, nil
}

// assembleContext builds the outbound message list: one system preamble
// (memories included when available), restored short-term history when the
// client sent a single message, then the client's messages. Retrieval
// failures degrade to empty.
func (a *App) assembleContext(ctx context.Context, userID string, caller []domain.Message) []domain.Message {
	preamble := systemPrompt
	if userID != "" {
		memories, err := a.store.ListMemoriesByUser(userID, a.memoryLimit)
		switch {
		case err != nil:
			a.logger.Warn("memory retrieval failed", "userId", userID, "error", err)
		case len(memories) > 0:
			var b strings.Builder
			b.WriteString(systemPrompt)
			b.WriteString("\n\n")
			b.WriteString(memoryPrompt)
			for _, m := range memories {
				b.WriteString("\n- ")
				b.WriteString(m.Content)
			}
			preamble = b.String()
		}
	}

	out := make([]domain.Message, 0, len(caller)+1)
	out = append(out, domain.Message{Role: domain.RoleSystem, Content: preamble})

	if userID != "" && len(caller) == 1 {
		entries, err := a.contexts.Recent(ctx, userID)
		if err != nil {
			a.logger.Warn("context restore failed", "userId", userID, "error", err)
		}
		for _, e := range entries {
			out = append(out, domain.Message{Role: e.Role, Content: e.Content})
		}
	}

	return append(out, caller...)
}

func (a *App) selectGenerator(p domain.Provider) (ai.Generator, string) {
	if p == domain.ProviderGemini {
		return a.gemini, string(domain.ProviderGemini)
	}
	return a.openai, string(domain.ProviderOpenAI)
}

// persistTurn fans out the side effects of a successful turn. Each task is
// independent; none can fail the response, which may already be on the wire.
func (a *App) persistTurn(userID, chatID string, isNew bool, transcript []domain.Message, userText, reply string) {
	now := time.Now().UTC()
	stored := storedTranscript(transcript, reply)

	a.runner.Submit("save user", func(ctx context.Context) error {
		return a.store.SaveUser(domain.User{ID: userID, CreatedAt: now})
	})

	if isNew {
		title := deriveTitle(transcript)
		a.runner.Submit("create chat", func(ctx context.Context) error {
			return a.store.CreateChat(domain.Chat{
				ID:        chatID,
				UserID:    userID,
				Title:     title,
				Messages:  stored,
				CreatedAt: now,
				UpdatedAt: now,
			})
		})
	} else {
		a.runner.Submit("update chat", func(ctx context.Context) error {
			return a.store.ReplaceChatMessages(chatID, stored)
		})
	}

	a.runner.Submit("cache user turn", func(ctx context.Context) error {
		return a.contexts.Append(ctx, userID, domain.ContextEntry{Role: domain.RoleUser, Content: userText})
	})
	a.runner.Submit("cache assistant turn", func(ctx context.Context) error {
		return a.contexts.Append(ctx, userID, domain.ContextEntry{Role: domain.RoleAssistant, Content: reply})
	})

	if shouldRemember(userText) {
		a.runner.Submit("save memory", func(ctx context.Context) error {
			return a.store.CreateMemory(domain.Memory{
				ID:        uuid.NewString(),
				UserID:    userID,
				Content:   userText,
				CreatedAt: now,
			})
		})
	}
}

// storedTranscript is the durable form of a turn: client messages plus the
// new assistant reply, with inline attachments stripped.
func storedTranscript(transcript []domain.Message, reply string) []domain.Message {
	out := make([]domain.Message, 0, len(transcript)+1)
	for _, m := range transcript {
		m.Attachment = nil
		out = append(out, m)
	}
	return append(out, domain.Message{Role: domain.RoleAssistant, Content: reply})
}

// shouldRemember decides whether a user message becomes a long-term memory.
// Kept as a standalone predicate so the keyword heuristic can be swapped out.
func shouldRemember(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "recuerda") || strings.Contains(lower, "guarda esto")
}

// deriveTitle takes the first user message, truncated to a sidebar-friendly
// length.
func deriveTitle(messages []domain.Message) string {
	var source string
	for _, m := range messages {
		if m.Role == domain.RoleUser {
			source = m.Content
			break
		}
	}
	if source == "" && len(messages) > 0 {
		source = messages[len(messages)-1].Content
	}
	runes := []rune(strings.TrimSpace(source))
	if len(runes) <= titleMaxRunes {
		return string(runes)
	}
	return string(runes[:titleMaxRunes]) + "…"
}
