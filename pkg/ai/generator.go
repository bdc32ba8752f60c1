package ai

import (
	"context"
	"fmt"

	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

// PlaceholderReply is returned when a provider answers without usable text.
// An empty completion is not treated as an error.
const PlaceholderReply = "No se recibió respuesta del modelo."

// Generator produces one assistant reply from a canonical message list.
// Each provider adapter translates to its own wire shape. Adding a provider
// means adding an implementation, not branching inside existing ones.
type Generator interface {
	Generate(ctx context.Context, messages []domain.Message, modelID string) (string, error)
}

// ProviderError wraps an upstream failure with its diagnostic text.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// lastAttachment returns the attachment riding on the newest message that has
// one, newest first.
func lastAttachment(messages []domain.Message) *domain.Attachment {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Attachment != nil {
			return messages[i].Attachment
		}
	}
	return nil
}
