package llm

import (
	"context"
	"errors"

	"github.com/mindtek/leadchat/internal/models"
)

var (
	// ErrQuotaExceeded means the provider account has run out of quota.
	ErrQuotaExceeded = errors.New("model provider quota exceeded")
	// ErrUnauthorized means the provider rejected the configured credential.
	ErrUnauthorized = errors.New("model provider rejected credentials")
)

// Options are the per-call generation parameters.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// Completer produces one assistant completion for a message sequence.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message, opts Options) (string, error)
}
