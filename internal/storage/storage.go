package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mindtek/leadchat/internal/models"
)

var (
	ErrNotFound      = errors.New("conversation not found")
	ErrAlreadyExists = errors.New("conversation already exists")
)

// ConversationStore is the single place all conversation state lives.
type ConversationStore interface {
	// Create inserts a new conversation; ErrAlreadyExists if the session id
	// is taken.
	Create(ctx context.Context, conv *models.Conversation) error

	// Get returns the full stored conversation; ErrNotFound if absent.
	Get(ctx context.Context, sessionID string) (*models.Conversation, error)

	// UpdateMessages replaces the whole message sequence; ErrNotFound if the
	// conversation does not exist.
	UpdateMessages(ctx context.Context, sessionID string, messages []models.Message) error

	// UpdateLeadAnalysis overwrites any prior analysis; ErrNotFound if the
	// conversation does not exist.
	UpdateLeadAnalysis(ctx context.Context, sessionID string, analysis *models.LeadAnalysis, analyzedAt time.Time) error

	// List returns all conversations ordered newest-created first.
	List(ctx context.Context) ([]*models.Conversation, error)

	// Delete removes the row entirely. Deleting an unknown id is not an error.
	Delete(ctx context.Context, sessionID string) error

	Close() error
}
