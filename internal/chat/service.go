package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mindtek/leadchat/internal/llm"
	"github.com/mindtek/leadchat/internal/models"
	"github.com/mindtek/leadchat/internal/storage"
)

// ErrInvalidInput means a required field was empty.
var ErrInvalidInput = errors.New("message and sessionId are required")

const defaultMaxMessages = 20

type Config struct {
	// MaxMessages is the retention cap applied after each turn.
	MaxMessages int
	MaxTokens   int
	Temperature float32
}

// Service owns the conversation lifecycle: session creation, turn
// processing, and the dashboard's query/delete operations.
type Service struct {
	store       storage.ConversationStore
	completer   llm.Completer
	logger      *zap.Logger
	maxMessages int
	opts        llm.Options

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

func NewService(store storage.ConversationStore, completer llm.Completer, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = defaultMaxMessages
	}
	return &Service{
		store:       store,
		completer:   completer,
		logger:      logger,
		maxMessages: cfg.MaxMessages,
		opts: llm.Options{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
		sessions: make(map[string]*sync.Mutex),
	}
}

// NewSessionID composes millisecond epoch (base36) with a random suffix, the
// same wire format the chat widget already stores client-side.
func NewSessionID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + suffix
}

// CreateSession generates a fresh session id and seeds its conversation.
func (s *Service) CreateSession(ctx context.Context) (string, error) {
	sessionID := NewSessionID()
	if _, err := s.EnsureConversation(ctx, sessionID); err != nil {
		return "", err
	}
	return sessionID, nil
}

// EnsureConversation returns the stored conversation, creating and seeding it
// with the system instruction on first reference. Idempotent.
func (s *Service) EnsureConversation(ctx context.Context, sessionID string) (*models.Conversation, error) {
	conv, err := s.store.Get(ctx, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	conv = &models.Conversation{
		SessionID: sessionID,
		Messages:  []models.Message{{Role: models.RoleSystem, Content: systemPrompt}},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, conv); err != nil {
		// Another request seeded the same id first.
		if errors.Is(err, storage.ErrAlreadyExists) {
			return s.store.Get(ctx, sessionID)
		}
		return nil, err
	}

	s.logger.Info("Conversation created", zap.String("session_id", sessionID))
	return conv, nil
}

// ProcessTurn runs one chat turn: append the user message, complete, append
// the assistant reply, truncate to the retention cap, persist. The store is
// only written once the reply is ready, so a failed turn leaves the
// conversation exactly as it was.
func (s *Service) ProcessTurn(ctx context.Context, sessionID, userText string) (string, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(userText) == "" {
		return "", ErrInvalidInput
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	conv, err := s.EnsureConversation(ctx, sessionID)
	if err != nil {
		return "", err
	}

	candidate := append(slices.Clone(conv.Messages), models.Message{
		Role:    models.RoleUser,
		Content: userText,
	})

	reply, err := s.completer.Complete(ctx, candidate, s.opts)
	if err != nil {
		return "", err
	}

	final := append(candidate, models.Message{
		Role:    models.RoleAssistant,
		Content: reply,
	})
	final = truncateMessages(final, s.maxMessages)

	if err := s.store.UpdateMessages(ctx, sessionID, final); err != nil {
		return "", fmt.Errorf("persisting turn: %w", err)
	}

	return reply, nil
}

// truncateMessages keeps the most recent entries within the cap. The seed
// system message is pinned outside the window so long conversations never
// lose the persona instruction.
func truncateMessages(messages []models.Message, limit int) []models.Message {
	if len(messages) <= limit {
		return messages
	}
	if messages[0].Role == models.RoleSystem {
		kept := make([]models.Message, 0, limit)
		kept = append(kept, messages[0])
		return append(kept, messages[len(messages)-(limit-1):]...)
	}
	return messages[len(messages)-limit:]
}

// GetConversation returns the full stored conversation for a session.
func (s *Service) GetConversation(ctx context.Context, sessionID string) (*models.Conversation, error) {
	return s.store.Get(ctx, sessionID)
}

// ListConversations returns dashboard summaries, newest-created first.
// MessageCount excludes the system message; LastActivity mirrors CreatedAt
// since the store keeps no per-message timestamps.
func (s *Service) ListConversations(ctx context.Context) ([]models.Summary, error) {
	convs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.Summary, 0, len(convs))
	for _, conv := range convs {
		summary := models.Summary{
			SessionID:    conv.SessionID,
			MessageCount: len(conv.NonSystemMessages()),
			CreatedAt:    conv.CreatedAt,
			LastActivity: conv.CreatedAt,
			LeadAnalyzed: conv.LeadAnalysis != nil,
		}
		if conv.LeadAnalysis != nil {
			summary.LeadQuality = string(conv.LeadAnalysis.LeadQuality)
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// DeleteConversation removes a conversation. Unknown ids are a no-op.
func (s *Service) DeleteConversation(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.releaseSession(sessionID)
	return nil
}

// DeleteAllConversations issues one delete per stored session and waits for
// all of them. Not transactional: a failure is surfaced but other deletes may
// already have completed. Returns the number of sessions targeted.
func (s *Service) DeleteAllConversations(ctx context.Context) (int, error) {
	convs, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, conv := range convs {
		sessionID := conv.SessionID
		g.Go(func() error {
			if err := s.store.Delete(ctx, sessionID); err != nil {
				return err
			}
			s.releaseSession(sessionID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	return len(convs), nil
}

func (s *Service) lockSession(sessionID string) func() {
	s.mu.Lock()
	m, ok := s.sessions[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.sessions[sessionID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// releaseSession evicts the per-session mutex once its conversation is gone,
// keeping the lock map from growing with every session ever seen.
func (s *Service) releaseSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}
