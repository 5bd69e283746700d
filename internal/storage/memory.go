package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/mindtek/leadchat/internal/models"
)

// MemoryStore keeps conversations in a map. Used for local development and
// tests; selected with database.use_in_memory.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
	}
}

func (s *MemoryStore) Create(ctx context.Context, conv *models.Conversation) error {
	if err := models.ValidateMessages(conv.Messages); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.SessionID]; exists {
		return ErrAlreadyExists
	}

	s.conversations[conv.SessionID] = cloneConversation(conv)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[sessionID]
	if !exists {
		return nil, ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) UpdateMessages(ctx context.Context, sessionID string, messages []models.Message) error {
	if err := models.ValidateMessages(messages); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[sessionID]
	if !exists {
		return ErrNotFound
	}

	conv.Messages = slices.Clone(messages)
	return nil
}

func (s *MemoryStore) UpdateLeadAnalysis(ctx context.Context, sessionID string, analysis *models.LeadAnalysis, analyzedAt time.Time) error {
	if err := analysis.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[sessionID]
	if !exists {
		return ErrNotFound
	}

	a := *analysis
	t := analyzedAt
	conv.LeadAnalysis = &a
	conv.LeadAnalyzedAt = &t
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]*models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		convs = append(convs, cloneConversation(conv))
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})

	return convs, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, sessionID)
	return nil
}

func (s *MemoryStore) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// cloneConversation keeps callers from aliasing the stored slices.
func cloneConversation(conv *models.Conversation) *models.Conversation {
	clone := &models.Conversation{
		SessionID: conv.SessionID,
		Messages:  slices.Clone(conv.Messages),
		CreatedAt: conv.CreatedAt,
	}
	if conv.LeadAnalysis != nil {
		a := *conv.LeadAnalysis
		clone.LeadAnalysis = &a
	}
	if conv.LeadAnalyzedAt != nil {
		t := *conv.LeadAnalyzedAt
		clone.LeadAnalyzedAt = &t
	}
	return clone
}
