package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindtek/leadchat/internal/models"
)

func seedConversation(t *testing.T, store *MemoryStore, sessionID string, createdAt time.Time) {
	t.Helper()
	err := store.Create(context.Background(), &models.Conversation{
		SessionID: sessionID,
		Messages:  []models.Message{{Role: models.RoleSystem, Content: "instructions"}},
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
}

func TestCreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seedConversation(t, store, "s1", time.Now())

	conv, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", conv.SessionID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, models.RoleSystem, conv.Messages[0].Role)
	assert.Nil(t, conv.LeadAnalysis)
	assert.Nil(t, conv.LeadAnalyzedAt)
}

func TestCreateDuplicate(t *testing.T) {
	store := NewMemoryStore()

	seedConversation(t, store, "s1", time.Now())

	err := store.Create(context.Background(), &models.Conversation{SessionID: "s1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMessages(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seedConversation(t, store, "s1", time.Now())

	messages := []models.Message{
		{Role: models.RoleSystem, Content: "instructions"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}
	require.NoError(t, store.UpdateMessages(ctx, "s1", messages))

	conv, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, messages, conv.Messages)
}

func TestUpdateMessagesMissing(t *testing.T) {
	store := NewMemoryStore()

	err := store.UpdateMessages(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMessagesRejectsInvalidRole(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seedConversation(t, store, "s1", time.Now())

	err := store.UpdateMessages(ctx, "s1", []models.Message{{Role: "robot", Content: "beep"}})
	assert.Error(t, err)

	conv, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 1)
}

func TestUpdateLeadAnalysis(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seedConversation(t, store, "s1", time.Now())

	analyzedAt := time.Now().UTC()
	analysis := &models.LeadAnalysis{
		CustomerEmail: "jane@example.com",
		LeadQuality:   models.LeadQualityGood,
	}
	require.NoError(t, store.UpdateLeadAnalysis(ctx, "s1", analysis, analyzedAt))

	conv, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, conv.LeadAnalysis)
	assert.Equal(t, models.LeadQualityGood, conv.LeadAnalysis.LeadQuality)
	require.NotNil(t, conv.LeadAnalyzedAt)
	assert.Equal(t, analyzedAt, *conv.LeadAnalyzedAt)
}

func TestUpdateLeadAnalysisRejectsInvalidQuality(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seedConversation(t, store, "s1", time.Now())

	err := store.UpdateLeadAnalysis(ctx, "s1", &models.LeadAnalysis{LeadQuality: "excellent"}, time.Now())
	assert.Error(t, err)

	conv, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, conv.LeadAnalysis)
}

func TestListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	seedConversation(t, store, "oldest", now.Add(-2*time.Hour))
	seedConversation(t, store, "newest", now)
	seedConversation(t, store, "middle", now.Add(-time.Hour))

	convs, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, "newest", convs[0].SessionID)
	assert.Equal(t, "middle", convs[1].SessionID)
	assert.Equal(t, "oldest", convs[2].SessionID)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seedConversation(t, store, "s1", time.Now())

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again, or an id that never existed, is not an error.
	require.NoError(t, store.Delete(ctx, "s1"))
	require.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seedConversation(t, store, "s1", time.Now())

	conv, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	conv.Messages[0].Content = "mutated"

	fresh, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "instructions", fresh.Messages[0].Content)
}
