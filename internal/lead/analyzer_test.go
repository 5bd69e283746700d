package lead

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindtek/leadchat/internal/llm"
	"github.com/mindtek/leadchat/internal/models"
	"github.com/mindtek/leadchat/internal/storage"
)

type fakeCompleter struct {
	reply string
	err   error
	calls [][]models.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []models.Message, opts llm.Options) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func seedConversation(t *testing.T, store *storage.MemoryStore, sessionID string, messages []models.Message) {
	t.Helper()
	err := store.Create(context.Background(), &models.Conversation{
		SessionID: sessionID,
		Messages:  messages,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func newTestAnalyzer(completer llm.Completer) (*Analyzer, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	analyzer := NewAnalyzer(store, completer, Config{
		MaxTokens:   1000,
		Temperature: 0.3,
	}, zap.NewNop())
	return analyzer, store
}

func TestAnalyzeGoodLead(t *testing.T) {
	completer := &fakeCompleter{
		reply: `Here is the extracted record:
{"customerName":"Jane Doe","customerEmail":"jane@example.com","customerProblem":"needs a chatbot","customerConsultation":false,"leadQuality":"good"}`,
	}
	analyzer, store := newTestAnalyzer(completer)
	ctx := context.Background()

	seedConversation(t, store, "s1", []models.Message{
		{Role: models.RoleSystem, Content: "instructions"},
		{Role: models.RoleUser, Content: "I'm Jane Doe, reach me at jane@example.com"},
		{Role: models.RoleAssistant, Content: "Thanks Jane!"},
	})

	analysis, analyzedAt, err := analyzer.Analyze(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadQualityGood, analysis.LeadQuality)
	assert.Equal(t, "jane@example.com", analysis.CustomerEmail)
	assert.False(t, analyzedAt.IsZero())

	conv, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, conv.LeadAnalysis)
	assert.Equal(t, *analysis, *conv.LeadAnalysis)
	require.NotNil(t, conv.LeadAnalyzedAt)
	assert.Equal(t, analyzedAt, *conv.LeadAnalyzedAt)
}

func TestAnalyzeSpamLead(t *testing.T) {
	completer := &fakeCompleter{
		reply: `{"customerProblem":"asked nonsense","customerConsultation":false,"leadQuality":"spam"}`,
	}
	analyzer, store := newTestAnalyzer(completer)

	seedConversation(t, store, "s1", []models.Message{
		{Role: models.RoleSystem, Content: "instructions"},
		{Role: models.RoleUser, Content: "asdf asdf asdf"},
		{Role: models.RoleAssistant, Content: "Could you clarify?"},
	})

	analysis, _, err := analyzer.Analyze(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadQualitySpam, analysis.LeadQuality)
}

func TestAnalyzeRendersTranscript(t *testing.T) {
	completer := &fakeCompleter{
		reply: `{"customerConsultation":false,"leadQuality":"ok"}`,
	}
	analyzer, store := newTestAnalyzer(completer)

	seedConversation(t, store, "s1", []models.Message{
		{Role: models.RoleSystem, Content: "secret instructions"},
		{Role: models.RoleUser, Content: "hello there"},
		{Role: models.RoleAssistant, Content: "hi, what industry are you in?"},
	})

	_, _, err := analyzer.Analyze(context.Background(), "s1")
	require.NoError(t, err)

	// One single-message instruction containing the labeled transcript, with
	// the system seed excluded.
	require.Len(t, completer.calls, 1)
	require.Len(t, completer.calls[0], 1)
	prompt := completer.calls[0][0].Content
	assert.Contains(t, prompt, "Customer: hello there\n\nAssistant: hi, what industry are you in?")
	assert.NotContains(t, prompt, "secret instructions")
}

func TestAnalyzeParseFailurePersistsNothing(t *testing.T) {
	completer := &fakeCompleter{reply: "I'm sorry, I can't help with that."}
	analyzer, store := newTestAnalyzer(completer)
	ctx := context.Background()

	seedConversation(t, store, "s1", []models.Message{
		{Role: models.RoleSystem, Content: "instructions"},
		{Role: models.RoleUser, Content: "hi"},
	})

	_, _, err := analyzer.Analyze(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoAnalysisJSON)

	conv, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, conv.LeadAnalysis)
	assert.Nil(t, conv.LeadAnalyzedAt)
}

func TestAnalyzeInvalidQualityPersistsNothing(t *testing.T) {
	completer := &fakeCompleter{
		reply: `{"customerConsultation":false,"leadQuality":"excellent"}`,
	}
	analyzer, store := newTestAnalyzer(completer)
	ctx := context.Background()

	seedConversation(t, store, "s1", []models.Message{
		{Role: models.RoleSystem, Content: "instructions"},
		{Role: models.RoleUser, Content: "hi"},
	})

	_, _, err := analyzer.Analyze(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoAnalysisJSON)

	conv, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, conv.LeadAnalysis)
}

func TestAnalyzeReplacesPriorAnalysis(t *testing.T) {
	completer := &fakeCompleter{
		reply: `{"customerName":"Jane","customerConsultation":true,"leadQuality":"good"}`,
	}
	analyzer, store := newTestAnalyzer(completer)
	ctx := context.Background()

	seedConversation(t, store, "s1", []models.Message{
		{Role: models.RoleSystem, Content: "instructions"},
		{Role: models.RoleUser, Content: "I'm Jane"},
	})

	prior := &models.LeadAnalysis{SpecialNotes: "stale", LeadQuality: models.LeadQualitySpam}
	require.NoError(t, store.UpdateLeadAnalysis(ctx, "s1", prior, time.Now().Add(-time.Hour)))

	analysis, _, err := analyzer.Analyze(ctx, "s1")
	require.NoError(t, err)

	conv, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, conv.LeadAnalysis)
	// Overwritten entirely, not merged.
	assert.Equal(t, *analysis, *conv.LeadAnalysis)
	assert.Empty(t, conv.LeadAnalysis.SpecialNotes)
	assert.Equal(t, models.LeadQualityGood, conv.LeadAnalysis.LeadQuality)
}

func TestAnalyzeUnknownSession(t *testing.T) {
	analyzer, _ := newTestAnalyzer(&fakeCompleter{})

	_, _, err := analyzer.Analyze(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
