package lead

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mindtek/leadchat/internal/llm"
	"github.com/mindtek/leadchat/internal/models"
	"github.com/mindtek/leadchat/internal/storage"
)

// ErrNoAnalysisJSON means the model response contained no parseable analysis
// object. Nothing is persisted in that case.
var ErrNoAnalysisJSON = errors.New("no parseable JSON object in analysis response")

const analysisPrompt = `Extract the following customer details from the transcript:
- Name
- Email address
- Phone number
- Industry
- Problems, needs, and goals summary
- Availability
- Whether they have booked a consultation (true/false)
- Any special notes
- Lead quality (categorize as 'good', 'ok', or 'spam')

Format the response using this JSON schema:
{
  "type": "object",
  "properties": {
    "customerName": { "type": "string" },
    "customerEmail": { "type": "string" },
    "customerPhone": { "type": "string" },
    "customerIndustry": { "type": "string" },
    "customerProblem": { "type": "string" },
    "customerAvailability": { "type": "string" },
    "customerConsultation": { "type": "boolean" },
    "specialNotes": { "type": "string" },
    "leadQuality": { "type": "string", "enum": ["good", "ok", "spam"] }
  },
  "required": ["customerName", "customerEmail", "customerProblem", "leadQuality"]
}

If the user provided contact details, set lead quality to "good"; otherwise, "spam".

Transcript:
%s`

type Config struct {
	MaxTokens   int
	Temperature float32
}

// Analyzer extracts structured lead data from a conversation transcript via
// a single model call and persists the result.
type Analyzer struct {
	store     storage.ConversationStore
	completer llm.Completer
	logger    *zap.Logger
	opts      llm.Options
}

func NewAnalyzer(store storage.ConversationStore, completer llm.Completer, cfg Config, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		store:     store,
		completer: completer,
		logger:    logger,
		opts: llm.Options{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
	}
}

// Analyze runs the extraction over the session's non-system messages and
// overwrites any prior analysis. A parse failure leaves stored state
// untouched.
func (a *Analyzer) Analyze(ctx context.Context, sessionID string) (*models.LeadAnalysis, time.Time, error) {
	conv, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return nil, time.Time{}, err
	}

	transcript := renderTranscript(conv.NonSystemMessages())
	prompt := fmt.Sprintf(analysisPrompt, transcript)

	raw, err := a.completer.Complete(ctx, []models.Message{
		{Role: models.RoleSystem, Content: prompt},
	}, a.opts)
	if err != nil {
		return nil, time.Time{}, err
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		a.logger.Error("Failed to parse lead analysis",
			zap.Error(err),
			zap.String("session_id", sessionID),
			zap.String("response", raw))
		return nil, time.Time{}, err
	}

	analyzedAt := time.Now().UTC()
	if err := a.store.UpdateLeadAnalysis(ctx, sessionID, analysis, analyzedAt); err != nil {
		return nil, time.Time{}, fmt.Errorf("persisting lead analysis: %w", err)
	}

	a.logger.Info("Lead analysis stored",
		zap.String("session_id", sessionID),
		zap.String("lead_quality", string(analysis.LeadQuality)))
	return analysis, analyzedAt, nil
}

// parseAnalysis locates the first balanced JSON object in the model output
// and parses it strictly. Fails closed: no partial acceptance.
func parseAnalysis(raw string) (*models.LeadAnalysis, error) {
	span, ok := firstJSONObject(raw)
	if !ok {
		return nil, ErrNoAnalysisJSON
	}

	analysis := &models.LeadAnalysis{}
	if err := json.Unmarshal([]byte(span), analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAnalysisJSON, err)
	}
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAnalysisJSON, err)
	}

	return analysis, nil
}

// renderTranscript writes one labeled line per message, blank line between
// entries, original order preserved.
func renderTranscript(messages []models.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		label := "Assistant"
		if m.Role == models.RoleUser {
			label = "Customer"
		}
		lines = append(lines, label+": "+m.Content)
	}
	return strings.Join(lines, "\n\n")
}
