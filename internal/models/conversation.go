package models

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single transcript entry. User content is untrusted free text.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ValidateMessages rejects sequences containing unknown roles. Called at the
// store boundary so malformed records never reach persistence.
func ValidateMessages(messages []Message) error {
	for i, m := range messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d has invalid role %q", i, m.Role)
		}
	}
	return nil
}

type LeadQuality string

const (
	LeadQualityGood LeadQuality = "good"
	LeadQualityOK   LeadQuality = "ok"
	LeadQualitySpam LeadQuality = "spam"
)

func (q LeadQuality) Valid() bool {
	switch q {
	case LeadQualityGood, LeadQualityOK, LeadQualitySpam:
		return true
	}
	return false
}

// LeadAnalysis is the structured record extracted from a transcript by the
// lead analyzer. It is never created any other way.
type LeadAnalysis struct {
	CustomerName         string      `json:"customerName,omitempty"`
	CustomerEmail        string      `json:"customerEmail,omitempty"`
	CustomerPhone        string      `json:"customerPhone,omitempty"`
	CustomerIndustry     string      `json:"customerIndustry,omitempty"`
	CustomerProblem      string      `json:"customerProblem,omitempty"`
	CustomerAvailability string      `json:"customerAvailability,omitempty"`
	CustomerConsultation bool        `json:"customerConsultation"`
	SpecialNotes         string      `json:"specialNotes,omitempty"`
	LeadQuality          LeadQuality `json:"leadQuality"`
}

func (a *LeadAnalysis) Validate() error {
	if !a.LeadQuality.Valid() {
		return fmt.Errorf("invalid lead quality %q", a.LeadQuality)
	}
	return nil
}

// Conversation is one session's stored state. The first message is always the
// seeded system instruction.
type Conversation struct {
	SessionID      string        `json:"sessionId"`
	Messages       []Message     `json:"messages"`
	CreatedAt      time.Time     `json:"createdAt"`
	LeadAnalysis   *LeadAnalysis `json:"leadAnalysis,omitempty"`
	LeadAnalyzedAt *time.Time    `json:"leadAnalyzedAt,omitempty"`
}

// NonSystemMessages returns the transcript as shown to end users and the
// dashboard, with the system instruction stripped. Never nil.
func (c *Conversation) NonSystemMessages() []Message {
	msgs := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.Role != RoleSystem {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// Summary is the per-conversation row of the dashboard session list.
type Summary struct {
	SessionID    string    `json:"sessionId"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	LeadAnalyzed bool      `json:"leadAnalyzed"`
	LeadQuality  string    `json:"leadQuality,omitempty"`
}
