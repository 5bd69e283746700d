package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mindtek/leadchat/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(config DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	store := &PostgresStore{db: db}

	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Create(ctx context.Context, conv *models.Conversation) error {
	if err := models.ValidateMessages(conv.Messages); err != nil {
		return err
	}

	messagesJSON, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("error encoding messages: %w", err)
	}

	query := `
		INSERT INTO conversations (session_id, messages, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query, conv.SessionID, messagesJSON, conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyExists
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*models.Conversation, error) {
	query := `
		SELECT session_id, messages, created_at, lead_analysis, lead_analyzed_at
		FROM conversations
		WHERE session_id = $1`

	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error querying conversation: %w", err)
	}

	return conv, nil
}

func (s *PostgresStore) UpdateMessages(ctx context.Context, sessionID string, messages []models.Message) error {
	if err := models.ValidateMessages(messages); err != nil {
		return err
	}

	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("error encoding messages: %w", err)
	}

	query := `
		UPDATE conversations
		SET messages = $1
		WHERE session_id = $2`

	result, err := s.db.ExecContext(ctx, query, messagesJSON, sessionID)
	if err != nil {
		return fmt.Errorf("error updating conversation messages: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) UpdateLeadAnalysis(ctx context.Context, sessionID string, analysis *models.LeadAnalysis, analyzedAt time.Time) error {
	if err := analysis.Validate(); err != nil {
		return err
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("error encoding lead analysis: %w", err)
	}

	query := `
		UPDATE conversations
		SET lead_analysis = $1, lead_analyzed_at = $2
		WHERE session_id = $3`

	result, err := s.db.ExecContext(ctx, query, analysisJSON, analyzedAt, sessionID)
	if err != nil {
		return fmt.Errorf("error updating lead analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Conversation, error) {
	query := `
		SELECT session_id, messages, created_at, lead_analysis, lead_analyzed_at
		FROM conversations
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return convs, nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	query := `DELETE FROM conversations WHERE session_id = $1`

	if _, err := s.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("error deleting conversation: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var (
		conv         models.Conversation
		messagesJSON []byte
		analysisJSON []byte
		analyzedAt   sql.NullTime
	)

	if err := row.Scan(&conv.SessionID, &messagesJSON, &conv.CreatedAt, &analysisJSON, &analyzedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(messagesJSON, &conv.Messages); err != nil {
		return nil, fmt.Errorf("error decoding messages: %w", err)
	}

	if analysisJSON != nil {
		analysis := &models.LeadAnalysis{}
		if err := json.Unmarshal(analysisJSON, analysis); err != nil {
			return nil, fmt.Errorf("error decoding lead analysis: %w", err)
		}
		conv.LeadAnalysis = analysis
	}

	if analyzedAt.Valid {
		t := analyzedAt.Time
		conv.LeadAnalyzedAt = &t
	}

	return &conv, nil
}
