package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/themobileprof/commandbot/internal/privacy"
)

// ErrInvalidLimit is returned for a non-positive page size.
var ErrInvalidLimit = errors.New("limit must be positive")

const maxListLimit = 100

// Interaction is one processed utterance as recorded in the log.
type Interaction struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	Utterance string    `json:"utterance"`
	Response  string    `json:"response"`
	Intents   []string  `json:"intents"`
	CreatedAt time.Time `json:"created_at"`
}

// Config holds database configuration
type Config struct {
	URL             string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store appends interactions to Postgres.
type Store struct {
	db *sql.DB
}

// Open connects to the database at cfg.URL and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	sqlDB, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConnections > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(sqlDB), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the interactions table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS interactions (
			id         BIGSERIAL PRIMARY KEY,
			request_id UUID NOT NULL,
			utterance  TEXT NOT NULL,
			response   TEXT NOT NULL,
			intents    TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create interactions table: %w", err)
	}
	return nil
}

// SaveInteraction appends one interaction. Utterance and response are
// redacted before they are written.
func (s *Store) SaveInteraction(ctx context.Context, in Interaction) error {
	query := `
		INSERT INTO interactions (request_id, utterance, response, intents)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query,
		in.RequestID,
		privacy.Redact(in.Utterance),
		privacy.Redact(in.Response),
		pq.Array(in.Intents),
	)
	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

// RecentInteractions returns the newest interactions first.
func (s *Store) RecentInteractions(ctx context.Context, limit int) ([]Interaction, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	limit = min(limit, maxListLimit)

	query := `
		SELECT id, request_id, utterance, response, intents, created_at
		FROM interactions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.RequestID, &in.Utterance, &in.Response, pq.Array(&in.Intents), &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}

	return out, nil
}
