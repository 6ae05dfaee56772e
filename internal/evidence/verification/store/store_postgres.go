package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"idproxy/internal/evidence/verification/models"
	"idproxy/pkg/platform/sentinel"
)

// PostgresStore persists request log records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	sources := record.Sources
	if sources == nil {
		sources = []string{}
	}
	query := `
		INSERT INTO verification_requests
			(id, request_id, partner, verification_id, status, sources, cache_hit, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			verification_id = EXCLUDED.verification_id,
			status = EXCLUDED.status,
			sources = EXCLUDED.sources,
			outcome = EXCLUDED.outcome
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.RequestID,
		record.Partner,
		record.VerificationID,
		string(record.Status),
		pq.Array(sources),
		record.CacheHit,
		string(record.Outcome),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save verification request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	query := `
		SELECT id, request_id, partner, verification_id, status, sources, cache_hit, outcome, created_at
		FROM verification_requests
		WHERE id = $1
	`
	var (
		record  models.Record
		status  string
		outcome string
		sources []string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.RequestID,
		&record.Partner,
		&record.VerificationID,
		&status,
		pq.Array(&sources),
		&record.CacheHit,
		&outcome,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification request: %w", err)
	}
	record.Status = models.Status(status)
	record.Outcome = models.Outcome(outcome)
	record.Sources = sources
	if record.Sources == nil {
		record.Sources = []string{}
	}
	return &record, nil
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
