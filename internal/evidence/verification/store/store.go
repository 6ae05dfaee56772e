package store

import (
	"context"

	"github.com/google/uuid"

	"idproxy/internal/evidence/verification/models"
)

// Store persists the verification request log.
type Store interface {
	Save(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Record, error)
}
