package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/apscanner/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no index row exists for a reading
var ErrNotFound = errors.New("repository: reading not found")

// ReadingRepository defines the interface for the stored reading index
type ReadingRepository interface {
	Create(ctx context.Context, record *models.ReadingRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReadingRecord, error)
	List(ctx context.Context) ([]*models.ReadingRecord, error)
	ListByLocale(ctx context.Context, locale string) ([]*models.ReadingRecord, error)
}
