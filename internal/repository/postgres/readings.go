package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/RMahshie/apscanner/internal/repository"
	"github.com/RMahshie/apscanner/pkg/models"
	"github.com/google/uuid"
)

// PostgresReadingRepository implements ReadingRepository for PostgreSQL
type PostgresReadingRepository struct {
	db *sql.DB
}

// NewPostgresReadingRepository creates a new PostgreSQL reading repository
func NewPostgresReadingRepository(db *sql.DB) repository.ReadingRepository {
	return &PostgresReadingRepository{db: db}
}

// Create inserts a new reading index row
func (r *PostgresReadingRepository) Create(ctx context.Context, record *models.ReadingRecord) error {
	query := `
		INSERT INTO readings (id, locale, taken_at, file, networks_24, networks_5, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Locale,
		record.TakenAt,
		record.File,
		record.Networks24,
		record.Networks5,
		record.CreatedAt)

	return err
}

// GetByID retrieves a reading index row by ID
func (r *PostgresReadingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReadingRecord, error) {
	query := `
		SELECT id, locale, taken_at, file, networks_24, networks_5, created_at
		FROM readings
		WHERE id = $1`

	var record models.ReadingRecord
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.Locale,
		&record.TakenAt,
		&record.File,
		&record.Networks24,
		&record.Networks5,
		&record.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// List retrieves every reading index row, oldest first
func (r *PostgresReadingRepository) List(ctx context.Context) ([]*models.ReadingRecord, error) {
	query := `
		SELECT id, locale, taken_at, file, networks_24, networks_5, created_at
		FROM readings
		ORDER BY created_at ASC`

	return r.query(ctx, query)
}

// ListByLocale retrieves the reading index rows of one locale, newest first
func (r *PostgresReadingRepository) ListByLocale(ctx context.Context, locale string) ([]*models.ReadingRecord, error) {
	query := `
		SELECT id, locale, taken_at, file, networks_24, networks_5, created_at
		FROM readings
		WHERE locale = $1
		ORDER BY taken_at DESC`

	return r.query(ctx, query, locale)
}

func (r *PostgresReadingRepository) query(ctx context.Context, query string, args ...any) ([]*models.ReadingRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ReadingRecord
	for rows.Next() {
		var record models.ReadingRecord
		err := rows.Scan(
			&record.ID,
			&record.Locale,
			&record.TakenAt,
			&record.File,
			&record.Networks24,
			&record.Networks5,
			&record.CreatedAt)

		if err != nil {
			return nil, err
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
