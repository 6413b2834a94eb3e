package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AcademiaRepository reads tenant-level settings. Academy management is
// outside this service; only the fields the scheduling flows need are
// exposed.
type AcademiaRepository struct {
	db *sqlx.DB
}

// NewAcademiaRepository constructs the repository.
func NewAcademiaRepository(db *sqlx.DB) *AcademiaRepository {
	return &AcademiaRepository{db: db}
}

// Timezone returns the academy's IANA timezone name, or empty when the
// academy has none configured. Callers fall back to the service default.
func (r *AcademiaRepository) Timezone(ctx context.Context, academiaID string) (string, error) {
	query := `SELECT COALESCE(fuso_horario, '') FROM academias WHERE id = $1 LIMIT 1`
	var tz string
	if err := r.db.GetContext(ctx, &tz, query, academiaID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sql.ErrNoRows
		}
		return "", fmt.Errorf("find academia timezone: %w", err)
	}
	return tz, nil
}
