package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fitsync/academia-api/internal/models"
)

// MatriculaRepository answers enrollment and membership questions about
// users. It never mutates anything; enrollment management lives outside this
// service.
type MatriculaRepository struct {
	db *sqlx.DB
}

// NewMatriculaRepository constructs the repository.
func NewMatriculaRepository(db *sqlx.DB) *MatriculaRepository {
	return &MatriculaRepository{db: db}
}

// UserExists reports whether the user exists at all, in any academy.
func (r *MatriculaRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM usuarios WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// HasActiveMatricula reports whether the student holds an active enrollment
// in the academy.
func (r *MatriculaRepository) HasActiveMatricula(ctx context.Context, academiaID, alunoID string) (bool, error) {
	query := `SELECT EXISTS (
SELECT 1 FROM matriculas
WHERE academia_id = $1 AND aluno_id = $2 AND status = 'ATIVA')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, academiaID, alunoID); err != nil {
		return false, fmt.Errorf("check matricula: %w", err)
	}
	return exists, nil
}

// HasVinculo reports whether the user has any tie to the academy, either a
// staff role or an enrollment of any status.
func (r *MatriculaRepository) HasVinculo(ctx context.Context, academiaID, userID string) (bool, error) {
	query := `SELECT EXISTS (
SELECT 1 FROM usuarios_papeis WHERE academia_id = $1 AND usuario_id = $2
UNION
SELECT 1 FROM matriculas WHERE academia_id = $1 AND aluno_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, academiaID, userID); err != nil {
		return false, fmt.Errorf("check vinculo: %w", err)
	}
	return exists, nil
}

// Contact fetches the name and email used by the notification path.
func (r *MatriculaRepository) Contact(ctx context.Context, userID string) (*models.UserContact, error) {
	query := `SELECT id, nome_completo, email FROM usuarios WHERE id = $1 LIMIT 1`
	var c models.UserContact
	if err := r.db.GetContext(ctx, &c, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find user contact: %w", err)
	}
	return &c, nil
}
