package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fitsync/academia-api/internal/models"
)

const turmaColumns = `t.id, t.academia_id, t.nome, t.tipo_treino_id,
	tt.nome AS tipo_treino, tt.cor_identificacao AS tipo_treino_cor,
	t.dias_semana, to_char(t.horario_padrao, 'HH24:MI') AS horario_padrao,
	t.instrutor_padrao_id, instrutor.nome_completo AS instrutor_nome,
	t.deleted_at, t.deleted_by`

const turmaJoins = `FROM turmas t
JOIN tipos_treino tt ON tt.id = t.tipo_treino_id
LEFT JOIN usuarios instrutor ON instrutor.id = t.instrutor_padrao_id`

// TurmaRepository handles persistence for class templates.
type TurmaRepository struct {
	db *sqlx.DB
}

// NewTurmaRepository constructs the repository.
func NewTurmaRepository(db *sqlx.DB) *TurmaRepository {
	return &TurmaRepository{db: db}
}

// List returns the tenant's templates ordered by name.
func (r *TurmaRepository) List(ctx context.Context, academiaID string, filter models.TurmaFilter) ([]models.Turma, error) {
	deletedClause := "AND t.deleted_at IS NULL"
	if filter.OnlyDeleted {
		deletedClause = "AND t.deleted_at IS NOT NULL"
	} else if filter.IncludeDeleted {
		deletedClause = ""
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE t.academia_id = $1 %s ORDER BY t.nome ASC`,
		turmaColumns, turmaJoins, deletedClause)

	var rows []models.Turma
	if err := r.db.SelectContext(ctx, &rows, query, academiaID); err != nil {
		return nil, fmt.Errorf("list turmas: %w", err)
	}
	return rows, nil
}

// FindByID fetches one template scoped by tenant.
func (r *TurmaRepository) FindByID(ctx context.Context, id, academiaID string, includeDeleted bool) (*models.Turma, error) {
	deletedClause := "AND t.deleted_at IS NULL"
	if includeDeleted {
		deletedClause = ""
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE t.id = $1 AND t.academia_id = $2 %s LIMIT 1`,
		turmaColumns, turmaJoins, deletedClause)

	var turma models.Turma
	if err := r.db.GetContext(ctx, &turma, query, id, academiaID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find turma: %w", err)
	}
	return &turma, nil
}

// Create inserts a new template.
func (r *TurmaRepository) Create(ctx context.Context, turma *models.Turma) error {
	if turma.ID == "" {
		turma.ID = uuid.NewString()
	}
	query := `INSERT INTO turmas (id, academia_id, nome, tipo_treino_id, dias_semana, horario_padrao, instrutor_padrao_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		turma.ID, turma.AcademiaID, turma.Nome, turma.TipoTreinoID,
		turma.DiasSemana, turma.HorarioPadrao, turma.InstrutorPadraoID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create turma: %w", err)
	}
	return nil
}

// TurmaUpdate carries the optional fields of a partial template update.
type TurmaUpdate struct {
	Nome              *string
	TipoTreinoID      *string
	DiasSemana        *pq.Int64Array
	HorarioPadrao     *string
	InstrutorPadraoID *string
}

// Empty reports whether there is nothing to change.
func (u TurmaUpdate) Empty() bool {
	return u.Nome == nil && u.TipoTreinoID == nil && u.DiasSemana == nil &&
		u.HorarioPadrao == nil && u.InstrutorPadraoID == nil
}

// Update applies a partial update and reports whether a row matched.
func (r *TurmaRepository) Update(ctx context.Context, id, academiaID string, upd TurmaUpdate) error {
	sets := []string{}
	args := []interface{}{}
	push := func(clause string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", clause, len(args)+1))
		args = append(args, value)
	}
	if upd.Nome != nil {
		push("nome", *upd.Nome)
	}
	if upd.TipoTreinoID != nil {
		push("tipo_treino_id", *upd.TipoTreinoID)
	}
	if upd.DiasSemana != nil {
		push("dias_semana", *upd.DiasSemana)
	}
	if upd.HorarioPadrao != nil {
		push("horario_padrao", *upd.HorarioPadrao)
	}
	if upd.InstrutorPadraoID != nil {
		push("instrutor_padrao_id", *upd.InstrutorPadraoID)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id, academiaID)
	query := fmt.Sprintf(`UPDATE turmas SET %s WHERE id = $%d AND academia_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update turma: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete marks the template deleted, recording the acting user.
func (r *TurmaRepository) SoftDelete(ctx context.Context, id, academiaID, deletedBy string) error {
	query := `UPDATE turmas SET deleted_at = now(), deleted_by = $1
WHERE id = $2 AND academia_id = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, deletedBy, id, academiaID)
	if err != nil {
		return fmt.Errorf("soft delete turma: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Restore clears the deletion marker.
func (r *TurmaRepository) Restore(ctx context.Context, id, academiaID string) error {
	query := `UPDATE turmas SET deleted_at = NULL, deleted_by = NULL
WHERE id = $1 AND academia_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, academiaID)
	if err != nil {
		return fmt.Errorf("restore turma: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsActiveByName reports whether a non-deleted template already carries
// the given name (case-insensitive) in the tenant, ignoring excludeID.
func (r *TurmaRepository) ExistsActiveByName(ctx context.Context, academiaID, nome, excludeID string) (bool, error) {
	query := `SELECT EXISTS (
SELECT 1 FROM turmas
WHERE academia_id = $1 AND deleted_at IS NULL AND lower(nome) = lower($2) AND id <> $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, academiaID, nome, excludeID); err != nil {
		return false, fmt.Errorf("check turma name: %w", err)
	}
	return exists, nil
}

// HasFutureAulas reports whether any active, non-cancelled instance of the
// template starts at or after ref.
func (r *TurmaRepository) HasFutureAulas(ctx context.Context, turmaID, academiaID string, ref time.Time) (bool, error) {
	query := `SELECT EXISTS (
SELECT 1 FROM aulas
WHERE turma_id = $1 AND academia_id = $2 AND deleted_at IS NULL
  AND status <> 'CANCELADA' AND data_inicio >= $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, turmaID, academiaID, ref); err != nil {
		return false, fmt.Errorf("check future aulas: %w", err)
	}
	return exists, nil
}

// TipoTreinoExists verifies the discipline ref inside the tenant.
func (r *TurmaRepository) TipoTreinoExists(ctx context.Context, id, academiaID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM tipos_treino WHERE id = $1 AND academia_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id, academiaID); err != nil {
		return false, fmt.Errorf("check tipo treino: %w", err)
	}
	return exists, nil
}

// InstrutorIsStaff verifies the instructor holds an eligible staff role in
// the tenant.
func (r *TurmaRepository) InstrutorIsStaff(ctx context.Context, userID, academiaID string) (bool, error) {
	query := `SELECT EXISTS (
SELECT 1 FROM usuarios_papeis
WHERE usuario_id = $1 AND academia_id = $2
  AND papel IN ('INSTRUTOR', 'PROFESSOR', 'ADMIN', 'TI'))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, academiaID); err != nil {
		return false, fmt.Errorf("check instrutor role: %w", err)
	}
	return exists, nil
}
