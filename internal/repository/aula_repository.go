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

	"github.com/fitsync/academia-api/internal/models"
)

const aulaColumns = `a.id, a.academia_id, a.turma_id, a.data_inicio, a.data_fim, a.status,
	a.qr_token, a.qr_expires_at, a.deleted_at,
	t.nome AS turma_nome, tt.nome AS tipo_treino,
	to_char(t.horario_padrao, 'HH24:MI') AS turma_horario_padrao,
	t.dias_semana AS turma_dias_semana,
	t.instrutor_padrao_id AS instrutor_id,
	instrutor.nome_completo AS instrutor_nome`

const aulaJoins = `FROM aulas a
JOIN turmas t ON t.id = a.turma_id
JOIN tipos_treino tt ON tt.id = t.tipo_treino_id
LEFT JOIN usuarios instrutor ON instrutor.id = t.instrutor_padrao_id`

// AulaRepository handles persistence for class instances.
type AulaRepository struct {
	db *sqlx.DB
}

// NewAulaRepository constructs the repository.
func NewAulaRepository(db *sqlx.DB) *AulaRepository {
	return &AulaRepository{db: db}
}

// List returns instances matching the filter. Instances of soft-deleted
// templates are always excluded.
func (r *AulaRepository) List(ctx context.Context, academiaID string, filter models.AulaFilter) ([]models.AulaDetail, error) {
	where := []string{"a.academia_id = $1", "t.deleted_at IS NULL"}
	args := []interface{}{academiaID}

	if filter.OnlyDeleted {
		where = append(where, "a.deleted_at IS NOT NULL")
	} else if !filter.IncludeDeleted {
		where = append(where, "a.deleted_at IS NULL")
	}
	if filter.TurmaID != "" {
		where = append(where, fmt.Sprintf("a.turma_id = $%d", len(args)+1))
		args = append(args, filter.TurmaID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.StartFrom != nil {
		where = append(where, fmt.Sprintf("a.data_inicio >= $%d", len(args)+1))
		args = append(args, *filter.StartFrom)
	}
	if filter.StartBefore != nil {
		where = append(where, fmt.Sprintf("a.data_inicio < $%d", len(args)+1))
		args = append(args, *filter.StartBefore)
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY a.data_inicio ASC`,
		aulaColumns, aulaJoins, strings.Join(where, " AND "))

	var rows []models.AulaDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list aulas: %w", err)
	}
	return rows, nil
}

// FindByID fetches one instance scoped by tenant.
func (r *AulaRepository) FindByID(ctx context.Context, id, academiaID string, includeDeleted bool) (*models.AulaDetail, error) {
	deletedClause := "AND a.deleted_at IS NULL"
	if includeDeleted {
		deletedClause = ""
	}
	query := fmt.Sprintf(`SELECT %s %s
WHERE a.id = $1 AND a.academia_id = $2 AND t.deleted_at IS NULL %s LIMIT 1`,
		aulaColumns, aulaJoins, deletedClause)

	var aula models.AulaDetail
	if err := r.db.GetContext(ctx, &aula, query, id, academiaID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find aula: %w", err)
	}
	return &aula, nil
}

// Create inserts a new instance. A start-time collision with another active
// instance of the same template surfaces as ErrDuplicate.
func (r *AulaRepository) Create(ctx context.Context, aula *models.Aula) error {
	if aula.ID == "" {
		aula.ID = uuid.NewString()
	}
	query := `INSERT INTO aulas (id, academia_id, turma_id, data_inicio, data_fim, status)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		aula.ID, aula.AcademiaID, aula.TurmaID, aula.DataInicio, aula.DataFim, aula.Status); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create aula: %w", err)
	}
	return nil
}

// ExistsAt reports whether an active instance of the template already starts
// at the given instant, ignoring excludeID.
func (r *AulaRepository) ExistsAt(ctx context.Context, academiaID, turmaID string, start time.Time, excludeID string) (bool, error) {
	query := `SELECT EXISTS (
SELECT 1 FROM aulas
WHERE turma_id = $1 AND academia_id = $2 AND data_inicio = $3
  AND deleted_at IS NULL AND id <> $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, turmaID, academiaID, start, excludeID); err != nil {
		return false, fmt.Errorf("check aula start: %w", err)
	}
	return exists, nil
}

// ListStartTimes returns the start instants of active instances of the
// template within [from, to).
func (r *AulaRepository) ListStartTimes(ctx context.Context, academiaID, turmaID string, from, to time.Time) ([]time.Time, error) {
	query := `SELECT data_inicio FROM aulas
WHERE turma_id = $1 AND academia_id = $2 AND deleted_at IS NULL
  AND data_inicio >= $3 AND data_inicio < $4`
	var starts []time.Time
	if err := r.db.SelectContext(ctx, &starts, query, turmaID, academiaID, from, to); err != nil {
		return nil, fmt.Errorf("list aula starts: %w", err)
	}
	return starts, nil
}

// BulkInsert inserts the given instances, skipping start-time collisions via
// the storage constraint. Returns the number of rows actually inserted.
func (r *AulaRepository) BulkInsert(ctx context.Context, aulas []models.Aula) (int, error) {
	if len(aulas) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk aulas: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	query := `INSERT INTO aulas (id, academia_id, turma_id, data_inicio, data_fim, status)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (turma_id, data_inicio) WHERE deleted_at IS NULL DO NOTHING
RETURNING id`
	inserted := 0
	for i := range aulas {
		aula := &aulas[i]
		if aula.ID == "" {
			aula.ID = uuid.NewString()
		}
		var insertedID string
		err := tx.QueryRowxContext(ctx, query,
			aula.ID, aula.AcademiaID, aula.TurmaID, aula.DataInicio, aula.DataFim, aula.Status).Scan(&insertedID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return 0, fmt.Errorf("bulk insert aulas: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk aulas: %w", err)
	}
	committed = true
	return inserted, nil
}

// ListDisponiveis returns the non-cancelled instances starting within
// [from, to), each flagged with whether the student already checked in.
// Ended instances stay visible so the student sees the full day.
func (r *AulaRepository) ListDisponiveis(ctx context.Context, academiaID, alunoID string, from, to time.Time) ([]models.CheckinDisponivel, error) {
	query := `SELECT a.id AS aula_id, t.nome AS turma_nome, a.data_inicio, a.data_fim,
	tt.nome AS tipo_treino, a.status AS status_aula,
	EXISTS (
		SELECT 1 FROM presencas p
		WHERE p.aula_id = a.id AND p.aluno_id = $1 AND p.academia_id = a.academia_id
	) AS ja_fez_checkin
FROM aulas a
JOIN turmas t ON t.id = a.turma_id
JOIN tipos_treino tt ON tt.id = t.tipo_treino_id
WHERE a.academia_id = $2 AND a.deleted_at IS NULL AND t.deleted_at IS NULL
  AND a.status <> $3 AND a.data_inicio >= $4 AND a.data_inicio < $5
ORDER BY a.data_inicio ASC`
	var rows []models.CheckinDisponivel
	if err := r.db.SelectContext(ctx, &rows, query,
		alunoID, academiaID, models.AulaCancelada, from, to); err != nil {
		return nil, fmt.Errorf("list aulas disponiveis: %w", err)
	}
	return rows, nil
}

// AulaUpdate carries the optional fields of a partial instance update.
type AulaUpdate struct {
	DataInicio *time.Time
	DataFim    *time.Time
	Status     *models.AulaStatus
}

// Empty reports whether there is nothing to change.
func (u AulaUpdate) Empty() bool {
	return u.DataInicio == nil && u.DataFim == nil && u.Status == nil
}

// Update applies a partial update.
func (r *AulaRepository) Update(ctx context.Context, id, academiaID string, upd AulaUpdate) error {
	sets := []string{}
	args := []interface{}{}
	push := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}
	if upd.DataInicio != nil {
		push("data_inicio", *upd.DataInicio)
	}
	if upd.DataFim != nil {
		push("data_fim", *upd.DataFim)
	}
	if upd.Status != nil {
		push("status", *upd.Status)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id, academiaID)
	query := fmt.Sprintf(`UPDATE aulas SET %s WHERE id = $%d AND academia_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update aula: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetQRCode stores a freshly issued token and its expiry, replacing any
// previous token on the instance.
func (r *AulaRepository) SetQRCode(ctx context.Context, id, academiaID, token string, expiresAt time.Time) error {
	query := `UPDATE aulas SET qr_token = $1, qr_expires_at = $2
WHERE id = $3 AND academia_id = $4 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, token, expiresAt, id, academiaID)
	if err != nil {
		return fmt.Errorf("set aula qr code: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetTerminalStatus moves the instance to a terminal status, always clearing
// QR credentials in the same statement.
func (r *AulaRepository) SetTerminalStatus(ctx context.Context, id, academiaID string, status models.AulaStatus) error {
	query := `UPDATE aulas SET status = $1, qr_token = NULL, qr_expires_at = NULL
WHERE id = $2 AND academia_id = $3`
	res, err := r.db.ExecContext(ctx, query, status, id, academiaID)
	if err != nil {
		return fmt.Errorf("set aula status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete marks the instance deleted and clears QR credentials.
func (r *AulaRepository) SoftDelete(ctx context.Context, id, academiaID string) error {
	query := `UPDATE aulas SET deleted_at = now(), qr_token = NULL, qr_expires_at = NULL
WHERE id = $1 AND academia_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, academiaID)
	if err != nil {
		return fmt.Errorf("soft delete aula: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Restore clears the deletion marker.
func (r *AulaRepository) Restore(ctx context.Context, id, academiaID string) error {
	query := `UPDATE aulas SET deleted_at = NULL WHERE id = $1 AND academia_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, academiaID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("restore aula: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
