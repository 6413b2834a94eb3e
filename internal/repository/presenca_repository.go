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

const presencaColumns = `id, academia_id, aula_id, aluno_id, status, origem, criado_em,
	registrado_por, decidido_em, decidido_por, decisao_observacao`

// PresencaRepository handles persistence for attendance records.
type PresencaRepository struct {
	db *sqlx.DB
}

// NewPresencaRepository constructs the repository.
func NewPresencaRepository(db *sqlx.DB) *PresencaRepository {
	return &PresencaRepository{db: db}
}

// Create inserts a new attendance record. A second record for the same
// (aula, aluno) surfaces as ErrDuplicate.
func (r *PresencaRepository) Create(ctx context.Context, p *models.Presenca) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	query := `INSERT INTO presencas (id, academia_id, aula_id, aluno_id, status, origem, registrado_por)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING criado_em`
	err := r.db.QueryRowxContext(ctx, query,
		p.ID, p.AcademiaID, p.AulaID, p.AlunoID, p.Status, p.Origem, p.RegistradoPor).
		Scan(&p.CriadoEm)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create presenca: %w", err)
	}
	return nil
}

// FindByID fetches one record without a tenant predicate. The decision flow
// distinguishes missing records from records in another tenant, so the caller
// compares academia_id itself.
func (r *PresencaRepository) FindByID(ctx context.Context, id string) (*models.Presenca, error) {
	query := fmt.Sprintf(`SELECT %s FROM presencas WHERE id = $1 LIMIT 1`, presencaColumns)
	var p models.Presenca
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find presenca: %w", err)
	}
	return &p, nil
}

// ExistsForAula reports whether the student already has a record on the
// instance within the tenant.
func (r *PresencaRepository) ExistsForAula(ctx context.Context, academiaID, aulaID, alunoID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM presencas WHERE aula_id = $1 AND aluno_id = $2 AND academia_id = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, aulaID, alunoID, academiaID); err != nil {
		return false, fmt.Errorf("check presenca exists: %w", err)
	}
	return exists, nil
}

// PendenteFilter narrows the pending review listing.
type PendenteFilter struct {
	TurmaID string
	From    *time.Time
	To      *time.Time
}

// ListPendentes returns PENDENTE records joined with display data, ordered by
// class start time.
func (r *PresencaRepository) ListPendentes(ctx context.Context, academiaID string, filter PendenteFilter) ([]models.PresencaPendenteRow, error) {
	where := []string{"p.academia_id = $1", "p.status = $2", "a.deleted_at IS NULL"}
	args := []interface{}{academiaID, models.PresencaPendente}

	if filter.TurmaID != "" {
		where = append(where, fmt.Sprintf("a.turma_id = $%d", len(args)+1))
		args = append(args, filter.TurmaID)
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("a.data_inicio >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("a.data_inicio < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	query := fmt.Sprintf(`SELECT p.id, p.aluno_id, aluno.nome_completo AS aluno_nome,
	p.aula_id, t.nome AS turma_nome, a.data_inicio, p.origem, p.status
FROM presencas p
JOIN aulas a ON a.id = p.aula_id
JOIN turmas t ON t.id = a.turma_id
JOIN usuarios aluno ON aluno.id = p.aluno_id
WHERE %s
ORDER BY a.data_inicio ASC`, strings.Join(where, " AND "))

	var rows []models.PresencaPendenteRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list presencas pendentes: %w", err)
	}
	return rows, nil
}

// Decide moves one record out of PENDENTE, recording the audit trail. The
// status guard in the predicate makes concurrent decisions lose cleanly.
func (r *PresencaRepository) Decide(ctx context.Context, id, academiaID string, status models.PresencaStatus, actorID string, note *string) (*models.Presenca, error) {
	query := fmt.Sprintf(`UPDATE presencas
SET status = $1, decidido_em = now(), decidido_por = $2, decisao_observacao = $3
WHERE id = $4 AND academia_id = $5 AND status = $6
RETURNING %s`, presencaColumns)

	var p models.Presenca
	err := r.db.GetContext(ctx, &p, query,
		status, actorID, note, id, academiaID, models.PresencaPendente)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("decide presenca: %w", err)
	}
	return &p, nil
}

// PresencaEstado is the minimal row used to classify ids before a batch
// decision.
type PresencaEstado struct {
	ID     string                `db:"id"`
	Status models.PresencaStatus `db:"status"`
}

// SelectForDecision returns id and status for the given ids within the
// tenant. Ids missing from the result either do not exist or belong to
// another academy.
func (r *PresencaRepository) SelectForDecision(ctx context.Context, academiaID string, ids []string) ([]PresencaEstado, error) {
	query := `SELECT id, status FROM presencas WHERE academia_id = $1 AND id = ANY($2)`
	var rows []PresencaEstado
	if err := r.db.SelectContext(ctx, &rows, query, academiaID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("select presencas for decision: %w", err)
	}
	return rows, nil
}

// DecideBatch applies one decision to every id still PENDENTE, in a single
// statement. Returns the ids actually updated.
func (r *PresencaRepository) DecideBatch(ctx context.Context, academiaID string, ids []string, status models.PresencaStatus, actorID string) ([]string, error) {
	query := `UPDATE presencas
SET status = $1, decidido_em = now(), decidido_por = $2
WHERE academia_id = $3 AND id = ANY($4) AND status = $5
RETURNING id`
	var updated []string
	if err := r.db.SelectContext(ctx, &updated, query,
		status, actorID, academiaID, pq.Array(ids), models.PresencaPendente); err != nil {
		return nil, fmt.Errorf("decide presencas batch: %w", err)
	}
	return updated, nil
}

// UpdateStatus is the direct staff override, bypassing the pending guard.
func (r *PresencaRepository) UpdateStatus(ctx context.Context, id, academiaID string, status models.PresencaStatus, actorID string) (*models.Presenca, error) {
	query := fmt.Sprintf(`UPDATE presencas SET status = $1, registrado_por = $2
WHERE id = $3 AND academia_id = $4
RETURNING %s`, presencaColumns)

	var p models.Presenca
	err := r.db.GetContext(ctx, &p, query, status, actorID, id, academiaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("update presenca status: %w", err)
	}
	return &p, nil
}

// History returns the student's attendance entries within [from, to), newest
// class first.
func (r *PresencaRepository) History(ctx context.Context, academiaID, alunoID string, from, to time.Time) ([]models.PresencaHistoricoRow, error) {
	query := `SELECT p.id, p.aula_id, a.data_inicio, t.nome AS turma_nome,
	tt.nome AS tipo_treino, p.status, p.origem, p.criado_em
FROM presencas p
JOIN aulas a ON a.id = p.aula_id
JOIN turmas t ON t.id = a.turma_id
LEFT JOIN tipos_treino tt ON tt.id = t.tipo_treino_id
WHERE p.academia_id = $1 AND p.aluno_id = $2
  AND a.data_inicio >= $3 AND a.data_inicio < $4
ORDER BY a.data_inicio DESC`
	var rows []models.PresencaHistoricoRow
	if err := r.db.SelectContext(ctx, &rows, query, academiaID, alunoID, from, to); err != nil {
		return nil, fmt.Errorf("list presenca history: %w", err)
	}
	return rows, nil
}

// ListByAula returns every record of one instance, for the attendance sheet.
func (r *PresencaRepository) ListByAula(ctx context.Context, academiaID, aulaID string) ([]models.PresencaAulaRow, error) {
	query := `SELECT p.id, p.aluno_id, aluno.nome_completo AS aluno_nome,
	p.status, p.origem, p.criado_em
FROM presencas p
JOIN usuarios aluno ON aluno.id = p.aluno_id
WHERE p.academia_id = $1 AND p.aula_id = $2
ORDER BY aluno.nome_completo ASC`
	var rows []models.PresencaAulaRow
	if err := r.db.SelectContext(ctx, &rows, query, academiaID, aulaID); err != nil {
		return nil, fmt.Errorf("list presencas by aula: %w", err)
	}
	return rows, nil
}
