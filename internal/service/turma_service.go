package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fitsync/academia-api/internal/models"
	"github.com/fitsync/academia-api/internal/repository"
	appErrors "github.com/fitsync/academia-api/pkg/errors"
)

type turmaRepository interface {
	List(ctx context.Context, academiaID string, filter models.TurmaFilter) ([]models.Turma, error)
	FindByID(ctx context.Context, id, academiaID string, includeDeleted bool) (*models.Turma, error)
	Create(ctx context.Context, turma *models.Turma) error
	Update(ctx context.Context, id, academiaID string, upd repository.TurmaUpdate) error
	SoftDelete(ctx context.Context, id, academiaID, deletedBy string) error
	Restore(ctx context.Context, id, academiaID string) error
	ExistsActiveByName(ctx context.Context, academiaID, nome, excludeID string) (bool, error)
	HasFutureAulas(ctx context.Context, turmaID, academiaID string, ref time.Time) (bool, error)
	TipoTreinoExists(ctx context.Context, id, academiaID string) (bool, error)
	InstrutorIsStaff(ctx context.Context, userID, academiaID string) (bool, error)
}

// CreateTurmaRequest describes template creation.
type CreateTurmaRequest struct {
	Nome              string  `json:"nome" validate:"required,min=2,max=120"`
	TipoTreinoID      string  `json:"tipoTreinoId" validate:"required,uuid4"`
	DiasSemana        []int64 `json:"diasSemana" validate:"required,min=1,dive,gte=0,lte=6"`
	HorarioPadrao     string  `json:"horarioPadrao" validate:"required,len=5"`
	InstrutorPadraoID *string `json:"instrutorPadraoId" validate:"omitempty,uuid4"`
}

// UpdateTurmaRequest describes a partial template update.
type UpdateTurmaRequest struct {
	Nome              *string  `json:"nome" validate:"omitempty,min=2,max=120"`
	TipoTreinoID      *string  `json:"tipoTreinoId" validate:"omitempty,uuid4"`
	DiasSemana        *[]int64 `json:"diasSemana" validate:"omitempty,min=1,dive,gte=0,lte=6"`
	HorarioPadrao     *string  `json:"horarioPadrao" validate:"omitempty,len=5"`
	InstrutorPadraoID *string  `json:"instrutorPadraoId" validate:"omitempty,uuid4"`
}

// TurmaService orchestrates class template workflows.
type TurmaService struct {
	repo      turmaRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTurmaService constructs TurmaService.
func NewTurmaService(repo turmaRepository, validate *validator.Validate, logger *zap.Logger) *TurmaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurmaService{repo: repo, validator: validate, logger: logger}
}

// List returns the academy's templates. Deleted views require staff.
func (s *TurmaService) List(ctx context.Context, academiaID string, filter models.TurmaFilter, staff bool) ([]models.Turma, error) {
	if (filter.IncludeDeleted || filter.OnlyDeleted) && !staff {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "apenas equipe pode listar turmas removidas")
	}
	turmas, err := s.repo.List(ctx, academiaID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list turmas")
	}
	return turmas, nil
}

// Get returns one template.
func (s *TurmaService) Get(ctx context.Context, id, academiaID string) (*models.Turma, error) {
	turma, err := s.repo.FindByID(ctx, id, academiaID, false)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}
	return turma, nil
}

// Create validates the discipline and instructor refs before inserting.
func (s *TurmaService) Create(ctx context.Context, academiaID string, req CreateTurmaRequest) (*models.Turma, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid turma payload")
	}
	if err := s.checkRefs(ctx, academiaID, &req.TipoTreinoID, req.InstrutorPadraoID); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsActiveByName(ctx, academiaID, req.Nome, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate turma name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "ja existe turma ativa com esse nome")
	}

	turma := &models.Turma{
		AcademiaID:        academiaID,
		Nome:              req.Nome,
		TipoTreinoID:      req.TipoTreinoID,
		DiasSemana:        pq.Int64Array(req.DiasSemana),
		HorarioPadrao:     req.HorarioPadrao,
		InstrutorPadraoID: req.InstrutorPadraoID,
	}
	if err := s.repo.Create(ctx, turma); err != nil {
		if err == repository.ErrDuplicate {
			return nil, appErrors.Clone(appErrors.ErrConflict, "ja existe turma ativa com esse nome")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create turma")
	}
	return s.Get(ctx, turma.ID, academiaID)
}

// Update applies a partial update. An empty payload returns the current
// state untouched.
func (s *TurmaService) Update(ctx context.Context, id, academiaID string, req UpdateTurmaRequest) (*models.Turma, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid turma payload")
	}
	if _, err := s.Get(ctx, id, academiaID); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, academiaID, req.TipoTreinoID, req.InstrutorPadraoID); err != nil {
		return nil, err
	}
	if req.Nome != nil {
		exists, err := s.repo.ExistsActiveByName(ctx, academiaID, *req.Nome, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate turma name")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "ja existe turma ativa com esse nome")
		}
	}

	upd := repository.TurmaUpdate{
		Nome:              req.Nome,
		TipoTreinoID:      req.TipoTreinoID,
		HorarioPadrao:     req.HorarioPadrao,
		InstrutorPadraoID: req.InstrutorPadraoID,
	}
	if req.DiasSemana != nil {
		dias := pq.Int64Array(*req.DiasSemana)
		upd.DiasSemana = &dias
	}
	if !upd.Empty() {
		if err := s.repo.Update(ctx, id, academiaID, upd); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "turma nao encontrada")
			}
			if err == repository.ErrDuplicate {
				return nil, appErrors.Clone(appErrors.ErrConflict, "ja existe turma ativa com esse nome")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update turma")
		}
	}
	return s.Get(ctx, id, academiaID)
}

// SoftDelete removes the template from active views. Templates with
// upcoming instances cannot be removed.
func (s *TurmaService) SoftDelete(ctx context.Context, id, academiaID, actorID string) error {
	if _, err := s.Get(ctx, id, academiaID); err != nil {
		return err
	}
	hasFuture, err := s.repo.HasFutureAulas(ctx, id, academiaID, time.Now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check aulas futuras")
	}
	if hasFuture {
		return appErrors.Clone(appErrors.ErrConflict, "turma possui aulas futuras agendadas")
	}
	if err := s.repo.SoftDelete(ctx, id, academiaID, actorID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "turma nao encontrada")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete turma")
	}
	return nil
}

// Restore brings a soft-deleted template back, re-validating the active name
// uniqueness.
func (s *TurmaService) Restore(ctx context.Context, id, academiaID string) (*models.Turma, error) {
	turma, err := s.repo.FindByID(ctx, id, academiaID, true)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}
	if turma.DeletedAt == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "turma nao esta removida")
	}
	exists, err := s.repo.ExistsActiveByName(ctx, academiaID, turma.Nome, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate turma name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "ja existe turma ativa com esse nome")
	}
	if err := s.repo.Restore(ctx, id, academiaID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore turma")
	}
	return s.Get(ctx, id, academiaID)
}

func (s *TurmaService) checkRefs(ctx context.Context, academiaID string, tipoTreinoID, instrutorID *string) error {
	if tipoTreinoID != nil {
		ok, err := s.repo.TipoTreinoExists(ctx, *tipoTreinoID, academiaID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check tipo de treino")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, "tipo de treino nao encontrado")
		}
	}
	if instrutorID != nil {
		ok, err := s.repo.InstrutorIsStaff(ctx, *instrutorID, academiaID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check instrutor")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, "instrutor invalido para esta academia")
		}
	}
	return nil
}
