package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitsync/academia-api/internal/models"
	"github.com/fitsync/academia-api/internal/repository"
	appErrors "github.com/fitsync/academia-api/pkg/errors"
	"github.com/fitsync/academia-api/pkg/timewindow"
	"github.com/fitsync/academia-api/pkg/token"
)

// defaultAulaDuration applies when neither the request nor the template
// provides an explicit duration.
const defaultAulaDuration = 90 * time.Minute

type aulaRepository interface {
	List(ctx context.Context, academiaID string, filter models.AulaFilter) ([]models.AulaDetail, error)
	FindByID(ctx context.Context, id, academiaID string, includeDeleted bool) (*models.AulaDetail, error)
	Create(ctx context.Context, aula *models.Aula) error
	ExistsAt(ctx context.Context, academiaID, turmaID string, start time.Time, excludeID string) (bool, error)
	ListStartTimes(ctx context.Context, academiaID, turmaID string, from, to time.Time) ([]time.Time, error)
	BulkInsert(ctx context.Context, aulas []models.Aula) (int, error)
	Update(ctx context.Context, id, academiaID string, upd repository.AulaUpdate) error
	SetQRCode(ctx context.Context, id, academiaID, token string, expiresAt time.Time) error
	SetTerminalStatus(ctx context.Context, id, academiaID string, status models.AulaStatus) error
	SoftDelete(ctx context.Context, id, academiaID string) error
	Restore(ctx context.Context, id, academiaID string) error
}

type turmaReader interface {
	FindByID(ctx context.Context, id, academiaID string, includeDeleted bool) (*models.Turma, error)
}

type timezoneReader interface {
	Timezone(ctx context.Context, academiaID string) (string, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateAulaRequest describes single-instance creation. Status defaults to
// AGENDADA when omitted.
type CreateAulaRequest struct {
	TurmaID    string             `json:"turmaId" validate:"required,uuid4"`
	DataInicio time.Time          `json:"dataInicio" validate:"required"`
	DataFim    time.Time          `json:"dataFim" validate:"required"`
	Status     *models.AulaStatus `json:"status"`
}

// CreateAulasLoteRequest describes batch generation over a date range.
type CreateAulasLoteRequest struct {
	TurmaID        string  `json:"turmaId" validate:"required,uuid4"`
	DataInicio     string  `json:"dataInicio" validate:"required"`
	DataFim        string  `json:"dataFim" validate:"required"`
	DiasSemana     []int64 `json:"diasSemana" validate:"omitempty,min=1,dive,gte=0,lte=6"`
	Horario        string  `json:"horario" validate:"omitempty,len=5"`
	DuracaoMinutos int     `json:"duracaoMinutos" validate:"omitempty,gt=0,lte=720"`
}

// UpdateAulaRequest describes a partial instance update.
type UpdateAulaRequest struct {
	DataInicio *time.Time         `json:"dataInicio"`
	DataFim    *time.Time         `json:"dataFim"`
	Status     *models.AulaStatus `json:"status"`
}

// AulaListQuery carries the raw listing filters from the wire.
type AulaListQuery struct {
	TurmaID        string
	Status         string
	From           string
	To             string
	IncludeDeleted bool
	OnlyDeleted    bool
}

// AulaService orchestrates class instance scheduling.
type AulaService struct {
	repo      aulaRepository
	turmas    turmaReader
	academias timezoneReader
	cache     cacheInvalidator
	qrTTL     time.Duration
	defaultTZ string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAulaService constructs AulaService.
func NewAulaService(repo aulaRepository, turmas turmaReader, academias timezoneReader, cache cacheInvalidator, qrTTL time.Duration, defaultTZ string, validate *validator.Validate, logger *zap.Logger) *AulaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if qrTTL <= 0 {
		qrTTL = 5 * time.Minute
	}
	return &AulaService{
		repo:      repo,
		turmas:    turmas,
		academias: academias,
		cache:     cache,
		qrTTL:     qrTTL,
		defaultTZ: defaultTZ,
		validator: validate,
		logger:    logger,
	}
}

// location resolves the academy timezone, falling back to the service
// default when the academy has none configured.
func (s *AulaService) location(ctx context.Context, academiaID string) (*time.Location, error) {
	tz, err := s.academias.Timezone(ctx, academiaID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academia timezone")
	}
	if tz == "" {
		tz = s.defaultTZ
	}
	loc, err := timewindow.LoadLocation(tz)
	if err != nil {
		s.logger.Warn("invalid academia timezone, using UTC", zap.String("tz", tz))
		return time.UTC, nil
	}
	return loc, nil
}

// List returns instances matching the query. Deleted views require staff.
func (s *AulaService) List(ctx context.Context, academiaID string, query AulaListQuery, staff bool) ([]models.AulaDetail, error) {
	if (query.IncludeDeleted || query.OnlyDeleted) && !staff {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "apenas equipe pode listar aulas removidas")
	}

	filter := models.AulaFilter{
		TurmaID:        query.TurmaID,
		IncludeDeleted: query.IncludeDeleted,
		OnlyDeleted:    query.OnlyDeleted,
	}
	if query.Status != "" {
		status := models.AulaStatus(query.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "status invalido")
		}
		filter.Status = &status
	}
	if query.From != "" || query.To != "" {
		loc, err := s.location(ctx, academiaID)
		if err != nil {
			return nil, err
		}
		bounds, err := timewindow.RangeBounds(query.From, query.To, loc)
		if err != nil {
			return nil, err
		}
		if !bounds.StartUTC.IsZero() {
			filter.StartFrom = &bounds.StartUTC
		}
		if !bounds.EndUTC.IsZero() {
			filter.StartBefore = &bounds.EndUTC
		}
	}

	aulas, err := s.repo.List(ctx, academiaID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list aulas")
	}
	return redactQRList(aulas), nil
}

// ListToday returns the instances of the academy's current local day.
func (s *AulaService) ListToday(ctx context.Context, academiaID string) ([]models.AulaDetail, error) {
	loc, err := s.location(ctx, academiaID)
	if err != nil {
		return nil, err
	}
	bounds := timewindow.TodayBounds(loc)
	aulas, err := s.repo.List(ctx, academiaID, models.AulaFilter{
		StartFrom:   &bounds.StartUTC,
		StartBefore: &bounds.EndUTC,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list aulas de hoje")
	}
	return redactQRList(aulas), nil
}

// Get returns one instance. QR credentials are only exposed to staff; a
// student holding the live token could record a PRESENTE check-in without
// being in the room.
func (s *AulaService) Get(ctx context.Context, id, academiaID string, staff bool) (*models.AulaDetail, error) {
	aula, err := s.repo.FindByID(ctx, id, academiaID, false)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aula nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aula")
	}
	if !staff {
		clone := *aula
		clone.QRToken = nil
		clone.QRExpiresAt = nil
		return &clone, nil
	}
	return aula, nil
}

// redactQRList strips QR credentials from listing payloads. Listings never
// carry the token regardless of role; staff reads it via Get or a fresh
// issue.
func redactQRList(aulas []models.AulaDetail) []models.AulaDetail {
	for i := range aulas {
		aulas[i].QRToken = nil
		aulas[i].QRExpiresAt = nil
	}
	return aulas
}

// Create schedules a single instance from a template.
func (s *AulaService) Create(ctx context.Context, academiaID string, req CreateAulaRequest) (*models.AulaDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid aula payload")
	}
	if !req.DataFim.After(req.DataInicio) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dataFim deve ser maior que dataInicio")
	}
	status := models.AulaAgendada
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "status invalido")
		}
		status = *req.Status
	}
	if _, err := s.turmas.FindByID(ctx, req.TurmaID, academiaID, false); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}
	exists, err := s.repo.ExistsAt(ctx, academiaID, req.TurmaID, req.DataInicio.UTC(), "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check horario")
	}
	if exists {
		return nil, appErrors.WithCode(appErrors.ErrConflict, models.MotivoAulaDuplicada, "ja existe aula desta turma neste horario")
	}

	aula := &models.Aula{
		AcademiaID: academiaID,
		TurmaID:    req.TurmaID,
		DataInicio: req.DataInicio.UTC(),
		DataFim:    req.DataFim.UTC(),
		Status:     status,
	}
	if err := s.repo.Create(ctx, aula); err != nil {
		if err == repository.ErrDuplicate {
			return nil, appErrors.WithCode(appErrors.ErrConflict, models.MotivoAulaDuplicada, "ja existe aula desta turma neste horario")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create aula")
	}
	s.invalidateCheckinCache(ctx, academiaID)
	return s.Get(ctx, aula.ID, academiaID, false)
}

// CreateBatch materializes instances over a closed date range following the
// template's recurrence rule. Candidates colliding with existing instances
// are skipped and reported, never failed.
func (s *AulaService) CreateBatch(ctx context.Context, academiaID string, req CreateAulasLoteRequest) (*models.AulaLoteResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lote payload")
	}

	fromDay, err := timewindow.ParseDate(req.DataInicio, "dataInicio")
	if err != nil {
		return nil, err
	}
	toDay, err := timewindow.ParseDate(req.DataFim, "dataFim")
	if err != nil {
		return nil, err
	}
	if toDay.Before(fromDay) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dataFim deve ser maior ou igual a dataInicio")
	}

	turma, err := s.turmas.FindByID(ctx, req.TurmaID, academiaID, false)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}

	weekdays := req.DiasSemana
	if len(weekdays) == 0 {
		weekdays = turma.DiasSemana
	}
	if len(weekdays) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "turma nao possui dias da semana definidos")
	}
	clock := req.Horario
	if clock == "" {
		clock = turma.HorarioPadrao
	}
	duration := defaultAulaDuration
	if req.DuracaoMinutos > 0 {
		duration = time.Duration(req.DuracaoMinutos) * time.Minute
	}

	loc, err := s.location(ctx, academiaID)
	if err != nil {
		return nil, err
	}

	selected := make(map[time.Weekday]struct{}, len(weekdays))
	for _, d := range weekdays {
		selected[time.Weekday(d)] = struct{}{}
	}

	var candidates []time.Time
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		local := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
		if _, ok := selected[local.Weekday()]; !ok {
			continue
		}
		start, err := timewindow.LocalStart(day, clock, loc)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, start)
	}

	result := &models.AulaLoteResult{Conflitos: []models.AulaLoteConflito{}}
	if len(candidates) == 0 {
		return result, nil
	}

	rangeEnd := candidates[len(candidates)-1].Add(time.Second)
	existing, err := s.repo.ListStartTimes(ctx, academiaID, req.TurmaID, candidates[0], rangeEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check horarios existentes")
	}
	taken := make(map[int64]struct{}, len(existing))
	for _, t := range existing {
		taken[t.Unix()] = struct{}{}
	}

	var toInsert []models.Aula
	for _, start := range candidates {
		if _, ok := taken[start.Unix()]; ok {
			result.Ignoradas++
			result.Conflitos = append(result.Conflitos, models.AulaLoteConflito{
				DataInicio: start,
				Motivo:     models.MotivoAulaDuplicada,
			})
			continue
		}
		toInsert = append(toInsert, models.Aula{
			AcademiaID: academiaID,
			TurmaID:    req.TurmaID,
			DataInicio: start,
			DataFim:    start.Add(duration),
			Status:     models.AulaAgendada,
		})
	}

	inserted, err := s.repo.BulkInsert(ctx, toInsert)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create aulas em lote")
	}
	result.Criadas = inserted
	// Rows the storage constraint rejected between the pre-check and the
	// insert count as skipped, same as the pre-checked ones.
	if skipped := len(toInsert) - inserted; skipped > 0 {
		result.Ignoradas += skipped
	}
	if inserted > 0 {
		s.invalidateCheckinCache(ctx, academiaID)
	}
	return result, nil
}

// Update applies a partial update, re-validating ordering and the start-time
// uniqueness against the merged values.
func (s *AulaService) Update(ctx context.Context, id, academiaID string, req UpdateAulaRequest) (*models.AulaDetail, error) {
	current, err := s.Get(ctx, id, academiaID, false)
	if err != nil {
		return nil, err
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status invalido")
	}

	start := current.DataInicio
	end := current.DataFim
	if req.DataInicio != nil {
		start = req.DataInicio.UTC()
	}
	if req.DataFim != nil {
		end = req.DataFim.UTC()
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dataFim deve ser maior que dataInicio")
	}
	if req.DataInicio != nil && !start.Equal(current.DataInicio) {
		exists, err := s.repo.ExistsAt(ctx, academiaID, current.TurmaID, start, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check horario")
		}
		if exists {
			return nil, appErrors.WithCode(appErrors.ErrConflict, models.MotivoAulaDuplicada, "ja existe aula desta turma neste horario")
		}
	}

	upd := repository.AulaUpdate{Status: req.Status}
	if req.DataInicio != nil {
		upd.DataInicio = &start
	}
	if req.DataFim != nil {
		upd.DataFim = &end
	}
	if !upd.Empty() {
		if err := s.repo.Update(ctx, id, academiaID, upd); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "aula nao encontrada")
			}
			if err == repository.ErrDuplicate {
				return nil, appErrors.WithCode(appErrors.ErrConflict, models.MotivoAulaDuplicada, "ja existe aula desta turma neste horario")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update aula")
		}
		s.invalidateCheckinCache(ctx, academiaID)
	}
	return s.Get(ctx, id, academiaID, false)
}

// IssueQRCode attaches a fresh short-lived token to the instance, replacing
// any previous one.
func (s *AulaService) IssueQRCode(ctx context.Context, id, academiaID string) (*models.AulaQRCode, error) {
	aula, err := s.Get(ctx, id, academiaID, false)
	if err != nil {
		return nil, err
	}
	if aula.Status != models.AulaAgendada {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, fmt.Sprintf("aula %s nao aceita qr code", aula.Status))
	}

	qr, err := token.NewQRToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate qr token")
	}
	expiresAt := time.Now().UTC().Add(s.qrTTL)
	if err := s.repo.SetQRCode(ctx, id, academiaID, qr, expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aula nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist qr token")
	}
	return &models.AulaQRCode{
		AulaID:    id,
		QRToken:   qr,
		ExpiresAt: expiresAt,
		Turma:     aula.TurmaNome,
		Horario:   aula.DataInicio,
	}, nil
}

// Cancel moves the instance to CANCELADA, clearing QR credentials.
// Cancelling an already cancelled instance is an idempotent success.
func (s *AulaService) Cancel(ctx context.Context, id, academiaID string) (*models.AulaDetail, error) {
	aula, err := s.Get(ctx, id, academiaID, false)
	if err != nil {
		return nil, err
	}
	if aula.Status == models.AulaEncerrada {
		return nil, appErrors.Clone(appErrors.ErrConflict, "aula encerrada nao pode ser cancelada")
	}
	if aula.Status == models.AulaCancelada {
		return aula, nil
	}
	if err := s.repo.SetTerminalStatus(ctx, id, academiaID, models.AulaCancelada); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel aula")
	}
	s.invalidateCheckinCache(ctx, academiaID)
	return s.Get(ctx, id, academiaID, false)
}

// End moves the instance to ENCERRADA, clearing QR credentials. Ending an
// already ended instance returns the current state without error; ending a
// cancelled one is a conflict.
func (s *AulaService) End(ctx context.Context, id, academiaID string) (*models.AulaDetail, error) {
	aula, err := s.Get(ctx, id, academiaID, false)
	if err != nil {
		return nil, err
	}
	if aula.Status == models.AulaCancelada {
		return nil, appErrors.Clone(appErrors.ErrConflict, "aula cancelada nao pode ser encerrada")
	}
	if aula.Status == models.AulaEncerrada {
		return aula, nil
	}
	if err := s.repo.SetTerminalStatus(ctx, id, academiaID, models.AulaEncerrada); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end aula")
	}
	s.invalidateCheckinCache(ctx, academiaID)
	return s.Get(ctx, id, academiaID, false)
}

// SoftDelete removes the instance from active views and clears QR state.
func (s *AulaService) SoftDelete(ctx context.Context, id, academiaID string) error {
	if _, err := s.Get(ctx, id, academiaID, false); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, academiaID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "aula nao encontrada")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete aula")
	}
	s.invalidateCheckinCache(ctx, academiaID)
	return nil
}

// Restore brings a soft-deleted instance back after re-checking the
// start-time uniqueness.
func (s *AulaService) Restore(ctx context.Context, id, academiaID string) (*models.AulaDetail, error) {
	aula, err := s.repo.FindByID(ctx, id, academiaID, true)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aula nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aula")
	}
	if aula.DeletedAt == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "aula nao esta removida")
	}
	exists, err := s.repo.ExistsAt(ctx, academiaID, aula.TurmaID, aula.DataInicio, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check horario")
	}
	if exists {
		return nil, appErrors.WithCode(appErrors.ErrConflict, models.MotivoAulaDuplicada, "ja existe aula desta turma neste horario")
	}
	if err := s.repo.Restore(ctx, id, academiaID); err != nil {
		if err == repository.ErrDuplicate {
			return nil, appErrors.WithCode(appErrors.ErrConflict, models.MotivoAulaDuplicada, "ja existe aula desta turma neste horario")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore aula")
	}
	s.invalidateCheckinCache(ctx, academiaID)
	return s.Get(ctx, id, academiaID, false)
}

func (s *AulaService) invalidateCheckinCache(ctx context.Context, academiaID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, checkinCachePattern(academiaID)); err != nil {
		s.logger.Warn("failed to invalidate checkin cache", zap.String("academia_id", academiaID), zap.Error(err))
	}
}
