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
)

// Reason codes carried on check-in failures.
const (
	CodeQRInvalido       = "QR_INVALIDO"
	CodeQRExpirado       = "QR_EXPIRADO"
	CodeCheckinDuplicado = "CHECKIN_DUPLICADO"
	CodeAulaCancelada    = "AULA_CANCELADA"
)

// CheckinTipo selects the intake path.
type CheckinTipo string

const (
	CheckinManual CheckinTipo = "MANUAL"
	CheckinQR     CheckinTipo = "QR"
)

type checkinAulaReader interface {
	FindByID(ctx context.Context, id, academiaID string, includeDeleted bool) (*models.AulaDetail, error)
	ListDisponiveis(ctx context.Context, academiaID, alunoID string, from, to time.Time) ([]models.CheckinDisponivel, error)
}

type checkinPresencaRepository interface {
	Create(ctx context.Context, p *models.Presenca) error
	ExistsForAula(ctx context.Context, academiaID, aulaID, alunoID string) (bool, error)
}

type matriculaReader interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	HasActiveMatricula(ctx context.Context, academiaID, alunoID string) (bool, error)
}

type checkinCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CheckinNotifier receives recorded check-ins for fire-and-forget delivery.
type CheckinNotifier interface {
	NotifyCheckin(p models.Presenca, turmaNome string)
}

// CreateCheckinRequest is the student check-in payload.
type CreateCheckinRequest struct {
	AulaID  string      `json:"aulaId" validate:"required,uuid4"`
	Tipo    CheckinTipo `json:"tipo" validate:"required,oneof=MANUAL QR"`
	QRToken string      `json:"qrToken" validate:"omitempty"`
}

// CheckinService handles student-facing class listings and check-in intake.
type CheckinService struct {
	aulas      checkinAulaReader
	presencas  checkinPresencaRepository
	matriculas matriculaReader
	academias  timezoneReader
	cache      checkinCache
	notifier   CheckinNotifier
	cacheTTL   time.Duration
	defaultTZ  string
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCheckinService constructs CheckinService.
func NewCheckinService(aulas checkinAulaReader, presencas checkinPresencaRepository, matriculas matriculaReader, academias timezoneReader, cache checkinCache, notifier CheckinNotifier, cacheTTL time.Duration, defaultTZ string, validate *validator.Validate, logger *zap.Logger) *CheckinService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckinService{
		aulas:      aulas,
		presencas:  presencas,
		matriculas: matriculas,
		academias:  academias,
		cache:      cache,
		notifier:   notifier,
		cacheTTL:   cacheTTL,
		defaultTZ:  defaultTZ,
		validator:  validate,
		logger:     logger,
	}
}

func checkinCacheKey(academiaID, alunoID, day string) string {
	return fmt.Sprintf("checkin:disponiveis:%s:%s:%s", academiaID, alunoID, day)
}

func checkinCachePattern(academiaID string) string {
	return fmt.Sprintf("checkin:disponiveis:%s:*", academiaID)
}

// ensureMatriculaAtiva gates the student-facing endpoints. Unknown users map
// to not found, known users without an active enrollment to forbidden.
func (s *CheckinService) ensureMatriculaAtiva(ctx context.Context, academiaID, alunoID string) error {
	enrolled, err := s.matriculas.HasActiveMatricula(ctx, academiaID, alunoID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check matricula")
	}
	if enrolled {
		return nil
	}
	userExists, err := s.matriculas.UserExists(ctx, alunoID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check aluno")
	}
	if !userExists {
		return appErrors.Clone(appErrors.ErrNotFound, "aluno nao encontrado")
	}
	return appErrors.Clone(appErrors.ErrForbidden, "aluno sem matricula ativa nesta academia")
}

// ListDisponiveis returns today's non-cancelled classes for the student, each
// flagged with whether they already checked in. The student must hold an
// active matricula.
func (s *CheckinService) ListDisponiveis(ctx context.Context, academiaID, alunoID string) ([]models.CheckinDisponivel, error) {
	if err := s.ensureMatriculaAtiva(ctx, academiaID, alunoID); err != nil {
		return nil, err
	}

	tz, err := s.academias.Timezone(ctx, academiaID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academia timezone")
	}
	if tz == "" {
		tz = s.defaultTZ
	}
	loc, err := timewindow.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	bounds := timewindow.TodayBounds(loc)
	key := checkinCacheKey(academiaID, alunoID, bounds.StartUTC.Format(timewindow.DateLayout))

	if s.cache != nil {
		var cached []models.CheckinDisponivel
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("checkin cache read failed", zap.Error(err))
		}
	}

	disponiveis, err := s.aulas.ListDisponiveis(ctx, academiaID, alunoID, bounds.StartUTC, bounds.EndUTC)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list aulas disponiveis")
	}
	if disponiveis == nil {
		disponiveis = []models.CheckinDisponivel{}
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, key, disponiveis, s.cacheTTL); err != nil {
			s.logger.Warn("checkin cache write failed", zap.Error(err))
		}
	}
	return disponiveis, nil
}

// Create records a student check-in. QR check-ins land as PRESENTE, manual
// ones as PENDENTE awaiting staff review.
func (s *CheckinService) Create(ctx context.Context, academiaID, alunoID string, req CreateCheckinRequest) (*models.Presenca, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checkin payload")
	}
	if req.Tipo == CheckinQR && req.QRToken == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "qrToken obrigatorio para checkin via QR")
	}

	if err := s.ensureMatriculaAtiva(ctx, academiaID, alunoID); err != nil {
		return nil, err
	}

	aula, err := s.aulas.FindByID(ctx, req.AulaID, academiaID, false)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aula nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aula")
	}
	if aula.Status == models.AulaCancelada {
		return nil, appErrors.WithCode(appErrors.ErrUnprocessable, CodeAulaCancelada, "aula cancelada nao aceita checkin")
	}

	exists, err := s.presencas.ExistsForAula(ctx, academiaID, req.AulaID, alunoID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check presenca")
	}
	if exists {
		return nil, appErrors.WithCode(appErrors.ErrUnprocessable, CodeCheckinDuplicado, "checkin ja registrado para esta aula")
	}

	status := models.PresencaPendente
	origem := models.OrigemManual
	if req.Tipo == CheckinQR {
		if aula.QRToken == nil || *aula.QRToken != req.QRToken {
			return nil, appErrors.WithCode(appErrors.ErrUnprocessable, CodeQRInvalido, "qr code invalido")
		}
		if aula.QRExpiresAt == nil || !aula.QRExpiresAt.After(time.Now()) {
			return nil, appErrors.WithCode(appErrors.ErrUnprocessable, CodeQRExpirado, "qr code expirado")
		}
		status = models.PresencaPresente
		origem = models.OrigemQRCode
	}

	presenca := &models.Presenca{
		AcademiaID:    academiaID,
		AulaID:        req.AulaID,
		AlunoID:       alunoID,
		Status:        status,
		Origem:        origem,
		RegistradoPor: &alunoID,
	}
	if err := s.presencas.Create(ctx, presenca); err != nil {
		if err == repository.ErrDuplicate {
			return nil, appErrors.WithCode(appErrors.ErrUnprocessable, CodeCheckinDuplicado, "checkin ja registrado para esta aula")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create presenca")
	}

	if s.notifier != nil {
		s.notifier.NotifyCheckin(*presenca, aula.TurmaNome)
	}
	return presenca, nil
}
