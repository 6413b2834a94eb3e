package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fitsync/academia-api/internal/models"
	"github.com/fitsync/academia-api/internal/repository"
	appErrors "github.com/fitsync/academia-api/pkg/errors"
	"github.com/fitsync/academia-api/pkg/export"
	"github.com/fitsync/academia-api/pkg/timewindow"
)

// historyDefaultWindow is used when a history query carries no explicit
// range.
const historyDefaultWindow = 30 * 24 * time.Hour

type presencaRepository interface {
	FindByID(ctx context.Context, id string) (*models.Presenca, error)
	ListPendentes(ctx context.Context, academiaID string, filter repository.PendenteFilter) ([]models.PresencaPendenteRow, error)
	Decide(ctx context.Context, id, academiaID string, status models.PresencaStatus, actorID string, note *string) (*models.Presenca, error)
	SelectForDecision(ctx context.Context, academiaID string, ids []string) ([]repository.PresencaEstado, error)
	DecideBatch(ctx context.Context, academiaID string, ids []string, status models.PresencaStatus, actorID string) ([]string, error)
	UpdateStatus(ctx context.Context, id, academiaID string, status models.PresencaStatus, actorID string) (*models.Presenca, error)
	History(ctx context.Context, academiaID, alunoID string, from, to time.Time) ([]models.PresencaHistoricoRow, error)
	ListByAula(ctx context.Context, academiaID, aulaID string) ([]models.PresencaAulaRow, error)
}

type presencaAulaReader interface {
	FindByID(ctx context.Context, id, academiaID string, includeDeleted bool) (*models.AulaDetail, error)
}

type vinculoReader interface {
	HasVinculo(ctx context.Context, academiaID, userID string) (bool, error)
}

// SheetExporter renders an attendance sheet to a downloadable format.
type SheetExporter interface {
	Render(sheet export.Sheet) ([]byte, error)
}

// DecidePresencaRequest is a single staff ruling.
type DecidePresencaRequest struct {
	Decisao    models.Decisao `json:"decisao" validate:"required,oneof=APROVAR FALTA JUSTIFICAR"`
	Observacao *string        `json:"observacao" validate:"omitempty,max=500"`
}

// DecideLoteRequest applies one ruling to several records.
type DecideLoteRequest struct {
	IDs     []string       `json:"ids" validate:"dive,uuid4"`
	Decisao models.Decisao `json:"decisao" validate:"required,oneof=APROVAR FALTA JUSTIFICAR"`
}

// PendenteQuery carries the raw pending-list filters from the wire.
type PendenteQuery struct {
	TurmaID string
	From    string
	To      string
}

// HistoricoQuery carries the raw history filters from the wire.
type HistoricoQuery struct {
	From string
	To   string
}

// PresencaService runs the attendance decision workflows.
type PresencaService struct {
	repo       presencaRepository
	aulas      presencaAulaReader
	matriculas vinculoReader
	academias  timezoneReader
	csv        SheetExporter
	pdf        SheetExporter
	defaultTZ  string
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPresencaService constructs PresencaService.
func NewPresencaService(repo presencaRepository, aulas presencaAulaReader, matriculas vinculoReader, academias timezoneReader, csv, pdf SheetExporter, defaultTZ string, validate *validator.Validate, logger *zap.Logger) *PresencaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresencaService{
		repo:       repo,
		aulas:      aulas,
		matriculas: matriculas,
		academias:  academias,
		csv:        csv,
		pdf:        pdf,
		defaultTZ:  defaultTZ,
		validator:  validate,
		logger:     logger,
	}
}

func (s *PresencaService) location(ctx context.Context, academiaID string) *time.Location {
	tz, err := s.academias.Timezone(ctx, academiaID)
	if err != nil || tz == "" {
		tz = s.defaultTZ
	}
	loc, err := timewindow.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ListPendentes returns pending records for staff review, defaulting to the
// academy's current local day.
func (s *PresencaService) ListPendentes(ctx context.Context, academiaID string, query PendenteQuery) ([]models.PresencaPendenteRow, error) {
	loc := s.location(ctx, academiaID)
	bounds, err := timewindow.RangeBounds(query.From, query.To, loc)
	if err != nil {
		return nil, err
	}

	filter := repository.PendenteFilter{TurmaID: query.TurmaID}
	if !bounds.StartUTC.IsZero() {
		filter.From = &bounds.StartUTC
	}
	if !bounds.EndUTC.IsZero() {
		filter.To = &bounds.EndUTC
	}

	pendentes, err := s.repo.ListPendentes(ctx, academiaID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list presencas pendentes")
	}
	if pendentes == nil {
		pendentes = []models.PresencaPendenteRow{}
	}
	return pendentes, nil
}

// load fetches the record and classifies missing versus wrong tenant. The
// decision flow is the one place that distinguishes the two, since the actor
// is already known to belong to the tenant.
func (s *PresencaService) load(ctx context.Context, id, academiaID string) (*models.Presenca, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "presenca nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load presenca")
	}
	if p.AcademiaID != academiaID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "presenca pertence a outra academia")
	}
	return p, nil
}

// Decide applies one ruling to a pending record.
func (s *PresencaService) Decide(ctx context.Context, id, academiaID, actorID string, req DecidePresencaRequest) (*models.Presenca, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decisao payload")
	}
	status, ok := req.Decisao.Outcome()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decisao invalida")
	}

	current, err := s.load(ctx, id, academiaID)
	if err != nil {
		return nil, err
	}
	if current.Status.Decided() {
		return nil, appErrors.WithCode(appErrors.ErrConflict, models.MotivoJaDecidida, "presenca ja foi decidida")
	}

	decided, err := s.repo.Decide(ctx, id, academiaID, status, actorID, req.Observacao)
	if err != nil {
		// The status guard lost to a concurrent decision.
		if err == sql.ErrNoRows {
			return nil, appErrors.WithCode(appErrors.ErrConflict, models.MotivoJaDecidida, "presenca ja foi decidida")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide presenca")
	}
	return decided, nil
}

// DecideBatch applies one ruling to every still-pending id and reports the
// rest with a reason code. An empty id list is a zero-result success.
func (s *PresencaService) DecideBatch(ctx context.Context, academiaID, actorID string, req DecideLoteRequest) (*models.DecisaoLoteResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decisao payload")
	}
	status, ok := req.Decisao.Outcome()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decisao invalida")
	}

	result := &models.DecisaoLoteResult{
		Atualizados: []string{},
		Ignorados:   []models.DecisaoIgnorada{},
	}
	if len(req.IDs) == 0 {
		return result, nil
	}
	result.Processados = len(req.IDs)

	estados, err := s.repo.SelectForDecision(ctx, academiaID, req.IDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load presencas")
	}
	byID := make(map[string]models.PresencaStatus, len(estados))
	for _, e := range estados {
		byID[e.ID] = e.Status
	}

	var eligible []string
	for _, id := range req.IDs {
		st, found := byID[id]
		switch {
		case !found:
			result.Ignorados = append(result.Ignorados, models.DecisaoIgnorada{ID: id, Motivo: models.MotivoNaoEncontrada})
		case st.Decided():
			result.Ignorados = append(result.Ignorados, models.DecisaoIgnorada{ID: id, Motivo: models.MotivoJaDecidida})
		default:
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return result, nil
	}

	updated, err := s.repo.DecideBatch(ctx, academiaID, eligible, status, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide presencas")
	}
	result.Atualizados = updated

	// Ids that slipped to decided between the select and the update.
	if len(updated) < len(eligible) {
		done := make(map[string]struct{}, len(updated))
		for _, id := range updated {
			done[id] = struct{}{}
		}
		for _, id := range eligible {
			if _, ok := done[id]; !ok {
				result.Ignorados = append(result.Ignorados, models.DecisaoIgnorada{ID: id, Motivo: models.MotivoJaDecidida})
			}
		}
	}
	return result, nil
}

// UpdateStatus is the direct staff override outside the decision workflow.
func (s *PresencaService) UpdateStatus(ctx context.Context, id, academiaID, actorID string, status models.PresencaStatus) (*models.Presenca, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status invalido")
	}
	if _, err := s.load(ctx, id, academiaID); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateStatus(ctx, id, academiaID, status, actorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "presenca nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update presenca")
	}
	return updated, nil
}

// Historico returns the student's attendance entries, defaulting to the last
// thirty days.
func (s *PresencaService) Historico(ctx context.Context, academiaID, alunoID string, query HistoricoQuery) ([]models.PresencaHistoricoRow, error) {
	vinculado, err := s.matriculas.HasVinculo(ctx, academiaID, alunoID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check vinculo do aluno")
	}
	if !vinculado {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "aluno nao encontrado")
	}

	loc := s.location(ctx, academiaID)

	var from, to time.Time
	if query.From == "" && query.To == "" {
		now := time.Now().UTC()
		from = now.Add(-historyDefaultWindow)
		to = now.Add(24 * time.Hour)
	} else {
		bounds, err := timewindow.RangeBounds(query.From, query.To, loc)
		if err != nil {
			return nil, err
		}
		from = bounds.StartUTC
		to = bounds.EndUTC
		if to.IsZero() {
			to = time.Now().UTC().Add(24 * time.Hour)
		}
		if from.IsZero() {
			from = to.Add(-historyDefaultWindow)
		}
	}

	rows, err := s.repo.History(ctx, academiaID, alunoID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list historico")
	}
	if rows == nil {
		rows = []models.PresencaHistoricoRow{}
	}
	return rows, nil
}

// ListByAula returns the attendance sheet rows of one instance.
func (s *PresencaService) ListByAula(ctx context.Context, academiaID, aulaID string) ([]models.PresencaAulaRow, error) {
	if _, err := s.aulas.FindByID(ctx, aulaID, academiaID, false); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aula nao encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aula")
	}
	rows, err := s.repo.ListByAula(ctx, academiaID, aulaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list presencas da aula")
	}
	if rows == nil {
		rows = []models.PresencaAulaRow{}
	}
	return rows, nil
}

// ExportAula renders the attendance sheet of one instance as CSV or PDF.
func (s *PresencaService) ExportAula(ctx context.Context, academiaID, aulaID, formato string) ([]byte, string, error) {
	var exporter SheetExporter
	var contentType string
	switch formato {
	case "csv", "":
		exporter, contentType = s.csv, "text/csv"
	case "pdf":
		exporter, contentType = s.pdf, "application/pdf"
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "formato invalido, esperado csv ou pdf")
	}
	if exporter == nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnprocessable, "exportacao desabilitada")
	}

	aula, err := s.aulas.FindByID(ctx, aulaID, academiaID, false)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "aula nao encontrada")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aula")
	}
	rows, err := s.repo.ListByAula(ctx, academiaID, aulaID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list presencas da aula")
	}

	loc := s.location(ctx, academiaID)
	sheet := export.Sheet{
		TurmaNome:  aula.TurmaNome,
		TipoTreino: aula.TipoTreino,
		DataInicio: aula.DataInicio.In(loc).Format("02/01/2006 15:04"),
	}
	if aula.InstrutorNome != nil {
		sheet.Instrutor = *aula.InstrutorNome
	}
	for _, row := range rows {
		sheet.Rows = append(sheet.Rows, export.SheetRow{
			AlunoNome: row.AlunoNome,
			Status:    string(row.Status),
			Origem:    string(row.Origem),
			CriadoEm:  row.CriadoEm.In(loc).Format("02/01/2006 15:04"),
		})
	}

	payload, err := exporter.Render(sheet)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return payload, contentType, nil
}
