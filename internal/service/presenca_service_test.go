package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitsync/academia-api/internal/models"
	"github.com/fitsync/academia-api/internal/repository"
	appErrors "github.com/fitsync/academia-api/pkg/errors"
	"github.com/fitsync/academia-api/pkg/export"
)

const (
	presID1 = "0e1f2a3b-7d9c-4a1e-8b3c-5d6e7f8a9b0c"
	presID2 = "1a2b3c4d-8e0f-4b2d-9c4e-6f7a8b9c0d1e"
	presID3 = "2b3c4d5e-9f1a-4c3e-8d5f-7a8b9c0d1e2f"
)

type mockPresencaRepo struct {
	record    *models.Presenca
	findErr   error
	decideErr error
	estados   []repository.PresencaEstado
	updated   []string

	decideCalls      int
	selectCalls      int
	decideBatchCalls int
	lastStatus       models.PresencaStatus
	lastNote         *string
	byAulaRows       []models.PresencaAulaRow
}

func (m *mockPresencaRepo) FindByID(_ context.Context, _ string) (*models.Presenca, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.record == nil {
		return nil, sql.ErrNoRows
	}
	return m.record, nil
}

func (m *mockPresencaRepo) ListPendentes(_ context.Context, _ string, _ repository.PendenteFilter) ([]models.PresencaPendenteRow, error) {
	return nil, nil
}

func (m *mockPresencaRepo) Decide(_ context.Context, id, _ string, status models.PresencaStatus, actorID string, note *string) (*models.Presenca, error) {
	m.decideCalls++
	m.lastStatus = status
	m.lastNote = note
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	now := time.Now()
	return &models.Presenca{
		ID:          id,
		AcademiaID:  testAcademiaID,
		Status:      status,
		DecididoEm:  &now,
		DecididoPor: &actorID,
	}, nil
}

func (m *mockPresencaRepo) SelectForDecision(_ context.Context, _ string, _ []string) ([]repository.PresencaEstado, error) {
	m.selectCalls++
	return m.estados, nil
}

func (m *mockPresencaRepo) DecideBatch(_ context.Context, _ string, _ []string, status models.PresencaStatus, _ string) ([]string, error) {
	m.decideBatchCalls++
	m.lastStatus = status
	return m.updated, nil
}

func (m *mockPresencaRepo) UpdateStatus(_ context.Context, id, _ string, status models.PresencaStatus, _ string) (*models.Presenca, error) {
	return &models.Presenca{ID: id, AcademiaID: testAcademiaID, Status: status}, nil
}

func (m *mockPresencaRepo) History(_ context.Context, _, _ string, _, _ time.Time) ([]models.PresencaHistoricoRow, error) {
	return nil, nil
}

func (m *mockPresencaRepo) ListByAula(_ context.Context, _, _ string) ([]models.PresencaAulaRow, error) {
	return m.byAulaRows, nil
}

type stubExporter struct {
	sheet   export.Sheet
	payload []byte
}

func (s *stubExporter) Render(sheet export.Sheet) ([]byte, error) {
	s.sheet = sheet
	return s.payload, nil
}

func pendentePresenca() *models.Presenca {
	return &models.Presenca{
		ID:         presID1,
		AcademiaID: testAcademiaID,
		AulaID:     testAulaID,
		AlunoID:    testAlunoID,
		Status:     models.PresencaPendente,
		Origem:     models.OrigemManual,
	}
}

type stubVinculos struct {
	vinculado bool
}

func (s *stubVinculos) HasVinculo(_ context.Context, _, _ string) (bool, error) {
	return s.vinculado, nil
}

func newPresencaServiceForTest(repo *mockPresencaRepo, aulas *mockCheckinAulas, csv, pdf SheetExporter) *PresencaService {
	return NewPresencaService(repo, aulas, &stubVinculos{vinculado: true}, &stubTZ{tz: "UTC"}, csv, pdf, "UTC", nil, zap.NewNop())
}

func TestPresencaServiceHistoricoUnknownAluno(t *testing.T) {
	svc := NewPresencaService(&mockPresencaRepo{}, &mockCheckinAulas{}, &stubVinculos{}, &stubTZ{tz: "UTC"}, nil, nil, "UTC", nil, zap.NewNop())

	_, err := svc.Historico(context.Background(), testAcademiaID, testAlunoID, HistoricoQuery{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestPresencaServiceHistoricoDefaultWindow(t *testing.T) {
	svc := newPresencaServiceForTest(&mockPresencaRepo{}, &mockCheckinAulas{}, nil, nil)

	rows, err := svc.Historico(context.Background(), testAcademiaID, testAlunoID, HistoricoQuery{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
}

func TestPresencaServiceDecideAprovar(t *testing.T) {
	repo := &mockPresencaRepo{record: pendentePresenca()}
	svc := newPresencaServiceForTest(repo, &mockCheckinAulas{}, nil, nil)

	note := "chegou atrasado"
	decided, err := svc.Decide(context.Background(), presID1, testAcademiaID, testActorID, DecidePresencaRequest{
		Decisao:    models.DecisaoAprovar,
		Observacao: &note,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PresencaPresente, decided.Status)
	assert.Equal(t, models.PresencaPresente, repo.lastStatus)
	require.NotNil(t, repo.lastNote)
	assert.Equal(t, note, *repo.lastNote)
}

func TestPresencaServiceDecideAlreadyDecided(t *testing.T) {
	record := pendentePresenca()
	record.Status = models.PresencaPresente
	repo := &mockPresencaRepo{record: record}
	svc := newPresencaServiceForTest(repo, &mockCheckinAulas{}, nil, nil)

	_, err := svc.Decide(context.Background(), presID1, testAcademiaID, testActorID, DecidePresencaRequest{Decisao: models.DecisaoFalta})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, models.MotivoJaDecidida, appErrors.FromError(err).Code)
	assert.Equal(t, 0, repo.decideCalls)
}

func TestPresencaServiceDecideWrongAcademia(t *testing.T) {
	record := pendentePresenca()
	record.AcademiaID = "99f0a3d2-8c4b-4e6f-9a1d-2b3c4d5e6f99"
	repo := &mockPresencaRepo{record: record}
	svc := newPresencaServiceForTest(repo, &mockCheckinAulas{}, nil, nil)

	_, err := svc.Decide(context.Background(), presID1, testAcademiaID, testActorID, DecidePresencaRequest{Decisao: models.DecisaoAprovar})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestPresencaServiceDecideNotFound(t *testing.T) {
	repo := &mockPresencaRepo{}
	svc := newPresencaServiceForTest(repo, &mockCheckinAulas{}, nil, nil)

	_, err := svc.Decide(context.Background(), presID1, testAcademiaID, testActorID, DecidePresencaRequest{Decisao: models.DecisaoAprovar})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestPresencaServiceDecideConcurrentLoss(t *testing.T) {
	repo := &mockPresencaRepo{record: pendentePresenca(), decideErr: sql.ErrNoRows}
	svc := newPresencaServiceForTest(repo, &mockCheckinAulas{}, nil, nil)

	_, err := svc.Decide(context.Background(), presID1, testAcademiaID, testActorID, DecidePresencaRequest{Decisao: models.DecisaoJustificar})
	require.Error(t, err)
	assert.Equal(t, models.MotivoJaDecidida, appErrors.FromError(err).Code)
}

func TestPresencaServiceDecideBatchEmptyIsNoop(t *testing.T) {
	repo := &mockPresencaRepo{}
	svc := newPresencaServiceForTest(repo, &mockCheckinAulas{}, nil, nil)

	result, err := svc.DecideBatch(context.Background(), testAcademiaID, testActorID, DecideLoteRequest{Decisao: models.DecisaoAprovar})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processados)
	assert.Empty(t, result.Atualizados)
	assert.Empty(t, result.Ignorados)
	assert.Equal(t, 0, repo.selectCalls)
	assert.Equal(t, 0, repo.decideBatchCalls)
}

func TestPresencaServiceDecideBatchMixedOutcomes(t *testing.T) {
	repo := &mockPresencaRepo{
		estados: []repository.PresencaEstado{
			{ID: presID1, Status: models.PresencaPendente},
			{ID: presID2, Status: models.PresencaFalta},
		},
		updated: []string{presID1},
	}
	svc := newPresencaServiceForTest(repo, &mockCheckinAulas{}, nil, nil)

	result, err := svc.DecideBatch(context.Background(), testAcademiaID, testActorID, DecideLoteRequest{
		IDs:     []string{presID1, presID2, presID3},
		Decisao: models.DecisaoAprovar,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processados)
	assert.Equal(t, []string{presID1}, result.Atualizados)
	assert.ElementsMatch(t, []models.DecisaoIgnorada{
		{ID: presID2, Motivo: models.MotivoJaDecidida},
		{ID: presID3, Motivo: models.MotivoNaoEncontrada},
	}, result.Ignorados)
}

func TestPresencaServiceDecideBatchRaceLeftovers(t *testing.T) {
	repo := &mockPresencaRepo{
		estados: []repository.PresencaEstado{
			{ID: presID1, Status: models.PresencaPendente},
			{ID: presID2, Status: models.PresencaPendente},
		},
		updated: []string{presID1},
	}
	svc := newPresencaServiceForTest(repo, &mockCheckinAulas{}, nil, nil)

	result, err := svc.DecideBatch(context.Background(), testAcademiaID, testActorID, DecideLoteRequest{
		IDs:     []string{presID1, presID2},
		Decisao: models.DecisaoFalta,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{presID1}, result.Atualizados)
	assert.Equal(t, []models.DecisaoIgnorada{{ID: presID2, Motivo: models.MotivoJaDecidida}}, result.Ignorados)
	assert.Equal(t, models.PresencaFalta, repo.lastStatus)
}

func TestPresencaServiceUpdateStatusInvalid(t *testing.T) {
	svc := newPresencaServiceForTest(&mockPresencaRepo{record: pendentePresenca()}, &mockCheckinAulas{}, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), presID1, testAcademiaID, testActorID, models.PresencaStatus("TALVEZ"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestPresencaServiceUpdateStatusOverridesDecided(t *testing.T) {
	record := pendentePresenca()
	record.Status = models.PresencaFalta
	svc := newPresencaServiceForTest(&mockPresencaRepo{record: record}, &mockCheckinAulas{}, nil, nil)

	updated, err := svc.UpdateStatus(context.Background(), presID1, testAcademiaID, testActorID, models.PresencaAjustado)
	require.NoError(t, err)
	assert.Equal(t, models.PresencaAjustado, updated.Status)
}

func TestPresencaServiceExportAulaCSV(t *testing.T) {
	instrutor := "Carlos"
	aula := agendadaAula()
	aula.InstrutorNome = &instrutor
	repo := &mockPresencaRepo{byAulaRows: []models.PresencaAulaRow{{
		AlunoNome: "Maria Silva",
		Status:    models.PresencaPresente,
		Origem:    models.OrigemQRCode,
		CriadoEm:  time.Date(2025, 1, 6, 22, 5, 0, 0, time.UTC),
	}}}
	csv := &stubExporter{payload: []byte("aluno,status\n")}
	svc := newPresencaServiceForTest(repo, &mockCheckinAulas{aula: aula}, csv, nil)

	payload, contentType, err := svc.ExportAula(context.Background(), testAcademiaID, testAulaID, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, []byte("aluno,status\n"), payload)
	assert.Equal(t, "Jiu-Jitsu Adulto", csv.sheet.TurmaNome)
	assert.Equal(t, "Carlos", csv.sheet.Instrutor)
	require.Len(t, csv.sheet.Rows, 1)
	assert.Equal(t, "Maria Silva", csv.sheet.Rows[0].AlunoNome)
	assert.Equal(t, "PRESENTE", csv.sheet.Rows[0].Status)
	assert.Equal(t, "06/01/2025 22:05", csv.sheet.Rows[0].CriadoEm)
}

func TestPresencaServiceExportAulaUnknownFormat(t *testing.T) {
	svc := newPresencaServiceForTest(&mockPresencaRepo{}, &mockCheckinAulas{}, &stubExporter{}, nil)

	_, _, err := svc.ExportAula(context.Background(), testAcademiaID, testAulaID, "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestPresencaServiceExportAulaDisabled(t *testing.T) {
	svc := newPresencaServiceForTest(&mockPresencaRepo{}, &mockCheckinAulas{}, nil, nil)

	_, _, err := svc.ExportAula(context.Background(), testAcademiaID, testAulaID, "csv")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnprocessable))
}
