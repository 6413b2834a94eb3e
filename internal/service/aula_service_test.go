package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitsync/academia-api/internal/models"
	"github.com/fitsync/academia-api/internal/repository"
	appErrors "github.com/fitsync/academia-api/pkg/errors"
)

type mockAulaRepo struct {
	aula       *models.AulaDetail
	findErr    error
	existsAt   bool
	startTimes []time.Time
	// bulkInserted overrides the BulkInsert return when >= 0.
	bulkInserted int

	bulk          []models.Aula
	created       *models.Aula
	lastUpdate    repository.AulaUpdate
	lastStatus    models.AulaStatus
	lastQRToken   string
	lastQRExpires time.Time
	terminalCalls int
	setQRCalls    int
}

func newMockAulaRepo(aula *models.AulaDetail) *mockAulaRepo {
	return &mockAulaRepo{aula: aula, bulkInserted: -1}
}

func (m *mockAulaRepo) List(_ context.Context, _ string, _ models.AulaFilter) ([]models.AulaDetail, error) {
	if m.aula == nil {
		return []models.AulaDetail{}, nil
	}
	return []models.AulaDetail{*m.aula}, nil
}

func (m *mockAulaRepo) FindByID(_ context.Context, _, _ string, _ bool) (*models.AulaDetail, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.aula == nil {
		return nil, sql.ErrNoRows
	}
	return m.aula, nil
}

func (m *mockAulaRepo) Create(_ context.Context, aula *models.Aula) error {
	aula.ID = testAulaID
	m.created = aula
	return nil
}

func (m *mockAulaRepo) ExistsAt(_ context.Context, _, _ string, _ time.Time, _ string) (bool, error) {
	return m.existsAt, nil
}

func (m *mockAulaRepo) ListStartTimes(_ context.Context, _, _ string, _, _ time.Time) ([]time.Time, error) {
	return m.startTimes, nil
}

func (m *mockAulaRepo) BulkInsert(_ context.Context, aulas []models.Aula) (int, error) {
	m.bulk = aulas
	if m.bulkInserted >= 0 {
		return m.bulkInserted, nil
	}
	return len(aulas), nil
}

func (m *mockAulaRepo) Update(_ context.Context, _, _ string, upd repository.AulaUpdate) error {
	m.lastUpdate = upd
	return nil
}

func (m *mockAulaRepo) SetQRCode(_ context.Context, _, _, token string, expiresAt time.Time) error {
	m.setQRCalls++
	m.lastQRToken = token
	m.lastQRExpires = expiresAt
	return nil
}

func (m *mockAulaRepo) SetTerminalStatus(_ context.Context, _, _ string, status models.AulaStatus) error {
	m.terminalCalls++
	m.lastStatus = status
	if m.aula != nil {
		m.aula.Status = status
	}
	return nil
}

func (m *mockAulaRepo) SoftDelete(_ context.Context, _, _ string) error {
	return nil
}

func (m *mockAulaRepo) Restore(_ context.Context, _, _ string) error {
	return nil
}

type stubTurmaReader struct {
	turma *models.Turma
	err   error
}

func (s *stubTurmaReader) FindByID(_ context.Context, _, _ string, _ bool) (*models.Turma, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.turma == nil {
		return nil, sql.ErrNoRows
	}
	return s.turma, nil
}

type stubTZ struct {
	tz  string
	err error
}

func (s *stubTZ) Timezone(_ context.Context, _ string) (string, error) {
	return s.tz, s.err
}

type stubCache struct {
	store    map[string][]byte
	patterns []string
}

func (s *stubCache) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCache) DeleteByPattern(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func agendadaAula() *models.AulaDetail {
	start := time.Date(2025, 1, 6, 22, 0, 0, 0, time.UTC)
	return &models.AulaDetail{
		Aula: models.Aula{
			ID:         testAulaID,
			AcademiaID: testAcademiaID,
			TurmaID:    testTurmaID,
			DataInicio: start,
			DataFim:    start.Add(time.Hour),
			Status:     models.AulaAgendada,
		},
		TurmaNome:  "Jiu-Jitsu Adulto",
		TipoTreino: "Jiu-Jitsu",
	}
}

func newAulaServiceForTest(repo *mockAulaRepo, turmas *stubTurmaReader, cache *stubCache) *AulaService {
	var inv cacheInvalidator
	if cache != nil {
		inv = cache
	}
	return NewAulaService(repo, turmas, &stubTZ{tz: "UTC"}, inv, 5*time.Minute, "UTC", nil, zap.NewNop())
}

func TestAulaServiceCreateRejectsNonPositiveDuration(t *testing.T) {
	repo := newMockAulaRepo(nil)
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	start := time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), testAcademiaID, CreateAulaRequest{
		TurmaID:    testTurmaID,
		DataInicio: start,
		DataFim:    start,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAulaServiceCreateStartCollision(t *testing.T) {
	repo := newMockAulaRepo(nil)
	repo.existsAt = true
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	start := time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), testAcademiaID, CreateAulaRequest{
		TurmaID:    testTurmaID,
		DataInicio: start,
		DataFim:    start.Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, models.MotivoAulaDuplicada, appErrors.FromError(err).Code)
}

func TestAulaServiceCreateWithInitialStatus(t *testing.T) {
	repo := newMockAulaRepo(agendadaAula())
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	status := models.AulaEncerrada
	start := time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), testAcademiaID, CreateAulaRequest{
		TurmaID:    testTurmaID,
		DataInicio: start,
		DataFim:    start.Add(time.Hour),
		Status:     &status,
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.AulaEncerrada, repo.created.Status)
}

func TestAulaServiceCreateRejectsInvalidStatus(t *testing.T) {
	repo := newMockAulaRepo(nil)
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	status := models.AulaStatus("PAUSADA")
	start := time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), testAcademiaID, CreateAulaRequest{
		TurmaID:    testTurmaID,
		DataInicio: start,
		DataFim:    start.Add(time.Hour),
		Status:     &status,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Nil(t, repo.created)
}

func aulaWithLiveQR() *models.AulaDetail {
	aula := agendadaAula()
	tok := "tok-live"
	exp := time.Now().Add(3 * time.Minute)
	aula.QRToken = &tok
	aula.QRExpiresAt = &exp
	return aula
}

func TestAulaServiceGetRedactsQRForNonStaff(t *testing.T) {
	repo := newMockAulaRepo(aulaWithLiveQR())
	svc := newAulaServiceForTest(repo, &stubTurmaReader{}, nil)

	got, err := svc.Get(context.Background(), testAulaID, testAcademiaID, false)
	require.NoError(t, err)
	assert.Nil(t, got.QRToken)
	assert.Nil(t, got.QRExpiresAt)

	payload, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "qrToken")

	staffView, err := svc.Get(context.Background(), testAulaID, testAcademiaID, true)
	require.NoError(t, err)
	require.NotNil(t, staffView.QRToken)
	assert.Equal(t, "tok-live", *staffView.QRToken)
}

func TestAulaServiceListTodayStripsQRToken(t *testing.T) {
	repo := newMockAulaRepo(aulaWithLiveQR())
	svc := newAulaServiceForTest(repo, &stubTurmaReader{}, nil)

	aulas, err := svc.ListToday(context.Background(), testAcademiaID)
	require.NoError(t, err)
	require.Len(t, aulas, 1)
	assert.Nil(t, aulas[0].QRToken)
	assert.Nil(t, aulas[0].QRExpiresAt)
}

func TestAulaServiceCreateBatchGeneratesFromTemplate(t *testing.T) {
	repo := newMockAulaRepo(nil)
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	// Jan 6 2025 is a Monday; the template meets Mon and Wed at 19:00.
	result, err := svc.CreateBatch(context.Background(), testAcademiaID, CreateAulasLoteRequest{
		TurmaID:    testTurmaID,
		DataInicio: "2025-01-06",
		DataFim:    "2025-01-10",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Criadas)
	assert.Equal(t, 0, result.Ignoradas)
	assert.Empty(t, result.Conflitos)

	require.Len(t, repo.bulk, 2)
	assert.Equal(t, time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC), repo.bulk[0].DataInicio)
	assert.Equal(t, time.Date(2025, 1, 8, 19, 0, 0, 0, time.UTC), repo.bulk[1].DataInicio)
	assert.Equal(t, 90*time.Minute, repo.bulk[0].DataFim.Sub(repo.bulk[0].DataInicio))
	assert.Equal(t, models.AulaAgendada, repo.bulk[0].Status)
}

func TestAulaServiceCreateBatchSkipsExistingStarts(t *testing.T) {
	repo := newMockAulaRepo(nil)
	repo.startTimes = []time.Time{
		time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 8, 19, 0, 0, 0, time.UTC),
	}
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	result, err := svc.CreateBatch(context.Background(), testAcademiaID, CreateAulasLoteRequest{
		TurmaID:    testTurmaID,
		DataInicio: "2025-01-06",
		DataFim:    "2025-01-10",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Criadas)
	assert.Equal(t, 2, result.Ignoradas)
	require.Len(t, result.Conflitos, 2)
	assert.Equal(t, models.MotivoAulaDuplicada, result.Conflitos[0].Motivo)
	assert.Equal(t, time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC), result.Conflitos[0].DataInicio)
}

func TestAulaServiceCreateBatchCountsConstraintSkips(t *testing.T) {
	repo := newMockAulaRepo(nil)
	repo.bulkInserted = 1
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	result, err := svc.CreateBatch(context.Background(), testAcademiaID, CreateAulasLoteRequest{
		TurmaID:    testTurmaID,
		DataInicio: "2025-01-06",
		DataFim:    "2025-01-10",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Criadas)
	assert.Equal(t, 1, result.Ignoradas)
}

func TestAulaServiceCreateBatchRequiresWeekdays(t *testing.T) {
	turma := activeTurma()
	turma.DiasSemana = nil
	svc := newAulaServiceForTest(newMockAulaRepo(nil), &stubTurmaReader{turma: turma}, nil)

	_, err := svc.CreateBatch(context.Background(), testAcademiaID, CreateAulasLoteRequest{
		TurmaID:    testTurmaID,
		DataInicio: "2025-01-06",
		DataFim:    "2025-01-10",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAulaServiceCreateBatchRejectsInvertedRange(t *testing.T) {
	svc := newAulaServiceForTest(newMockAulaRepo(nil), &stubTurmaReader{turma: activeTurma()}, nil)

	_, err := svc.CreateBatch(context.Background(), testAcademiaID, CreateAulasLoteRequest{
		TurmaID:    testTurmaID,
		DataInicio: "2025-01-10",
		DataFim:    "2025-01-06",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAulaServiceIssueQRCode(t *testing.T) {
	repo := newMockAulaRepo(agendadaAula())
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	before := time.Now().UTC()
	qr, err := svc.IssueQRCode(context.Background(), testAulaID, testAcademiaID)
	require.NoError(t, err)
	assert.Len(t, qr.QRToken, 64)
	assert.Equal(t, qr.QRToken, repo.lastQRToken)
	assert.False(t, qr.ExpiresAt.Before(before.Add(5*time.Minute)))
	assert.Equal(t, "Jiu-Jitsu Adulto", qr.Turma)
}

func TestAulaServiceIssueQRCodeRequiresAgendada(t *testing.T) {
	aula := agendadaAula()
	aula.Status = models.AulaEncerrada
	repo := newMockAulaRepo(aula)
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	_, err := svc.IssueQRCode(context.Background(), testAulaID, testAcademiaID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnprocessable))
	assert.Equal(t, 0, repo.setQRCalls)
}

func TestAulaServiceEndIdempotent(t *testing.T) {
	aula := agendadaAula()
	aula.Status = models.AulaEncerrada
	repo := newMockAulaRepo(aula)
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	ended, err := svc.End(context.Background(), testAulaID, testAcademiaID)
	require.NoError(t, err)
	assert.Equal(t, models.AulaEncerrada, ended.Status)
	assert.Equal(t, 0, repo.terminalCalls)
}

func TestAulaServiceEndCancelledConflict(t *testing.T) {
	aula := agendadaAula()
	aula.Status = models.AulaCancelada
	repo := newMockAulaRepo(aula)
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	_, err := svc.End(context.Background(), testAulaID, testAcademiaID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, 0, repo.terminalCalls)
}

func TestAulaServiceCancelIdempotent(t *testing.T) {
	aula := agendadaAula()
	aula.Status = models.AulaCancelada
	repo := newMockAulaRepo(aula)
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, nil)

	cancelled, err := svc.Cancel(context.Background(), testAulaID, testAcademiaID)
	require.NoError(t, err)
	assert.Equal(t, models.AulaCancelada, cancelled.Status)
	assert.Equal(t, 0, repo.terminalCalls)
}

func TestAulaServiceCancelInvalidatesCheckinCache(t *testing.T) {
	repo := newMockAulaRepo(agendadaAula())
	cache := &stubCache{}
	svc := newAulaServiceForTest(repo, &stubTurmaReader{turma: activeTurma()}, cache)

	_, err := svc.Cancel(context.Background(), testAulaID, testAcademiaID)
	require.NoError(t, err)
	assert.Equal(t, models.AulaCancelada, repo.lastStatus)
	require.Len(t, cache.patterns, 1)
	assert.Equal(t, fmt.Sprintf("checkin:disponiveis:%s:*", testAcademiaID), cache.patterns[0])
}
