package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitsync/academia-api/internal/models"
	"github.com/fitsync/academia-api/internal/repository"
	appErrors "github.com/fitsync/academia-api/pkg/errors"
)

type mockCheckinAulas struct {
	aula        *models.AulaDetail
	disponiveis []models.CheckinDisponivel
	listCalls   int
}

func (m *mockCheckinAulas) FindByID(_ context.Context, _, _ string, _ bool) (*models.AulaDetail, error) {
	if m.aula == nil {
		return nil, sql.ErrNoRows
	}
	return m.aula, nil
}

func (m *mockCheckinAulas) ListDisponiveis(_ context.Context, _, _ string, _, _ time.Time) ([]models.CheckinDisponivel, error) {
	m.listCalls++
	return m.disponiveis, nil
}

type mockCheckinPresencas struct {
	exists    bool
	createErr error
	created   *models.Presenca

	existsAcademiaID string
}

func (m *mockCheckinPresencas) Create(_ context.Context, p *models.Presenca) error {
	if m.createErr != nil {
		return m.createErr
	}
	p.ID = "f7d5b3a1-6e8c-4f0d-9a2b-4c5d6e7f8a9b"
	p.CriadoEm = time.Now()
	m.created = p
	return nil
}

func (m *mockCheckinPresencas) ExistsForAula(_ context.Context, academiaID, _, _ string) (bool, error) {
	m.existsAcademiaID = academiaID
	return m.exists, nil
}

type mockMatriculas struct {
	userExists bool
	active     bool
}

func (m *mockMatriculas) UserExists(_ context.Context, _ string) (bool, error) {
	return m.userExists, nil
}

func (m *mockMatriculas) HasActiveMatricula(_ context.Context, _, _ string) (bool, error) {
	return m.active, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	turmas []string
}

func (n *recordingNotifier) NotifyCheckin(_ models.Presenca, turmaNome string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.turmas = append(n.turmas, turmaNome)
}

func checkinAula(status models.AulaStatus, qrToken string, qrExpires time.Time) *models.AulaDetail {
	aula := agendadaAula()
	aula.Status = status
	if qrToken != "" {
		aula.QRToken = &qrToken
		aula.QRExpiresAt = &qrExpires
	}
	return aula
}

func newCheckinServiceForTest(aulas *mockCheckinAulas, presencas *mockCheckinPresencas, matriculas *mockMatriculas, cache *stubCache, notifier *recordingNotifier) *CheckinService {
	var c checkinCache
	if cache != nil {
		c = cache
	}
	var n CheckinNotifier
	if notifier != nil {
		n = notifier
	}
	return NewCheckinService(aulas, presencas, matriculas, &stubTZ{tz: "UTC"}, c, n, time.Minute, "UTC", nil, zap.NewNop())
}

func enrolledMatriculas() *mockMatriculas {
	return &mockMatriculas{userExists: true, active: true}
}

func TestCheckinServiceQRSuccess(t *testing.T) {
	aulas := &mockCheckinAulas{aula: checkinAula(models.AulaAgendada, "tok-valid", time.Now().Add(3*time.Minute))}
	presencas := &mockCheckinPresencas{}
	notifier := &recordingNotifier{}
	svc := newCheckinServiceForTest(aulas, presencas, enrolledMatriculas(), nil, notifier)

	p, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID:  testAulaID,
		Tipo:    CheckinQR,
		QRToken: "tok-valid",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PresencaPresente, p.Status)
	assert.Equal(t, models.OrigemQRCode, p.Origem)
	require.NotNil(t, p.RegistradoPor)
	assert.Equal(t, testAlunoID, *p.RegistradoPor)
	assert.Equal(t, []string{"Jiu-Jitsu Adulto"}, notifier.turmas)
}

func TestCheckinServiceManualLandsPendente(t *testing.T) {
	aulas := &mockCheckinAulas{aula: checkinAula(models.AulaAgendada, "", time.Time{})}
	presencas := &mockCheckinPresencas{}
	svc := newCheckinServiceForTest(aulas, presencas, enrolledMatriculas(), nil, nil)

	p, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID: testAulaID,
		Tipo:   CheckinManual,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PresencaPendente, p.Status)
	assert.Equal(t, models.OrigemManual, p.Origem)
}

func TestCheckinServiceQRRequiresToken(t *testing.T) {
	svc := newCheckinServiceForTest(&mockCheckinAulas{}, &mockCheckinPresencas{}, enrolledMatriculas(), nil, nil)

	_, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID: testAulaID,
		Tipo:   CheckinQR,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCheckinServiceQRWrongToken(t *testing.T) {
	aulas := &mockCheckinAulas{aula: checkinAula(models.AulaAgendada, "tok-valid", time.Now().Add(3*time.Minute))}
	svc := newCheckinServiceForTest(aulas, &mockCheckinPresencas{}, enrolledMatriculas(), nil, nil)

	_, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID:  testAulaID,
		Tipo:    CheckinQR,
		QRToken: "tok-other",
	})
	require.Error(t, err)
	assert.Equal(t, CodeQRInvalido, appErrors.FromError(err).Code)
}

func TestCheckinServiceQRExpired(t *testing.T) {
	aulas := &mockCheckinAulas{aula: checkinAula(models.AulaAgendada, "tok-valid", time.Now().Add(-time.Minute))}
	svc := newCheckinServiceForTest(aulas, &mockCheckinPresencas{}, enrolledMatriculas(), nil, nil)

	_, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID:  testAulaID,
		Tipo:    CheckinQR,
		QRToken: "tok-valid",
	})
	require.Error(t, err)
	assert.Equal(t, CodeQRExpirado, appErrors.FromError(err).Code)
}

func TestCheckinServiceAulaCancelada(t *testing.T) {
	aulas := &mockCheckinAulas{aula: checkinAula(models.AulaCancelada, "", time.Time{})}
	svc := newCheckinServiceForTest(aulas, &mockCheckinPresencas{}, enrolledMatriculas(), nil, nil)

	_, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID: testAulaID,
		Tipo:   CheckinManual,
	})
	require.Error(t, err)
	assert.Equal(t, CodeAulaCancelada, appErrors.FromError(err).Code)
}

func TestCheckinServiceDuplicatePreCheck(t *testing.T) {
	aulas := &mockCheckinAulas{aula: checkinAula(models.AulaAgendada, "", time.Time{})}
	presencas := &mockCheckinPresencas{exists: true}
	svc := newCheckinServiceForTest(aulas, presencas, enrolledMatriculas(), nil, nil)

	_, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID: testAulaID,
		Tipo:   CheckinManual,
	})
	require.Error(t, err)
	assert.Equal(t, CodeCheckinDuplicado, appErrors.FromError(err).Code)
	assert.Equal(t, testAcademiaID, presencas.existsAcademiaID)
}

func TestCheckinServiceDuplicateAtInsert(t *testing.T) {
	aulas := &mockCheckinAulas{aula: checkinAula(models.AulaAgendada, "", time.Time{})}
	presencas := &mockCheckinPresencas{createErr: repository.ErrDuplicate}
	svc := newCheckinServiceForTest(aulas, presencas, enrolledMatriculas(), nil, nil)

	_, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID: testAulaID,
		Tipo:   CheckinManual,
	})
	require.Error(t, err)
	assert.Equal(t, CodeCheckinDuplicado, appErrors.FromError(err).Code)
}

func TestCheckinServiceUnknownAluno(t *testing.T) {
	svc := newCheckinServiceForTest(&mockCheckinAulas{}, &mockCheckinPresencas{}, &mockMatriculas{}, nil, nil)

	_, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID: testAulaID,
		Tipo:   CheckinManual,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCheckinServiceSemMatriculaAtiva(t *testing.T) {
	svc := newCheckinServiceForTest(&mockCheckinAulas{}, &mockCheckinPresencas{}, &mockMatriculas{userExists: true}, nil, nil)

	_, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID: testAulaID,
		Tipo:   CheckinManual,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestCheckinServiceAulaNaoEncontrada(t *testing.T) {
	svc := newCheckinServiceForTest(&mockCheckinAulas{}, &mockCheckinPresencas{}, enrolledMatriculas(), nil, nil)

	_, err := svc.Create(context.Background(), testAcademiaID, testAlunoID, CreateCheckinRequest{
		AulaID: testAulaID,
		Tipo:   CheckinManual,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCheckinServiceListDisponiveisCaches(t *testing.T) {
	aulas := &mockCheckinAulas{disponiveis: []models.CheckinDisponivel{{
		AulaID:     testAulaID,
		TurmaNome:  "Jiu-Jitsu Adulto",
		StatusAula: models.AulaAgendada,
	}}}
	cache := &stubCache{}
	svc := newCheckinServiceForTest(aulas, &mockCheckinPresencas{}, enrolledMatriculas(), cache, nil)

	ctx := context.Background()
	first, err := svc.ListDisponiveis(ctx, testAcademiaID, testAlunoID)
	require.NoError(t, err)
	assert.Equal(t, 1, aulas.listCalls)

	second, err := svc.ListDisponiveis(ctx, testAcademiaID, testAlunoID)
	require.NoError(t, err)
	assert.Equal(t, 1, aulas.listCalls)
	assert.Equal(t, first, second)
}

func TestCheckinServiceListDisponiveisSemMatricula(t *testing.T) {
	aulas := &mockCheckinAulas{disponiveis: []models.CheckinDisponivel{{AulaID: testAulaID}}}
	svc := newCheckinServiceForTest(aulas, &mockCheckinPresencas{}, &mockMatriculas{userExists: true}, nil, nil)

	_, err := svc.ListDisponiveis(context.Background(), testAcademiaID, testAlunoID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Zero(t, aulas.listCalls)
}

func TestCheckinServiceListDisponiveisUnknownAluno(t *testing.T) {
	svc := newCheckinServiceForTest(&mockCheckinAulas{}, &mockCheckinPresencas{}, &mockMatriculas{}, nil, nil)

	_, err := svc.ListDisponiveis(context.Background(), testAcademiaID, testAlunoID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCheckinServiceListDisponiveisEmptyIsNotNil(t *testing.T) {
	svc := newCheckinServiceForTest(&mockCheckinAulas{}, &mockCheckinPresencas{}, enrolledMatriculas(), nil, nil)

	disponiveis, err := svc.ListDisponiveis(context.Background(), testAcademiaID, testAlunoID)
	require.NoError(t, err)
	assert.NotNil(t, disponiveis)
	assert.Empty(t, disponiveis)
}
