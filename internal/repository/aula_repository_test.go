package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/fitsync/academia-api/internal/models"
)

var aulaRowColumns = []string{
	"id", "academia_id", "turma_id", "data_inicio", "data_fim", "status",
	"qr_token", "qr_expires_at", "deleted_at",
	"turma_nome", "tipo_treino", "turma_horario_padrao", "turma_dias_semana",
	"instrutor_id", "instrutor_nome",
}

func TestAulaRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAulaRepository(db)

	start := time.Date(2025, 1, 6, 22, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(aulaRowColumns).
		AddRow("aula-1", "acad-1", "turma-1", start, start.Add(90*time.Minute),
			models.AulaAgendada, nil, nil, nil,
			"Jiu-Jitsu Adulto", "Jiu-Jitsu", "19:00", pq.Int64Array{1, 3}, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.id = $1 AND a.academia_id = $2")).
		WithArgs("aula-1", "acad-1").
		WillReturnRows(rows)

	aula, err := repo.FindByID(context.Background(), "aula-1", "acad-1", false)
	require.NoError(t, err)
	require.Equal(t, models.AulaAgendada, aula.Status)
	require.Equal(t, "Jiu-Jitsu Adulto", aula.TurmaNome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAulaRepositoryCreateStartCollision(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAulaRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO aulas")).
		WillReturnError(&pq.Error{Code: "23505"})

	start := time.Date(2025, 1, 6, 22, 0, 0, 0, time.UTC)
	err := repo.Create(context.Background(), &models.Aula{
		AcademiaID: "acad-1",
		TurmaID:    "turma-1",
		DataInicio: start,
		DataFim:    start.Add(time.Hour),
		Status:     models.AulaAgendada,
	})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAulaRepositoryExistsAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAulaRepository(db)

	start := time.Date(2025, 1, 6, 22, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("turma-1", "acad-1", start, "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsAt(context.Background(), "acad-1", "turma-1", start, "")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAulaRepositoryBulkInsertCountsSkips(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAulaRepository(db)

	start := time.Date(2025, 1, 6, 22, 0, 0, 0, time.UTC)
	aulas := []models.Aula{
		{ID: "aula-1", AcademiaID: "acad-1", TurmaID: "turma-1", DataInicio: start, DataFim: start.Add(time.Hour), Status: models.AulaAgendada},
		{ID: "aula-2", AcademiaID: "acad-1", TurmaID: "turma-1", DataInicio: start.AddDate(0, 0, 2), DataFim: start.AddDate(0, 0, 2).Add(time.Hour), Status: models.AulaAgendada},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO aulas")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("aula-1"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO aulas")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	inserted, err := repo.BulkInsert(context.Background(), aulas)
	require.NoError(t, err)
	require.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAulaRepositorySetTerminalStatusClearsQR(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAulaRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET status = $1, qr_token = NULL, qr_expires_at = NULL")).
		WithArgs(models.AulaEncerrada, "aula-1", "acad-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetTerminalStatus(context.Background(), "aula-1", "acad-1", models.AulaEncerrada)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAulaRepositorySetQRCodeMissingAula(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAulaRepository(db)

	expires := time.Now().Add(5 * time.Minute)
	mock.ExpectExec(regexp.QuoteMeta("SET qr_token = $1, qr_expires_at = $2")).
		WithArgs("token", expires, "missing", "acad-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetQRCode(context.Background(), "missing", "acad-1", "token", expires)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAulaRepositoryListDisponiveis(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAulaRepository(db)

	start := time.Date(2025, 1, 6, 22, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"aula_id", "turma_nome", "data_inicio", "data_fim", "tipo_treino", "status_aula", "ja_fez_checkin",
	}).AddRow("aula-1", "Jiu-Jitsu Adulto", start, start.Add(time.Hour), "Jiu-Jitsu", models.AulaAgendada, true).
		AddRow("aula-2", "Jiu-Jitsu Adulto", start.Add(2*time.Hour), start.Add(3*time.Hour), "Jiu-Jitsu", models.AulaEncerrada, false)
	// Cancelled instances are excluded; everything else stays listed.
	mock.ExpectQuery(regexp.QuoteMeta("a.status <> $3")).
		WithArgs("aluno-1", "acad-1", models.AulaCancelada, start.Add(-time.Hour), start.Add(23*time.Hour)).
		WillReturnRows(rows)

	disponiveis, err := repo.ListDisponiveis(context.Background(), "acad-1", "aluno-1", start.Add(-time.Hour), start.Add(23*time.Hour))
	require.NoError(t, err)
	require.Len(t, disponiveis, 2)
	require.True(t, disponiveis[0].JaFezCheckin)
	require.Equal(t, models.AulaEncerrada, disponiveis[1].StatusAula)
	require.NoError(t, mock.ExpectationsWereMet())
}
