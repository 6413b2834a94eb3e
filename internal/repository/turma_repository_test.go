package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/fitsync/academia-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var turmaRowColumns = []string{
	"id", "academia_id", "nome", "tipo_treino_id", "tipo_treino", "tipo_treino_cor",
	"dias_semana", "horario_padrao", "instrutor_padrao_id", "instrutor_nome",
	"deleted_at", "deleted_by",
}

func TestTurmaRepositoryListExcludesDeleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	rows := sqlmock.NewRows(turmaRowColumns).
		AddRow("turma-1", "acad-1", "Jiu-Jitsu Adulto", "tipo-1", "Jiu-Jitsu", nil,
			pq.Int64Array{1, 3}, "19:00", nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM turmas t")).
		WithArgs("acad-1").
		WillReturnRows(rows)

	turmas, err := repo.List(context.Background(), "acad-1", models.TurmaFilter{})
	require.NoError(t, err)
	require.Len(t, turmas, 1)
	require.Equal(t, "Jiu-Jitsu Adulto", turmas[0].Nome)
	require.Equal(t, pq.Int64Array{1, 3}, turmas[0].DiasSemana)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE t.id = $1 AND t.academia_id = $2")).
		WithArgs("missing", "acad-1").
		WillReturnError(sql.ErrNoRows)

	turma, err := repo.FindByID(context.Background(), "missing", "acad-1", false)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.Nil(t, turma)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryCreateDuplicateName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO turmas")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Turma{
		AcademiaID:    "acad-1",
		Nome:          "Jiu-Jitsu Adulto",
		TipoTreinoID:  "tipo-1",
		DiasSemana:    pq.Int64Array{1, 3},
		HorarioPadrao: "19:00",
	})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryUpdateNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	nome := "Novo Nome"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE turmas SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "missing", "acad-1", TurmaUpdate{Nome: &nome})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryUpdateEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	err := repo.Update(context.Background(), "turma-1", "acad-1", TurmaUpdate{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryExistsActiveByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("acad-1", "Jiu-Jitsu Adulto", "turma-2").
		WillReturnRows(rows)

	exists, err := repo.ExistsActiveByName(context.Background(), "acad-1", "Jiu-Jitsu Adulto", "turma-2")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
