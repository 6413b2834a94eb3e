package models

import (
	"time"

	"github.com/lib/pq"
)

// Turma is a recurring class template: a weekday set plus a default local
// start time within one academia.
type Turma struct {
	ID                string     `db:"id" json:"id"`
	AcademiaID        string     `db:"academia_id" json:"-"`
	Nome              string     `db:"nome" json:"nome"`
	TipoTreinoID      string     `db:"tipo_treino_id" json:"-"`
	TipoTreino        string     `db:"tipo_treino" json:"tipoTreino"`
	TipoTreinoCor     *string    `db:"tipo_treino_cor" json:"tipoTreinoCor"`
	DiasSemana        pq.Int64Array `db:"dias_semana" json:"diasSemana"`
	HorarioPadrao     string     `db:"horario_padrao" json:"horarioPadrao"`
	InstrutorPadraoID *string    `db:"instrutor_padrao_id" json:"instrutorPadraoId"`
	InstrutorNome     *string    `db:"instrutor_nome" json:"instrutorPadraoNome"`
	DeletedAt         *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	DeletedBy         *string    `db:"deleted_by" json:"-"`
}

// TurmaFilter controls deleted-row visibility when listing templates.
type TurmaFilter struct {
	IncludeDeleted bool
	OnlyDeleted    bool
}
