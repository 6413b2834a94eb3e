package models

import (
	"time"

	"github.com/lib/pq"
)

// AulaStatus is the lifecycle state of a class instance.
type AulaStatus string

const (
	AulaAgendada  AulaStatus = "AGENDADA"
	AulaEncerrada AulaStatus = "ENCERRADA"
	AulaCancelada AulaStatus = "CANCELADA"
)

// Valid reports whether the status is a supported value.
func (s AulaStatus) Valid() bool {
	switch s {
	case AulaAgendada, AulaEncerrada, AulaCancelada:
		return true
	default:
		return false
	}
}

// Terminal reports whether status transitions out of s are forbidden.
// ENCERRADA and CANCELADA are terminal; soft-delete/restore is independent of
// status and does not count as a transition.
func (s AulaStatus) Terminal() bool {
	return s == AulaEncerrada || s == AulaCancelada
}

// Aula is one dated class instance generated from a Turma.
//
// Invariants: DataFim > DataInicio; at most one non-deleted instance per
// (turma, data_inicio) within a tenant; QRToken and QRExpiresAt are set and
// cleared together; cancelled or soft-deleted instances never hold a live
// token.
type Aula struct {
	ID          string     `db:"id" json:"id"`
	AcademiaID  string     `db:"academia_id" json:"-"`
	TurmaID     string     `db:"turma_id" json:"turmaId"`
	DataInicio  time.Time  `db:"data_inicio" json:"dataInicio"`
	DataFim     time.Time  `db:"data_fim" json:"dataFim"`
	Status      AulaStatus `db:"status" json:"status"`
	QRToken     *string    `db:"qr_token" json:"qrToken,omitempty"`
	QRExpiresAt *time.Time `db:"qr_expires_at" json:"qrExpiresAt,omitempty"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// AulaDetail joins template display data onto the instance row.
type AulaDetail struct {
	Aula
	TurmaNome          string        `db:"turma_nome" json:"turmaNome"`
	TipoTreino         string        `db:"tipo_treino" json:"tipoTreino"`
	TurmaHorarioPadrao *string       `db:"turma_horario_padrao" json:"turmaHorarioPadrao"`
	TurmaDiasSemana    pq.Int64Array `db:"turma_dias_semana" json:"turmaDiasSemana,omitempty"`
	InstrutorPadraoID  *string       `db:"instrutor_id" json:"instrutorPadraoId"`
	InstrutorNome      *string       `db:"instrutor_nome" json:"instrutorNome"`
}

// AulaFilter scopes instance listing queries.
type AulaFilter struct {
	TurmaID        string
	Status         *AulaStatus
	StartFrom      *time.Time
	StartBefore    *time.Time
	IncludeDeleted bool
	OnlyDeleted    bool
}

// AulaQRCode is the payload returned when staff issues a check-in token.
type AulaQRCode struct {
	AulaID    string    `json:"aulaId"`
	QRToken   string    `json:"qrToken"`
	ExpiresAt time.Time `json:"expiresAt"`
	Turma     string    `json:"turma"`
	Horario   time.Time `json:"horario"`
}

// MotivoAulaDuplicada is the fixed reason reported for batch candidates that
// collide with an existing instance.
const MotivoAulaDuplicada = "JA_EXISTE_AULA_NO_HORARIO"

// AulaLoteConflito reports one skipped batch candidate.
type AulaLoteConflito struct {
	DataInicio time.Time `json:"dataInicio"`
	Motivo     string    `json:"motivo"`
}

// AulaLoteResult summarises a batch generation run.
type AulaLoteResult struct {
	Criadas   int                `json:"criadas"`
	Ignoradas int                `json:"ignoradas"`
	Conflitos []AulaLoteConflito `json:"conflitos"`
}
