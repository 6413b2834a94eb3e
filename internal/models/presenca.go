package models

import "time"

// PresencaStatus is the attendance record state.
type PresencaStatus string

const (
	PresencaPendente    PresencaStatus = "PENDENTE"
	PresencaPresente    PresencaStatus = "PRESENTE"
	PresencaFalta       PresencaStatus = "FALTA"
	PresencaJustificada PresencaStatus = "JUSTIFICADA"
	PresencaAjustado    PresencaStatus = "AJUSTADO"
)

// Valid reports whether the status is a supported value.
func (s PresencaStatus) Valid() bool {
	switch s {
	case PresencaPendente, PresencaPresente, PresencaFalta, PresencaJustificada, PresencaAjustado:
		return true
	default:
		return false
	}
}

// Decided reports whether the record left PENDENTE. Decided records are not
// mutable through the decision flow.
func (s PresencaStatus) Decided() bool {
	return s.Valid() && s != PresencaPendente
}

// PresencaOrigem records how the attendance entry came to exist.
type PresencaOrigem string

const (
	OrigemManual  PresencaOrigem = "MANUAL"
	OrigemQRCode  PresencaOrigem = "QR_CODE"
	OrigemSistema PresencaOrigem = "SISTEMA"
)

// Decisao is a staff ruling on a pending attendance record.
type Decisao string

const (
	DecisaoAprovar    Decisao = "APROVAR"
	DecisaoFalta      Decisao = "FALTA"
	DecisaoJustificar Decisao = "JUSTIFICAR"
)

// Outcome maps the decision to the resulting attendance status.
func (d Decisao) Outcome() (PresencaStatus, bool) {
	switch d {
	case DecisaoAprovar:
		return PresencaPresente, true
	case DecisaoFalta:
		return PresencaFalta, true
	case DecisaoJustificar:
		return PresencaJustificada, true
	default:
		return "", false
	}
}

// Presenca links a student to one class instance. Unique per
// (aula, aluno, academia); enforced by pre-check plus a storage constraint.
type Presenca struct {
	ID                string         `db:"id" json:"id"`
	AcademiaID        string         `db:"academia_id" json:"-"`
	AulaID            string         `db:"aula_id" json:"aulaId"`
	AlunoID           string         `db:"aluno_id" json:"alunoId"`
	Status            PresencaStatus `db:"status" json:"status"`
	Origem            PresencaOrigem `db:"origem" json:"origem"`
	CriadoEm          time.Time      `db:"criado_em" json:"criadoEm"`
	RegistradoPor     *string        `db:"registrado_por" json:"registradoPor,omitempty"`
	DecididoEm        *time.Time     `db:"decidido_em" json:"decididoEm,omitempty"`
	DecididoPor       *string        `db:"decidido_por" json:"decididoPor,omitempty"`
	DecisaoObservacao *string        `db:"decisao_observacao" json:"decisaoObservacao,omitempty"`
}

// PresencaPendente joins display data onto a pending record for the staff
// review screen.
type PresencaPendenteRow struct {
	ID         string         `db:"id" json:"id"`
	AlunoID    string         `db:"aluno_id" json:"alunoId"`
	AlunoNome  string         `db:"aluno_nome" json:"alunoNome"`
	AulaID     string         `db:"aula_id" json:"aulaId"`
	TurmaNome  string         `db:"turma_nome" json:"turmaNome"`
	DataInicio time.Time      `db:"data_inicio" json:"dataInicio"`
	Origem     PresencaOrigem `db:"origem" json:"origem"`
	Status     PresencaStatus `db:"status" json:"status"`
}

// PresencaHistoricoRow is one entry of a student's attendance history.
type PresencaHistoricoRow struct {
	PresencaID string         `db:"id" json:"presencaId"`
	AulaID     string         `db:"aula_id" json:"aulaId"`
	DataInicio time.Time      `db:"data_inicio" json:"dataInicio"`
	TurmaNome  string         `db:"turma_nome" json:"turmaNome"`
	TipoTreino *string        `db:"tipo_treino" json:"tipoTreino"`
	Status     PresencaStatus `db:"status" json:"status"`
	Origem     PresencaOrigem `db:"origem" json:"origem"`
	CriadoEm   time.Time      `db:"criado_em" json:"-"`
}

// PresencaAulaRow is one entry of a class instance attendance sheet.
type PresencaAulaRow struct {
	ID        string         `db:"id" json:"id"`
	AlunoID   string         `db:"aluno_id" json:"alunoId"`
	AlunoNome string         `db:"aluno_nome" json:"alunoNome"`
	Status    PresencaStatus `db:"status" json:"status"`
	Origem    PresencaOrigem `db:"origem" json:"origem"`
	CriadoEm  time.Time      `db:"criado_em" json:"criadoEm"`
}

// Reason codes for ignored entries in batch decisions.
const (
	MotivoJaDecidida    = "JA_DECIDIDA"
	MotivoNaoEncontrada = "NAO_ENCONTRADA"
)

// DecisaoIgnorada reports one id a batch decision skipped.
type DecisaoIgnorada struct {
	ID     string `json:"id"`
	Motivo string `json:"motivo"`
}

// DecisaoLoteResult summarises a batch decision run.
type DecisaoLoteResult struct {
	Processados int               `json:"processados"`
	Atualizados []string          `json:"atualizados"`
	Ignorados   []DecisaoIgnorada `json:"ignorados"`
}

// CheckinDisponivel is a student-facing view of one of today's classes.
type CheckinDisponivel struct {
	AulaID       string     `db:"aula_id" json:"aulaId"`
	TurmaNome    string     `db:"turma_nome" json:"turmaNome"`
	DataInicio   time.Time  `db:"data_inicio" json:"dataInicio"`
	DataFim      time.Time  `db:"data_fim" json:"dataFim"`
	TipoTreino   *string    `db:"tipo_treino" json:"tipoTreino"`
	StatusAula   AulaStatus `db:"status_aula" json:"statusAula"`
	JaFezCheckin bool       `db:"ja_fez_checkin" json:"jaFezCheckin"`
}
