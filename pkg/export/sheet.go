package export

// SheetRow is one attendance entry on a class sheet.
type SheetRow struct {
	AlunoNome string
	Status    string
	Origem    string
	CriadoEm  string
}

// Sheet is the printable attendance list for a single class instance.
type Sheet struct {
	TurmaNome  string
	TipoTreino string
	DataInicio string
	Instrutor  string
	Rows       []SheetRow
}

var sheetHeaders = []string{"Aluno", "Status", "Origem", "Registrado em"}

func (s Sheet) records() [][]string {
	records := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		records = append(records, []string{row.AlunoNome, row.Status, row.Origem, row.CriadoEm})
	}
	return records
}
