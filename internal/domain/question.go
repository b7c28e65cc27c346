package domain

// ============================================================
// ImportQuestion — uma pergunta de esclarecimento do fluxo
// ============================================================

// QuestionKind is the input widget expected for a question.
type QuestionKind string

const (
	QuestionSingleChoice   QuestionKind = "single_choice"
	QuestionMultipleChoice QuestionKind = "multiple_choice"
	QuestionText           QuestionKind = "text"
	QuestionDate           QuestionKind = "date"
	QuestionMonthYear      QuestionKind = "month_year"
)

// IDs das perguntas do fluxo. O id é o discriminador usado pelo orquestrador
// para mapear a resposta na ação correta do reducer — respostas com id
// diferente da pergunta pendente são ignoradas (callback de UI atrasado).
const (
	QuestionConfirmaTipo     = "confirmar_tipo"
	QuestionSelecionaCartao  = "selecionar_cartao"
	QuestionSelecionaConta   = "selecionar_conta"
	QuestionSelecionaDestino = "selecionar_destino"
	QuestionConfirmaDatas    = "confirmar_datas"
	QuestionSelecionaPeriodo = "selecionar_periodo"
)

// QuestionOption is one selectable answer.
type QuestionOption struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Descricao string `json:"descricao,omitempty"`

	// Sugerida marca a opção pré-selecionada por heurística (ex.: cartão
	// auto-identificado). A sugestão é sempre consultiva — o usuário
	// confirma explicitamente.
	Sugerida bool `json:"sugerida,omitempty"`
}

// ImportQuestion is a single clarifying prompt. Once answered it is appended
// to the flow history and is no longer the current question.
type ImportQuestion struct {
	ID          string           `json:"id"`
	Kind        QuestionKind     `json:"kind"`
	Pergunta    string           `json:"pergunta"`
	Opcoes      []QuestionOption `json:"opcoes,omitempty"`
	Resposta    string           `json:"resposta,omitempty"`
	Obrigatoria bool             `json:"obrigatoria"`
}
