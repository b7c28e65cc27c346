package domain

// ============================================================
// Ledger rows — o que o commit grava no backend
// ============================================================

// Tipos de lançamento resolvidos no commit. Créditos do extrator viram
// receita independente do destino; débitos dependem do destino escolhido.
const (
	TipoReceita       = "receita"
	TipoDespesa       = "despesa"
	TipoDespesaCartao = "despesa_cartao"
	TipoDespesaConta  = "despesa_conta"
)

// Valores fixos gravados em cada linha importada.
const (
	OrigemImportacao = "importacao_documento"
	StatusConfirmada = "confirmada"
)

// LedgerRow is one resolved transaction ready for the batch insert.
// CartaoID and ContaID are mutually exclusive; both empty means a loose
// ("avulso") import.
type LedgerRow struct {
	UserID      string  `json:"user_id"`
	Descricao   string  `json:"descricao"`
	Valor       float64 `json:"valor"`
	Data        string  `json:"data"` // YYYY-MM-DD, já reparada
	Tipo        string  `json:"tipo"`
	CategoriaID string  `json:"categoria_id"`
	CartaoID    *string `json:"cartao_id,omitempty"`
	ContaID     *string `json:"conta_id,omitempty"`
	Origem      string  `json:"origem"`
	Status      string  `json:"status"`
}
