package domain

// ============================================================
// Reference data — snapshots fornecidos na abertura da sessão
// ============================================================
//
// Cartões, contas e categorias registrados do usuário. São leituras: o core
// nunca muta esses dados, só os usa para montar perguntas e resolver destino
// e categoria das transações importadas.

// Card is a registered credit card.
type Card struct {
	ID             string `json:"id"`
	Nome           string `json:"nome"`
	UltimosDigitos string `json:"ultimosDigitos,omitempty"`
	DiaFechamento  int    `json:"diaFechamento"`
	DiaVencimento  int    `json:"diaVencimento"`
}

// Account is a registered bank account.
type Account struct {
	ID    string  `json:"id"`
	Nome  string  `json:"nome"`
	Tipo  string  `json:"tipo"` // corrente, poupanca, pagamento
	Saldo float64 `json:"saldo"`
}

// Aplicabilidade de uma categoria.
const (
	CategoriaReceita = "receita"
	CategoriaDespesa = "despesa"
	CategoriaAmbos   = "ambos"
)

// Category is a transaction category.
type Category struct {
	ID        string `json:"id"`
	Nome      string `json:"nome"`
	Aplicavel string `json:"aplicavel"` // receita | despesa | ambos
}

// ReferenceData bundles the destination candidates for one user.
type ReferenceData struct {
	Cartoes    []Card     `json:"cartoes"`
	Contas     []Account  `json:"contas"`
	Categorias []Category `json:"categorias"`
}
