package heuristic

import (
	"strings"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
)

// ============================================================
// Sugestão de categoria por palavra-chave
// ============================================================

// Categoria de fallback quando nada casa. SuggestCategory nunca retorna
// categoria vazia — toda transação é categorizável.
const (
	FallbackCategoryID   = "outros"
	FallbackCategoryNome = "Outros"
)

// keywordRule maps a lowercase keyword found in a transaction description to
// a canonical category name.
type keywordRule struct {
	keyword   string
	categoria string
}

// Tabela ordenada de palavras-chave → categoria. A ordem é o desempate:
// termos de estabelecimento específicos vêm antes dos genéricos (ex.:
// "ifood" precisa ganhar de "mercado" numa descrição "IFOOD *MERCADO X").
var keywordRules = []keywordRule{
	// Alimentação — apps e estabelecimentos primeiro
	{"ifood", "Alimentação"},
	{"rappi", "Alimentação"},
	{"restaurante", "Alimentação"},
	{"lanchonete", "Alimentação"},
	{"padaria", "Alimentação"},
	{"pizzaria", "Alimentação"},
	{"supermercado", "Alimentação"},
	{"mercado", "Alimentação"},
	{"hortifruti", "Alimentação"},
	{"acougue", "Alimentação"},
	{"açougue", "Alimentação"},

	// Transporte
	{"uber", "Transporte"},
	{"99app", "Transporte"},
	{"99 pop", "Transporte"},
	{"cabify", "Transporte"},
	{"posto", "Transporte"},
	{"combustivel", "Transporte"},
	{"combustível", "Transporte"},
	{"estacionamento", "Transporte"},
	{"pedagio", "Transporte"},
	{"pedágio", "Transporte"},
	{"metro", "Transporte"},
	{"metrô", "Transporte"},
	{"onibus", "Transporte"},
	{"ônibus", "Transporte"},

	// Moradia / contas da casa
	{"aluguel", "Moradia"},
	{"condominio", "Moradia"},
	{"condomínio", "Moradia"},
	{"energia", "Moradia"},
	{"enel", "Moradia"},
	{"light", "Moradia"},
	{"sabesp", "Moradia"},
	{"sanepar", "Moradia"},
	{"agua", "Moradia"},
	{"água", "Moradia"},
	{"gas", "Moradia"},
	{"gás", "Moradia"},
	{"internet", "Moradia"},
	{"vivo", "Moradia"},
	{"claro", "Moradia"},
	{"tim ", "Moradia"},

	// Saúde
	{"farmacia", "Saúde"},
	{"farmácia", "Saúde"},
	{"drogaria", "Saúde"},
	{"drogasil", "Saúde"},
	{"hospital", "Saúde"},
	{"clinica", "Saúde"},
	{"clínica", "Saúde"},
	{"laboratorio", "Saúde"},
	{"laboratório", "Saúde"},

	// Lazer / assinaturas
	{"netflix", "Lazer"},
	{"spotify", "Lazer"},
	{"disney", "Lazer"},
	{"cinema", "Lazer"},
	{"steam", "Lazer"},
	{"playstation", "Lazer"},

	// Educação
	{"faculdade", "Educação"},
	{"universidade", "Educação"},
	{"escola", "Educação"},
	{"curso", "Educação"},
	{"livraria", "Educação"},
}

// Sinônimos para o hint de categoria vindo do extrator (texto livre do
// modelo, frequentemente em inglês ou com variações de nome).
var hintSynonyms = map[string]string{
	"alimentacao":   "Alimentação",
	"alimentação":   "Alimentação",
	"food":          "Alimentação",
	"restaurantes":  "Alimentação",
	"groceries":     "Alimentação",
	"transporte":    "Transporte",
	"transport":     "Transporte",
	"mobilidade":    "Transporte",
	"moradia":       "Moradia",
	"housing":       "Moradia",
	"casa":          "Moradia",
	"utilities":     "Moradia",
	"saude":         "Saúde",
	"saúde":         "Saúde",
	"health":        "Saúde",
	"lazer":         "Lazer",
	"entertainment": "Lazer",
	"assinaturas":   "Lazer",
	"educacao":      "Educação",
	"educação":      "Educação",
	"education":     "Educação",
	"salario":       "Receita",
	"salário":       "Receita",
	"income":        "Receita",
	"receita":       "Receita",
}

// SuggestCategory returns a category id (and name) for a transaction
// description, falling back to the extractor-provided hint and finally to the
// "Outros" category. The returned id is always non-empty.
//
// Resolução do nome canônico para id: procura nas categorias registradas do
// usuário (case-insensitive). Se o usuário não tem a categoria, cai em
// "Outros"; se nem "Outros" existe, usa o id fixo do sistema.
func SuggestCategory(descricao, hint string, categorias []domain.Category) (string, string) {
	lower := strings.ToLower(descricao)

	for _, rule := range keywordRules {
		if strings.Contains(lower, rule.keyword) {
			return resolveCategory(rule.categoria, categorias)
		}
	}

	if hint != "" {
		if nome, ok := hintSynonyms[strings.ToLower(strings.TrimSpace(hint))]; ok {
			return resolveCategory(nome, categorias)
		}
	}

	return resolveCategory(FallbackCategoryNome, categorias)
}

// resolveCategory maps a canonical category name to the user's registered
// category id, falling back to "Outros" and then to the system fallback id.
func resolveCategory(nome string, categorias []domain.Category) (string, string) {
	for _, c := range categorias {
		if strings.EqualFold(c.Nome, nome) {
			return c.ID, c.Nome
		}
	}
	if !strings.EqualFold(nome, FallbackCategoryNome) {
		for _, c := range categorias {
			if strings.EqualFold(c.Nome, FallbackCategoryNome) {
				return c.ID, c.Nome
			}
		}
	}
	return FallbackCategoryID, FallbackCategoryNome
}
