package heuristic

import (
	"strings"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
)

// AutoIdentifyCard returns the first registered card whose name appears
// (case-insensitively) as a substring of any transaction description, or nil.
//
// Usado só para pré-selecionar a sugestão na pergunta de cartão — o usuário
// sempre confirma explicitamente. Atribuir fatura ao cartão errado tem
// consequência financeira real, então a auto-detecção nunca é autoritativa.
func AutoIdentifyCard(transacoes []domain.ExtractedTransaction, cartoes []domain.Card) *domain.Card {
	for i := range cartoes {
		nome := strings.ToLower(cartoes[i].Nome)
		if nome == "" {
			continue
		}
		for _, tx := range transacoes {
			if strings.Contains(strings.ToLower(tx.Descricao), nome) {
				return &cartoes[i]
			}
		}
	}
	return nil
}
