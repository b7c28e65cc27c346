package heuristic

import (
	"fmt"
	"strings"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
)

// MarkDuplicates flags repeated transactions within one extraction batch.
// A transaction is a duplicate when an earlier one has the same normalized
// description, amount and raw date. Duplicates come deselected so that the
// user has to opt back in explicitly on the preview.
//
// The input slice is not mutated; a new slice is returned.
func MarkDuplicates(transacoes []domain.ExtractedTransaction) []domain.ExtractedTransaction {
	out := make([]domain.ExtractedTransaction, len(transacoes))
	copy(out, transacoes)

	vistas := make(map[string]bool, len(out))
	for i := range out {
		key := duplicateKey(out[i])
		if vistas[key] {
			out[i].Duplicada = true
			out[i].Selected = false
			continue
		}
		vistas[key] = true
	}
	return out
}

func duplicateKey(tx domain.ExtractedTransaction) string {
	desc := strings.ToLower(strings.TrimSpace(tx.Descricao))
	return fmt.Sprintf("%s|%.2f|%s|%s", desc, tx.Valor, tx.Direction, strings.TrimSpace(tx.DataBruta))
}
