package domain

// ============================================================
// Extraction Result Contract
// ============================================================
//
// Shapes produzidos pelo extrator de documentos (Gemini, OCR, o que for) e
// consumidos pelo orquestrador. O core trata o extrator como uma caixa-preta
// possivelmente lenta e possivelmente falha — qualquer erro vira a mensagem
// de erro da sessão, sem retry automático.

// ExtractionResult is what a successful DocumentExtractor call produces.
type ExtractionResult struct {
	// TipoDocumento classificado: fatura_cartao, extrato_bancario,
	// comprovante_pix ou outro.
	TipoDocumento string

	// Confianca da classificação, 0–1. Abaixo do limiar o fluxo pede
	// confirmação do tipo ao usuário.
	Confianca float64

	// Transacoes candidatas extraídas do documento.
	Transacoes []ExtractedTransaction

	// Observacoes em texto livre (alertas, avisos de qualidade do scan).
	Observacoes []string
}
