package flow

import "github.com/boddenberg/doc-import-bfa-go/internal/domain"

// ============================================================
// Reducer — função de transição pura (state, action) → state
// ============================================================

// Reduce maps (state, action) to a new state. It never mutates the input:
// every branch works on a shallow copy and replaces only what changed
// (slices are copied before element updates).
//
// Ações desconhecidas são no-op — o estado volta inalterado. É a válvula de
// escape para compatibilidade futura; o reducer nunca entra em pânico.
func Reduce(st domain.ImportFlowState, action Action) domain.ImportFlowState {
	switch a := action.(type) {

	case StartAnalysis:
		// Sessão nova: zera tudo, guarda só os metadados do arquivo.
		next := domain.NewImportFlowState()
		next.Step = domain.StepAnalyzing
		next.NomeArquivo = a.NomeArquivo
		next.TipoArquivo = a.TipoArquivo
		return next

	case AnalysisComplete:
		next := st
		next.Step = domain.StepIdentifying
		next.TipoDocumento = a.TipoDocumento
		next.Confianca = a.Confianca
		next.Transacoes = a.Transacoes
		next.Observacoes = a.Observacoes
		next.TotalTransacoes = len(a.Transacoes)
		next.ValorTotal = 0
		for _, tx := range a.Transacoes {
			next.ValorTotal += tx.Valor
		}
		return next

	case AnalysisFailed:
		next := st
		next.Step = domain.StepError
		next.Erro = a.Mensagem
		next.CurrentQuestion = nil
		return next

	case SetDocumentType:
		next := st
		next.TipoDocumento = a.TipoDocumento
		next.TipoConfirmado = true
		return next

	case SelectCard:
		next := st
		next.CartaoID = a.CartaoID
		next.CartaoNome = a.CartaoNome
		// Destinos são mutuamente exclusivos.
		next.ContaID = ""
		next.ContaNome = ""
		return next

	case SelectAccount:
		next := st
		next.ContaID = a.ContaID
		next.ContaNome = a.ContaNome
		next.CartaoID = ""
		next.CartaoNome = ""
		return next

	case ChooseDestinationMode:
		next := st
		next.ModoDestino = a.Modo
		return next

	case DecideDates:
		next := st
		next.DecisaoDatas = a.Decisao
		return next

	case SetReferencePeriod:
		next := st
		next.Periodo = domain.Period{Mes: a.Mes, Ano: a.Ano}
		return next

	case RecordAnswer:
		return resolveQuestion(st, a.QuestionID, a.Resposta)

	case AskQuestion:
		next := st
		q := a.Question
		next.CurrentQuestion = &q
		next.Step = a.Step
		return next

	case EnterPreview:
		next := st
		next.CurrentQuestion = nil
		next.Step = domain.StepPreview
		return next

	case ToggleTransaction:
		next := st
		next.Transacoes = withTransaction(st.Transacoes, a.ID, func(tx *domain.ExtractedTransaction) {
			tx.Selected = !tx.Selected
		})
		return next

	case SetTransactionCategory:
		next := st
		next.Transacoes = withTransaction(st.Transacoes, a.ID, func(tx *domain.ExtractedTransaction) {
			tx.CategoriaID = a.CategoriaID
			tx.CategoriaNome = a.CategoriaNome
		})
		return next

	case StartImport:
		next := st
		next.Step = domain.StepImporting
		return next

	case ImportCompleted:
		next := st
		next.Step = domain.StepCompleted
		next.ImportedCount = a.Count
		return next

	case ImportFailed:
		next := st
		next.Step = domain.StepError
		next.Erro = a.Mensagem
		return next

	case ResetFlow:
		return domain.NewImportFlowState()

	default:
		// Ação desconhecida: no-op.
		return st
	}
}

// resolveQuestion records the answer on the current question and appends it
// to history. A mismatched id is a stale callback and leaves state untouched.
func resolveQuestion(st domain.ImportFlowState, questionID, resposta string) domain.ImportFlowState {
	if st.CurrentQuestion == nil || st.CurrentQuestion.ID != questionID {
		return st
	}
	next := st
	answered := *st.CurrentQuestion
	answered.Resposta = resposta

	historico := make([]domain.ImportQuestion, len(st.Historico), len(st.Historico)+1)
	copy(historico, st.Historico)
	next.Historico = append(historico, answered)
	next.CurrentQuestion = nil
	return next
}

// withTransaction copies the slice and applies fn to the transaction with
// the given id. Unknown ids return the original slice unchanged.
func withTransaction(transacoes []domain.ExtractedTransaction, id string, fn func(*domain.ExtractedTransaction)) []domain.ExtractedTransaction {
	idx := -1
	for i := range transacoes {
		if transacoes[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return transacoes
	}
	out := make([]domain.ExtractedTransaction, len(transacoes))
	copy(out, transacoes)
	fn(&out[idx])
	return out
}
