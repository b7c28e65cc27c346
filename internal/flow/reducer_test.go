package flow_test

import (
	"reflect"
	"testing"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/flow"
)

func analyzedState() domain.ImportFlowState {
	st := domain.NewImportFlowState()
	st = flow.Reduce(st, flow.StartAnalysis{NomeArquivo: "fatura.pdf", TipoArquivo: "pdf"})
	return flow.Reduce(st, flow.AnalysisComplete{
		TipoDocumento: domain.DocFaturaCartao,
		Confianca:     0.9,
		Transacoes: []domain.ExtractedTransaction{
			{ID: "t1", Descricao: "IFOOD", Valor: 45.9, Direction: domain.DirectionDebit, Selected: true},
			{ID: "t2", Descricao: "UBER", Valor: 23.5, Direction: domain.DirectionDebit, Selected: true},
			{ID: "t3", Descricao: "PAGAMENTO", Valor: 100, Direction: domain.DirectionCredit, Selected: true},
		},
	})
}

func TestReduce_Purity(t *testing.T) {
	st := analyzedState()
	before := st

	a := flow.ToggleTransaction{ID: "t2"}
	first := flow.Reduce(st, a)
	second := flow.Reduce(st, a)

	if !reflect.DeepEqual(first, second) {
		t.Error("same (state, action) produced different results")
	}
	if !reflect.DeepEqual(st, before) {
		t.Error("input state was mutated")
	}
	if st.Transacoes[1].Selected != true {
		t.Error("input transaction slice was mutated")
	}
}

func TestReduce_StartAnalysisResetsEverything(t *testing.T) {
	st := analyzedState()
	st = flow.Reduce(st, flow.SelectCard{CartaoID: "card-1", CartaoNome: "Nubank"})

	next := flow.Reduce(st, flow.StartAnalysis{NomeArquivo: "extrato.csv", TipoArquivo: "csv"})

	if next.Step != domain.StepAnalyzing {
		t.Errorf("expected analyzing, got %s", next.Step)
	}
	if len(next.Transacoes) != 0 || next.CartaoID != "" || next.CurrentQuestion != nil {
		t.Error("previous session state leaked into the new analysis")
	}
	if next.NomeArquivo != "extrato.csv" || next.TipoArquivo != "csv" {
		t.Error("file metadata not recorded")
	}
}

func TestReduce_AnalysisCompleteComputesTotals(t *testing.T) {
	st := analyzedState()

	if st.Step != domain.StepIdentifying {
		t.Errorf("expected identifying, got %s", st.Step)
	}
	if st.TotalTransacoes != 3 {
		t.Errorf("expected 3 transactions, got %d", st.TotalTransacoes)
	}
	want := 45.9 + 23.5 + 100
	if st.ValorTotal != want {
		t.Errorf("expected total %.2f, got %.2f", want, st.ValorTotal)
	}
}

func TestReduce_DestinationExclusivity(t *testing.T) {
	st := analyzedState()

	st = flow.Reduce(st, flow.SelectAccount{ContaID: "acc-1", ContaNome: "Corrente"})
	st = flow.Reduce(st, flow.SelectCard{CartaoID: "card-1", CartaoNome: "Nubank"})

	if st.ContaID != "" || st.ContaNome != "" {
		t.Error("account selection survived a card selection")
	}
	if st.CartaoID != "card-1" {
		t.Error("card selection not recorded")
	}

	st = flow.Reduce(st, flow.SelectAccount{ContaID: "acc-2", ContaNome: "Poupança"})
	if st.CartaoID != "" || st.CartaoNome != "" {
		t.Error("card selection survived an account selection")
	}
}

func TestReduce_ToggleFlipsOnlyTarget(t *testing.T) {
	st := analyzedState()

	next := flow.Reduce(st, flow.ToggleTransaction{ID: "t2"})

	if next.Transacoes[1].Selected {
		t.Error("t2 should be deselected")
	}
	if !next.Transacoes[0].Selected || !next.Transacoes[2].Selected {
		t.Error("other transactions must be untouched")
	}

	// Toggle de volta.
	again := flow.Reduce(next, flow.ToggleTransaction{ID: "t2"})
	if !again.Transacoes[1].Selected {
		t.Error("second toggle should reselect")
	}
}

func TestReduce_ToggleUnknownIDIsNoop(t *testing.T) {
	st := analyzedState()
	next := flow.Reduce(st, flow.ToggleTransaction{ID: "nope"})
	if !reflect.DeepEqual(st, next) {
		t.Error("unknown transaction id must be a no-op")
	}
}

func TestReduce_CategoryOverride(t *testing.T) {
	st := analyzedState()

	next := flow.Reduce(st, flow.SetTransactionCategory{ID: "t1", CategoriaID: "cat-x", CategoriaNome: "Outra"})

	if next.Transacoes[0].CategoriaID != "cat-x" || next.Transacoes[0].CategoriaNome != "Outra" {
		t.Error("category override not applied")
	}
	if next.Transacoes[1].CategoriaID != "" {
		t.Error("override leaked to another transaction")
	}
}

func TestReduce_QuestionLifecycle(t *testing.T) {
	st := analyzedState()

	q := domain.ImportQuestion{ID: domain.QuestionSelecionaCartao, Kind: domain.QuestionSingleChoice, Pergunta: "Qual cartão?"}
	st = flow.Reduce(st, flow.AskQuestion{Question: q, Step: domain.StepSelectingDestination})

	if st.CurrentQuestion == nil || st.CurrentQuestion.ID != domain.QuestionSelecionaCartao {
		t.Fatal("question not installed")
	}
	if st.Step != domain.StepSelectingDestination {
		t.Errorf("expected selecting_destination, got %s", st.Step)
	}

	st = flow.Reduce(st, flow.RecordAnswer{QuestionID: domain.QuestionSelecionaCartao, Resposta: "card-1"})

	if st.CurrentQuestion != nil {
		t.Error("answered question must leave currentQuestion")
	}
	if len(st.Historico) != 1 || st.Historico[0].Resposta != "card-1" {
		t.Error("answered question must move to history with its answer")
	}
}

func TestReduce_StaleAnswerIsNoop(t *testing.T) {
	st := analyzedState()
	q := domain.ImportQuestion{ID: domain.QuestionSelecionaCartao}
	st = flow.Reduce(st, flow.AskQuestion{Question: q, Step: domain.StepSelectingDestination})

	next := flow.Reduce(st, flow.RecordAnswer{QuestionID: domain.QuestionConfirmaTipo, Resposta: "x"})
	if !reflect.DeepEqual(st, next) {
		t.Error("mismatched question id must be a no-op")
	}
}

func TestReduce_TerminalTransitions(t *testing.T) {
	st := analyzedState()

	st = flow.Reduce(st, flow.StartImport{})
	if st.Step != domain.StepImporting {
		t.Errorf("expected importing, got %s", st.Step)
	}

	done := flow.Reduce(st, flow.ImportCompleted{Count: 2})
	if done.Step != domain.StepCompleted || done.ImportedCount != 2 {
		t.Errorf("expected completed with 2, got %s/%d", done.Step, done.ImportedCount)
	}

	failed := flow.Reduce(st, flow.ImportFailed{Mensagem: "insert rejected"})
	if failed.Step != domain.StepError || failed.Erro != "insert rejected" {
		t.Errorf("expected error state, got %s/%q", failed.Step, failed.Erro)
	}

	idle := flow.Reduce(failed, flow.ResetFlow{})
	if idle.Step != domain.StepIdle || idle.Erro != "" {
		t.Error("reset must return to a clean idle state")
	}
}
