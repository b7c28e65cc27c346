// Package flow holds the pure heart of the import engine: the tagged-union
// actions, the reducer (state machine) and the question engine.
//
// Nada aqui tem efeito colateral. O orquestrador (internal/service) é quem
// chama o extrator e o storage; este pacote só transforma estado.
package flow

import "github.com/boddenberg/doc-import-bfa-go/internal/domain"

// ============================================================
// Actions — união discriminada, uma ação por transição
// ============================================================

// Action is the closed set of flow transitions. Every concrete action is a
// struct (never a bare string), so the reducer's type switch is the single
// exhaustive list of what can happen to the flow.
type Action interface {
	isAction()
}

// StartAnalysis resets all transaction/question state and records the file
// metadata. Emitted when processFile accepts a file.
type StartAnalysis struct {
	NomeArquivo string
	TipoArquivo string
}

// AnalysisComplete populates the extraction result: transactions, totals,
// document type and confidence.
type AnalysisComplete struct {
	TipoDocumento string
	Confianca     float64
	Transacoes    []domain.ExtractedTransaction
	Observacoes   []string
}

// AnalysisFailed moves the flow to the error state with the extractor's
// message, verbatim.
type AnalysisFailed struct {
	Mensagem string
}

// SetDocumentType records the user-confirmed (or corrected) document type.
type SetDocumentType struct {
	TipoDocumento string
}

// SelectCard books the import against a registered credit card.
type SelectCard struct {
	CartaoID   string
	CartaoNome string
}

// SelectAccount books the import against a bank account.
type SelectAccount struct {
	ContaID   string
	ContaNome string
}

// ChooseDestinationMode records the fallback-path choice (cartao, conta or
// avulso) for documents that imply neither a card nor an account.
type ChooseDestinationMode struct {
	Modo string
}

// DecideDates records whether the extracted dates are trustworthy or must be
// reassigned to a reference month (account path only).
type DecideDates struct {
	Decisao string // domain.DatasConfiar | domain.DatasReajuste
}

// SetReferencePeriod records the reference (month, year) used by date repair.
type SetReferencePeriod struct {
	Mes int
	Ano int
}

// AskQuestion installs the next pending question and the step it belongs to.
// If a previous question is still current, the answer is recorded and the
// question moves to history first.
type AskQuestion struct {
	Question domain.ImportQuestion
	Step     domain.Step
}

// EnterPreview closes the question loop and opens the reviewable preview.
type EnterPreview struct{}

// ToggleTransaction flips a single transaction's selected flag.
type ToggleTransaction struct {
	ID string
}

// SetTransactionCategory overrides a single transaction's category fields.
type SetTransactionCategory struct {
	ID            string
	CategoriaID   string
	CategoriaNome string
}

// StartImport marks the commit in flight.
type StartImport struct{}

// ImportCompleted is the terminal success transition.
type ImportCompleted struct {
	Count int
}

// ImportFailed is the terminal failure transition for the commit.
type ImportFailed struct {
	Mensagem string
}

// ResetFlow returns unconditionally to idle, discarding in-flight state.
type ResetFlow struct{}

// RecordAnswer stores the answer on the current question and moves it to
// history without any other side effect. Used by the orchestrator before the
// semantic action derived from the answer.
type RecordAnswer struct {
	QuestionID string
	Resposta   string
}

func (StartAnalysis) isAction()          {}
func (AnalysisComplete) isAction()       {}
func (AnalysisFailed) isAction()         {}
func (SetDocumentType) isAction()        {}
func (SelectCard) isAction()             {}
func (SelectAccount) isAction()          {}
func (ChooseDestinationMode) isAction()  {}
func (DecideDates) isAction()            {}
func (SetReferencePeriod) isAction()     {}
func (AskQuestion) isAction()            {}
func (EnterPreview) isAction()           {}
func (ToggleTransaction) isAction()      {}
func (SetTransactionCategory) isAction() {}
func (StartImport) isAction()            {}
func (ImportCompleted) isAction()        {}
func (ImportFailed) isAction()           {}
func (ResetFlow) isAction()              {}
func (RecordAnswer) isAction()           {}
