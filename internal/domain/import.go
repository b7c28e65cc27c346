// Package domain defines the core business entities of the document-import
// engine. These models are independent of external services and represent the
// canonical data structures used throughout importd.
//
// O vocabulário segue o app de finanças pessoais: receita/despesa, cartão,
// conta, fatura, extrato. Tipos de documento e etapas do fluxo são strings
// fechadas (consts abaixo), nunca texto livre.
package domain

// ============================================================
// Flow steps — máquina de estados do import
// ============================================================

// Step is a phase of the import flow state machine.
//
// Progressão linear com desvios condicionais:
//
//	idle → analyzing → identifying → [confirming_type] →
//	[selecting_destination] → [collecting_data] → preview →
//	importing → completed
//
// error é alcançável a partir de analyzing e importing e encerra o fluxo.
type Step string

const (
	StepIdle                 Step = "idle"
	StepAnalyzing            Step = "analyzing"
	StepIdentifying          Step = "identifying"
	StepConfirmingType       Step = "confirming_type"
	StepSelectingDestination Step = "selecting_destination"
	StepCollectingData       Step = "collecting_data"
	StepPreview              Step = "preview"
	StepImporting            Step = "importing"
	StepCompleted            Step = "completed"
	StepError                Step = "error"
)

// AcceptsNewFile reports whether a fresh processFile call is allowed from
// this step. Mid-flow submissions are rejected: one file per session.
func (s Step) AcceptsNewFile() bool {
	return s == StepIdle || s == StepCompleted || s == StepError
}

// IsQuestionStep reports whether a pending question must exist in this step.
// The flow invariant is: currentQuestion != nil iff IsQuestionStep.
func (s Step) IsQuestionStep() bool {
	return s == StepConfirmingType || s == StepSelectingDestination || s == StepCollectingData
}

// ============================================================
// Document types
// ============================================================

// Tipos de documento reconhecidos pelo extrator. Qualquer outra string vinda
// do modelo é tratada como DocOutro.
const (
	DocFaturaCartao   = "fatura_cartao"
	DocExtratoConta   = "extrato_bancario"
	DocComprovantePix = "comprovante_pix"
	DocOutro          = "outro"
)

// Modo de destino escolhido pelo usuário no caminho genérico (pergunta de
// fallback quando o tipo de documento não implica cartão nem conta).
const (
	DestinoCartao = "cartao"
	DestinoConta  = "conta"
	DestinoAvulso = "avulso"
)

// Decisão sobre confiar nas datas extraídas (caminho de conta).
const (
	DatasConfiar  = "confiar"
	DatasReajuste = "reajustar"
)

// ============================================================
// Extracted transactions
// ============================================================

// Direction of an extracted transaction. The amount is always a positive
// magnitude; direction determines sign semantics downstream.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// ExtractedTransaction is one candidate ledger line extracted from a
// document. Created once by the extraction step; mutated only by the
// toggle-selection and category-override reducer actions.
type ExtractedTransaction struct {
	// ID is a temporary id, stable for the UI session (not the ledger id).
	ID string `json:"id"`

	// DataBruta is the date exactly as extracted — free-form text,
	// normalized only at commit time by the date-repair heuristic.
	DataBruta string `json:"dataBruta"`

	Descricao string  `json:"descricao"`
	Valor     float64 `json:"valor"` // sempre magnitude positiva
	Direction string  `json:"direction"`

	// Categoria sugerida pelo extrator (texto livre) e/ou resolvida
	// pelo usuário no preview.
	CategoriaID   string `json:"categoriaId,omitempty"`
	CategoriaNome string `json:"categoriaNome,omitempty"`

	Selected  bool `json:"selected"`
	Duplicada bool `json:"duplicada"`
}

// Period is the reference (month, year) pair used to repair ambiguous or
// missing day/month information in extracted dates.
type Period struct {
	Mes int `json:"mes"` // 1–12
	Ano int `json:"ano"`
}

// IsZero reports whether no reference period was chosen.
func (p Period) IsZero() bool { return p.Mes == 0 && p.Ano == 0 }

// ============================================================
// ImportFlowState — o agregado único do fluxo
// ============================================================

// ImportFlowState is the single aggregate owned by an import session.
// It is replaced wholesale by each reducer transition — callers must treat
// every snapshot as immutable.
type ImportFlowState struct {
	Step Step `json:"step"`

	// Metadados do arquivo em análise.
	NomeArquivo string `json:"nomeArquivo,omitempty"`
	TipoArquivo string `json:"tipoArquivo,omitempty"` // pdf | xlsx | csv | image

	// Resultado da classificação do documento.
	TipoDocumento string  `json:"tipoDocumento,omitempty"`
	Confianca     float64 `json:"confianca"`

	// TipoConfirmado indica que o usuário confirmou/corrigiu o tipo do
	// documento (a pergunta de confirmação nunca é repetida).
	TipoConfirmado bool `json:"tipoConfirmado"`

	// Destino — mutuamente exclusivos: cartão XOR conta XOR avulso.
	CartaoID     string `json:"cartaoId,omitempty"`
	CartaoNome   string `json:"cartaoNome,omitempty"`
	ContaID      string `json:"contaId,omitempty"`
	ContaNome    string `json:"contaNome,omitempty"`
	ModoDestino  string `json:"modoDestino,omitempty"`  // cartao | conta | avulso (caminho genérico)
	DecisaoDatas string `json:"decisaoDatas,omitempty"` // confiar | reajustar (caminho de conta)

	// Período de referência para o reparo de datas.
	Periodo Period `json:"periodo"`

	Transacoes []ExtractedTransaction `json:"transacoes"`

	// Totais computados na conclusão da análise.
	TotalTransacoes int     `json:"totalTransacoes"`
	ValorTotal      float64 `json:"valorTotal"`

	// No máximo uma pergunta pendente por vez.
	CurrentQuestion *ImportQuestion `json:"currentQuestion,omitempty"`

	// Histórico de perguntas já respondidas, na ordem.
	Historico []ImportQuestion `json:"historico,omitempty"`

	// Observações/alertas em texto livre vindos da extração.
	Observacoes []string `json:"observacoes,omitempty"`

	// Resultado final.
	ImportedCount int    `json:"importedCount"`
	Erro          string `json:"erro,omitempty"`
}

// NewImportFlowState returns the empty/idle state that starts every session.
func NewImportFlowState() ImportFlowState {
	return ImportFlowState{Step: StepIdle}
}

// Destination kind resolved from the flow state. Card invoices imply the card
// path, bank statements the account path; an explicit fallback choice
// (ModoDestino) overrides whatever the document type implied.
func (st ImportFlowState) CaminhoCartao() bool {
	if st.ModoDestino != "" {
		return st.ModoDestino == DestinoCartao
	}
	return st.TipoDocumento == DocFaturaCartao
}

func (st ImportFlowState) CaminhoConta() bool {
	if st.ModoDestino != "" {
		return st.ModoDestino == DestinoConta
	}
	return st.TipoDocumento == DocExtratoConta
}

func (st ImportFlowState) CaminhoAvulso() bool {
	return st.ModoDestino == DestinoAvulso
}

// ============================================================
// File upload
// ============================================================

// FileUpload carries the raw file handed to processFile.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}
