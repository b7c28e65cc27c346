// Package service — session.go implementa o Import Orchestrator.
//
// ============================================================
// ARQUITETURA — uma sessão por arquivo, reducer como fonte de verdade
// ============================================================
//
// A Session é o coordenador stateful do fluxo de importação: chama o
// extrator, dirige o reducer, pergunta via Question Engine, aplica respostas
// e no confirm executa o commit em lote. Todos os efeitos colaterais moram
// aqui; reducer, engine e heurísticas são puros.
//
// Fluxo completo:
//  1. ProcessFile recebe o arquivo → extrator → ANALYSIS_COMPLETE
//  2. Question Engine decide a próxima pergunta (ou preview)
//  3. AnswerQuestion aplica cada resposta e repete o passo 2
//  4. No preview o chamador alterna seleção e sobrescreve categoria
//  5. ConfirmImport repara datas, resolve categorias, de-duplica e grava
//
// Falhas de extração e de commit nunca escapam como erro de retorno — viram
// estado de erro + evento de chat, para a UI renderizar uniforme (a mesma
// política dos nossos outros fluxos conversacionais).
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/flow"
	"github.com/boddenberg/doc-import-bfa-go/internal/heuristic"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/observability"
	"github.com/boddenberg/doc-import-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// Option configures a Session beyond its required dependencies.
type Option func(*Session)

// WithClock injects a deterministic clock (tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

// WithYearWindow overrides the plausible-year window of the date repair.
func WithYearWindow(w heuristic.YearWindow) Option {
	return func(s *Session) { s.window = w }
}

// WithStateListener registers the onStateChange callback, fired once per
// transition with the full replacement state.
func WithStateListener(fn func(domain.ImportFlowState)) Option {
	return func(s *Session) { s.onState = fn }
}

// WithMessageListener registers the onMessage callback, fired for each
// user-facing conversational utterance.
func WithMessageListener(fn func(domain.ChatEvent)) Option {
	return func(s *Session) { s.onMessage = fn }
}

// Session is one import attempt: one user, one file, one conversation.
// Construída por tentativa, com colaboradores injetados — sem singletons.
type Session struct {
	id     string
	userID string

	// mu serializa as operações: uma operação lógica por vez, como o fluxo
	// exige (single-writer). Chamadas concorrentes esperam a corrente.
	mu sync.Mutex

	state      domain.ImportFlowState
	ref        domain.ReferenceData
	sugerido   *domain.Card
	transcript []domain.ChatEvent

	extractor port.DocumentExtractor
	store     port.LedgerStore
	window    heuristic.YearWindow
	clock     func() time.Time

	onState   func(domain.ImportFlowState)
	onMessage func(domain.ChatEvent)

	metrics *observability.Metrics
	logger  *zap.Logger

	lastActivity time.Time
}

// NewSession creates an import session with its collaborators injected.
func NewSession(
	userID string,
	ref domain.ReferenceData,
	extractor port.DocumentExtractor,
	store port.LedgerStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *Session {
	s := &Session{
		id:        uuid.NewString(),
		userID:    userID,
		state:     domain.NewImportFlowState(),
		ref:       ref,
		extractor: extractor,
		store:     store,
		window:    heuristic.DefaultYearWindow(),
		clock:     time.Now,
		metrics:   metrics,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActivity = s.clock()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the owner of the session.
func (s *Session) UserID() string { return s.userID }

// State returns a snapshot of the flow state. Cada mutação substitui o
// estado inteiro — não guarde a referência entre chamadas.
func (s *Session) State() domain.ImportFlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the conversational history so far.
func (s *Session) Transcript() []domain.ChatEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatEvent, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// LastActivity reports when the session last handled an operation. Usado
// pelo janitor do Manager.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// ============================================================
// ProcessFile — extração
// ============================================================

// ProcessFile accepts a raw file and drives extraction. Rejeita submissão
// no meio de um fluxo ativo (um arquivo por sessão); falha de extração vira
// estado de erro com a mensagem do extrator, sem retry automático.
func (s *Session) ProcessFile(ctx context.Context, file domain.FileUpload) {
	ctx, span := tracer.Start(ctx, "Session.ProcessFile")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.id))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if !s.state.Step.AcceptsNewFile() {
		s.logger.Warn("processFile rejected: session already active",
			zap.String("session_id", s.id),
			zap.String("step", string(s.state.Step)),
		)
		s.emit(domain.EventWarning, "Já existe uma importação em andamento. Conclua ou reinicie antes de enviar outro arquivo.", nil)
		return
	}

	tipoArquivo := heuristic.DetectFileType(file.Name)
	s.dispatch(flow.StartAnalysis{NomeArquivo: file.Name, TipoArquivo: tipoArquivo})
	s.emit(domain.EventNotice, fmt.Sprintf("Recebi o arquivo %s. Analisando…", file.Name), nil)

	inicio := s.clock()
	result, err := s.extractor.ProcessDocument(ctx, file, s.userID)
	s.metrics.RecordExtractionDuration(time.Since(inicio))

	if err != nil {
		s.logger.Error("extraction failed",
			zap.String("session_id", s.id),
			zap.String("file", file.Name),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("extractor")
		s.dispatch(flow.AnalysisFailed{Mensagem: err.Error()})
		s.emit(domain.EventError, fmt.Sprintf("Não consegui ler esse documento: %s", err.Error()), nil)
		return
	}

	transacoes := s.prepareTransactions(result.Transacoes)
	s.sugerido = heuristic.AutoIdentifyCard(transacoes, s.ref.Cartoes)

	s.dispatch(flow.AnalysisComplete{
		TipoDocumento: normalizeDocType(result.TipoDocumento),
		Confianca:     result.Confianca,
		Transacoes:    transacoes,
		Observacoes:   result.Observacoes,
	})

	s.logger.Info("extraction complete",
		zap.String("session_id", s.id),
		zap.String("document_type", s.state.TipoDocumento),
		zap.Float64("confidence", s.state.Confianca),
		zap.Int("transactions", s.state.TotalTransacoes),
	)

	s.emit(domain.EventNotice, fmt.Sprintf(
		"Encontrei %d transações somando R$ %.2f.", s.state.TotalTransacoes, s.state.ValorTotal), nil)
	for _, obs := range result.Observacoes {
		s.emit(domain.EventNotice, obs, nil)
	}

	s.advance()
}

// prepareTransactions assigns temp ids, defaults selection and flags
// in-batch duplicates.
func (s *Session) prepareTransactions(transacoes []domain.ExtractedTransaction) []domain.ExtractedTransaction {
	out := make([]domain.ExtractedTransaction, len(transacoes))
	copy(out, transacoes)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
		out[i].Selected = true
		out[i].Duplicada = false
	}
	return heuristic.MarkDuplicates(out)
}

// normalizeDocType clamps extractor output to the closed document-type set.
func normalizeDocType(tipo string) string {
	switch tipo {
	case domain.DocFaturaCartao, domain.DocExtratoConta, domain.DocComprovantePix:
		return tipo
	default:
		return domain.DocOutro
	}
}

// ============================================================
// AnswerQuestion — o loop de perguntas
// ============================================================

// AnswerQuestion records the answer to the pending question and advances the
// flow. Respostas com id diferente da pergunta pendente são callbacks de UI
// atrasados — no-op silencioso, nunca erro.
func (s *Session) AnswerQuestion(questionID, resposta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.state.CurrentQuestion == nil || s.state.CurrentQuestion.ID != questionID {
		s.logger.Debug("stale answer ignored",
			zap.String("session_id", s.id),
			zap.String("question_id", questionID),
		)
		return
	}

	action, ok := s.answerAction(questionID, resposta)
	if !ok {
		// Resposta inválida para a pergunta: mantém a pergunta pendente.
		s.emit(domain.EventWarning, "Não entendi essa resposta. Escolha uma das opções.", s.state.CurrentQuestion)
		return
	}

	s.dispatch(flow.RecordAnswer{QuestionID: questionID, Resposta: resposta})
	s.dispatch(action)
	s.advance()
}

// answerAction maps (question id, answer) to the semantic reducer action.
func (s *Session) answerAction(questionID, resposta string) (flow.Action, bool) {
	switch questionID {

	case domain.QuestionConfirmaTipo:
		return flow.SetDocumentType{TipoDocumento: normalizeDocType(resposta)}, true

	case domain.QuestionSelecionaCartao:
		for _, c := range s.ref.Cartoes {
			if c.ID == resposta {
				return flow.SelectCard{CartaoID: c.ID, CartaoNome: c.Nome}, true
			}
		}
		return nil, false

	case domain.QuestionSelecionaConta:
		for _, c := range s.ref.Contas {
			if c.ID == resposta {
				return flow.SelectAccount{ContaID: c.ID, ContaNome: c.Nome}, true
			}
		}
		return nil, false

	case domain.QuestionSelecionaDestino:
		switch resposta {
		case domain.DestinoCartao, domain.DestinoConta, domain.DestinoAvulso:
			return flow.ChooseDestinationMode{Modo: resposta}, true
		}
		return nil, false

	case domain.QuestionConfirmaDatas:
		switch resposta {
		case domain.DatasConfiar, domain.DatasReajuste:
			return flow.DecideDates{Decisao: resposta}, true
		}
		return nil, false

	case domain.QuestionSelecionaPeriodo:
		var ano, mes int
		if _, err := fmt.Sscanf(resposta, "%4d-%2d", &ano, &mes); err != nil || mes < 1 || mes > 12 {
			return nil, false
		}
		return flow.SetReferencePeriod{Mes: mes, Ano: ano}, true
	}

	return nil, false
}

// advance asks the next question or enters preview. Exatamente uma das
// duas coisas acontece — nunca há duas perguntas pendentes.
func (s *Session) advance() {
	d := flow.NextQuestion(s.state, s.ref, s.sugerido, s.clock())
	if d.Question != nil {
		s.dispatch(flow.AskQuestion{Question: *d.Question, Step: d.Step})
		s.metrics.IncrQuestionAsked(d.Question.ID)
		s.emit(domain.EventQuestion, d.Question.Pergunta, d.Question)
		return
	}

	s.dispatch(flow.EnterPreview{})
	s.emit(domain.EventPreview, fmt.Sprintf(
		"Tudo certo! Revise as %d transações (R$ %.2f no total), ajuste o que quiser e confirme a importação.",
		s.state.TotalTransacoes, s.state.ValorTotal), nil)
}

// ============================================================
// Preview — seleção e categoria
// ============================================================

// ToggleTransaction flips one transaction's inclusion. Válido só no preview;
// fora dele é no-op (callback de UI atrasado).
func (s *Session) ToggleTransaction(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.state.Step != domain.StepPreview {
		return
	}
	s.dispatch(flow.ToggleTransaction{ID: id})
}

// UpdateTransactionCategory overrides one transaction's category. Válido só
// no preview.
func (s *Session) UpdateTransactionCategory(id, categoriaID, categoriaNome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.state.Step != domain.StepPreview {
		return
	}
	s.dispatch(flow.SetTransactionCategory{ID: id, CategoriaID: categoriaID, CategoriaNome: categoriaNome})
}

// ============================================================
// Reset
// ============================================================

// Reset returns to idle unconditionally, discarding in-flight state. O
// transcript da conversa é mantido; só o fluxo zera.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.sugerido = nil
	s.dispatch(flow.ResetFlow{})
	s.emit(domain.EventNotice, "Importação reiniciada. Me envie um arquivo quando quiser.", nil)
}

// ============================================================
// Internals
// ============================================================

// dispatch runs one reducer transition and notifies the state listener.
func (s *Session) dispatch(action flow.Action) {
	s.state = flow.Reduce(s.state, action)
	if s.onState != nil {
		s.onState(s.state)
	}
}

// emit appends a chat event to the transcript and notifies the listener.
func (s *Session) emit(kind domain.ChatEventKind, texto string, q *domain.ImportQuestion) {
	ev := domain.ChatEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Texto:     texto,
		Question:  q,
		Timestamp: s.clock(),
	}
	s.transcript = append(s.transcript, ev)
	if s.onMessage != nil {
		s.onMessage(ev)
	}
}

func (s *Session) touch() {
	s.lastActivity = s.clock()
}
