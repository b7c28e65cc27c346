// Package service — commit.go: resolução final e gravação em lote.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/flow"
	"github.com/boddenberg/doc-import-bfa-go/internal/heuristic"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ConfirmImport resolves the selected transactions (date repair, ledger
// type, category), de-duplicates and performs the single batch insert.
//
// Sem nada selecionado: aviso local, estado continua no preview. Falha de
// storage: estado de erro com a mensagem do store; as transações ficam
// intactas e o chamador pode reconfirmar o lote inteiro — retry parcial não
// existe (a atomicidade é do banco).
func (s *Session) ConfirmImport(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "Session.ConfirmImport")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.id))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.state.Step != domain.StepPreview {
		return
	}

	selecionadas := selectedTransactions(s.state.Transacoes)
	if len(selecionadas) == 0 {
		s.emit(domain.EventWarning, "Nenhuma transação selecionada. Marque pelo menos uma para importar.", nil)
		return
	}

	rows := s.buildRows(selecionadas)
	span.SetAttributes(attribute.Int("rows", len(rows)))

	s.dispatch(flow.StartImport{})
	s.emit(domain.EventNotice, fmt.Sprintf("Importando %d transações…", len(rows)), nil)

	inicio := s.clock()
	err := s.store.InsertTransactions(ctx, rows)
	s.metrics.RecordCommitDuration(time.Since(inicio))

	if err != nil {
		s.logger.Error("batch insert failed",
			zap.String("session_id", s.id),
			zap.Int("rows", len(rows)),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("store")
		s.metrics.IncrImport("error")
		s.dispatch(flow.ImportFailed{Mensagem: err.Error()})
		s.emit(domain.EventError, fmt.Sprintf("A importação falhou: %s. Nada foi gravado — você pode tentar de novo.", err.Error()), nil)
		return
	}

	s.metrics.IncrImport("success")
	s.metrics.AddTransactionsImported(len(rows))
	s.dispatch(flow.ImportCompleted{Count: len(rows)})
	s.emit(domain.EventResult, fmt.Sprintf("Pronto! Importei %d transações. ✓", len(rows)), nil)

	s.logger.Info("import committed",
		zap.String("session_id", s.id),
		zap.String("user_id", s.userID),
		zap.Int("imported", len(rows)),
	)
}

// selectedTransactions filters the user-approved subset and re-runs the
// duplicate check on it, dropping repeats that survived selection.
func selectedTransactions(transacoes []domain.ExtractedTransaction) []domain.ExtractedTransaction {
	subset := make([]domain.ExtractedTransaction, 0, len(transacoes))
	for _, tx := range transacoes {
		if tx.Selected {
			tx.Duplicada = false
			subset = append(subset, tx)
		}
	}

	marcadas := heuristic.MarkDuplicates(subset)
	out := marcadas[:0]
	for _, tx := range marcadas {
		if !tx.Duplicada {
			out = append(out, tx)
		}
	}
	return out
}

// buildRows resolves each transaction to a final ledger row: repaired date,
// destination-appropriate type and a guaranteed category.
func (s *Session) buildRows(selecionadas []domain.ExtractedTransaction) []domain.LedgerRow {
	ref, explicita := s.referencePeriod()

	rows := make([]domain.LedgerRow, 0, len(selecionadas))
	for _, tx := range selecionadas {
		data := heuristic.RepairDate(tx.DataBruta, ref, explicita, s.window)

		categoriaID := tx.CategoriaID
		if categoriaID == "" {
			categoriaID, _ = heuristic.SuggestCategory(tx.Descricao, tx.CategoriaNome, s.ref.Categorias)
		}

		row := domain.LedgerRow{
			UserID:      s.userID,
			Descricao:   tx.Descricao,
			Valor:       tx.Valor,
			Data:        data.Format("2006-01-02"),
			Tipo:        s.resolveTipo(tx),
			CategoriaID: categoriaID,
			Origem:      domain.OrigemImportacao,
			Status:      domain.StatusConfirmada,
		}
		if s.state.CartaoID != "" {
			id := s.state.CartaoID
			row.CartaoID = &id
		}
		if s.state.ContaID != "" {
			id := s.state.ContaID
			row.ContaID = &id
		}
		rows = append(rows, row)
	}
	return rows
}

// referencePeriod returns the period anchoring date repair. Sem período
// escolhido (datas confiáveis ou import avulso), o mês corrente serve de
// âncora para datas faltantes, sem sobrescrever as válidas.
func (s *Session) referencePeriod() (domain.Period, bool) {
	if !s.state.Periodo.IsZero() {
		return s.state.Periodo, true
	}
	agora := s.clock()
	return domain.Period{Mes: int(agora.Month()), Ano: agora.Year()}, false
}

// resolveTipo maps extraction direction + destination to the ledger type.
// Créditos viram receita independente do destino.
func (s *Session) resolveTipo(tx domain.ExtractedTransaction) string {
	if tx.Direction == domain.DirectionCredit {
		return domain.TipoReceita
	}
	switch {
	case s.state.CartaoID != "":
		return domain.TipoDespesaCartao
	case s.state.ContaID != "":
		return domain.TipoDespesaConta
	default:
		return domain.TipoDespesa
	}
}
