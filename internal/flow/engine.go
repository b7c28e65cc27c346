package flow

import (
	"fmt"
	"time"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
)

// ============================================================
// Question Engine — a árvore de decisão "o que perguntar agora"
// ============================================================
//
// Não é um motor de regras genérico: é uma árvore fixa, avaliada toda vez que
// o orquestrador precisa saber a próxima pergunta. Todo o branching do fluxo
// mora aqui, testável isolado do orquestrador.

// ConfidenceThreshold below which the user must confirm the document type.
const ConfidenceThreshold = 0.7

// Decision is the engine's verdict: either the next question (with the step
// it belongs to) or, with a nil Question, "go to preview".
type Decision struct {
	Question *domain.ImportQuestion
	Step     domain.Step
}

// NextQuestion evaluates the fixed decision tree against the current state.
//
// Ordem das decisões:
//  1. Confiança baixa e tipo não confirmado → confirmar tipo do documento.
//  2. Caminho de cartão sem cartão escolhido → escolher cartão (com a
//     sugestão da heurística pré-marcada, se houver).
//  3. Caminho de conta sem conta escolhida → escolher conta (sem
//     auto-detecção: sinal insuficiente).
//  4. Nenhum caminho implicado e nenhum modo escolhido → pergunta de
//     fallback (cartão / conta / avulso).
//  5. Conta escolhida e datas não decididas → confiar ou reajustar datas.
//  6. Período pendente (cartão sempre pede; conta só após "reajustar") →
//     escolher mês de referência (últimos três meses como atalho).
//  7. Nada pendente → preview.
//
// agora ancora as opções de mês; sugerido é o cartão auto-identificado.
func NextQuestion(st domain.ImportFlowState, ref domain.ReferenceData, sugerido *domain.Card, agora time.Time) Decision {
	if st.Confianca < ConfidenceThreshold && !st.TipoConfirmado {
		return Decision{Question: confirmTypeQuestion(st), Step: domain.StepConfirmingType}
	}

	if st.CaminhoCartao() && st.CartaoID == "" {
		if len(ref.Cartoes) > 0 {
			return Decision{Question: selectCardQuestion(ref.Cartoes, sugerido), Step: domain.StepSelectingDestination}
		}
		// Fatura sem cartão cadastrado: cai no caminho genérico.
		if st.ModoDestino == "" {
			return Decision{Question: selectDestinationQuestion(ref), Step: domain.StepSelectingDestination}
		}
	}

	if st.CaminhoConta() && st.ContaID == "" {
		if len(ref.Contas) > 0 {
			return Decision{Question: selectAccountQuestion(ref.Contas), Step: domain.StepSelectingDestination}
		}
		if st.ModoDestino == "" {
			return Decision{Question: selectDestinationQuestion(ref), Step: domain.StepSelectingDestination}
		}
	}

	if !st.CaminhoCartao() && !st.CaminhoConta() && st.ModoDestino == "" {
		return Decision{Question: selectDestinationQuestion(ref), Step: domain.StepSelectingDestination}
	}

	if st.CaminhoConta() && st.ContaID != "" && st.DecisaoDatas == "" {
		return Decision{Question: confirmDatesQuestion(), Step: domain.StepCollectingData}
	}

	if needsPeriod(st) {
		return Decision{Question: selectPeriodQuestion(agora), Step: domain.StepCollectingData}
	}

	return Decision{Step: domain.StepPreview}
}

// needsPeriod: o caminho de cartão sempre pede período; o de conta só quando
// o usuário mandou reajustar as datas.
func needsPeriod(st domain.ImportFlowState) bool {
	if !st.Periodo.IsZero() {
		return false
	}
	if st.CaminhoCartao() && st.CartaoID != "" {
		return true
	}
	if st.CaminhoConta() && st.DecisaoDatas == domain.DatasReajuste {
		return true
	}
	return false
}

// ============================================================
// Construção das perguntas
// ============================================================

func confirmTypeQuestion(st domain.ImportFlowState) *domain.ImportQuestion {
	opcoes := []domain.QuestionOption{
		{ID: domain.DocFaturaCartao, Label: "Fatura de cartão de crédito"},
		{ID: domain.DocExtratoConta, Label: "Extrato bancário"},
		{ID: domain.DocComprovantePix, Label: "Comprovante PIX"},
		{ID: domain.DocOutro, Label: "Outro documento"},
	}
	for i := range opcoes {
		if opcoes[i].ID == st.TipoDocumento {
			opcoes[i].Sugerida = true
			opcoes[i].Descricao = fmt.Sprintf("Detectado com %.0f%% de confiança", st.Confianca*100)
		}
	}
	return &domain.ImportQuestion{
		ID:          domain.QuestionConfirmaTipo,
		Kind:        domain.QuestionSingleChoice,
		Pergunta:    "Não tenho certeza do tipo desse documento. O que é?",
		Opcoes:      opcoes,
		Obrigatoria: true,
	}
}

func selectCardQuestion(cartoes []domain.Card, sugerido *domain.Card) *domain.ImportQuestion {
	opcoes := make([]domain.QuestionOption, 0, len(cartoes))
	for _, c := range cartoes {
		op := domain.QuestionOption{ID: c.ID, Label: c.Nome}
		if c.UltimosDigitos != "" {
			op.Label = fmt.Sprintf("%s •••• %s", c.Nome, c.UltimosDigitos)
		}
		if c.DiaFechamento > 0 && c.DiaVencimento > 0 {
			op.Descricao = fmt.Sprintf("Fecha dia %d, vence dia %d", c.DiaFechamento, c.DiaVencimento)
		}
		if sugerido != nil && sugerido.ID == c.ID {
			op.Sugerida = true
		}
		opcoes = append(opcoes, op)
	}

	pergunta := "De qual cartão é essa fatura?"
	if sugerido != nil {
		pergunta = fmt.Sprintf("Parece ser a fatura do cartão %s. Confirma?", sugerido.Nome)
	}
	return &domain.ImportQuestion{
		ID:          domain.QuestionSelecionaCartao,
		Kind:        domain.QuestionSingleChoice,
		Pergunta:    pergunta,
		Opcoes:      opcoes,
		Obrigatoria: true,
	}
}

func selectAccountQuestion(contas []domain.Account) *domain.ImportQuestion {
	opcoes := make([]domain.QuestionOption, 0, len(contas))
	for _, c := range contas {
		opcoes = append(opcoes, domain.QuestionOption{
			ID:        c.ID,
			Label:     c.Nome,
			Descricao: fmt.Sprintf("%s — saldo R$ %.2f", c.Tipo, c.Saldo),
		})
	}
	return &domain.ImportQuestion{
		ID:          domain.QuestionSelecionaConta,
		Kind:        domain.QuestionSingleChoice,
		Pergunta:    "Em qual conta devo importar essas movimentações?",
		Opcoes:      opcoes,
		Obrigatoria: true,
	}
}

func selectDestinationQuestion(ref domain.ReferenceData) *domain.ImportQuestion {
	opcoes := make([]domain.QuestionOption, 0, 3)
	if len(ref.Cartoes) > 0 {
		opcoes = append(opcoes, domain.QuestionOption{
			ID:    domain.DestinoCartao,
			Label: "Como despesas de cartão de crédito",
		})
	}
	if len(ref.Contas) > 0 {
		opcoes = append(opcoes, domain.QuestionOption{
			ID:    domain.DestinoConta,
			Label: "Como movimentações de uma conta",
		})
	}
	opcoes = append(opcoes, domain.QuestionOption{
		ID:        domain.DestinoAvulso,
		Label:     "Como lançamentos avulsos",
		Descricao: "Sem vínculo com cartão ou conta",
	})
	return &domain.ImportQuestion{
		ID:          domain.QuestionSelecionaDestino,
		Kind:        domain.QuestionSingleChoice,
		Pergunta:    "Como você quer importar essas transações?",
		Opcoes:      opcoes,
		Obrigatoria: true,
	}
}

func confirmDatesQuestion() *domain.ImportQuestion {
	return &domain.ImportQuestion{
		ID:       domain.QuestionConfirmaDatas,
		Kind:     domain.QuestionSingleChoice,
		Pergunta: "As datas do documento parecem corretas, ou prefere reatribuir tudo a um mês de referência?",
		Opcoes: []domain.QuestionOption{
			{ID: domain.DatasConfiar, Label: "Usar as datas do documento", Sugerida: true},
			{ID: domain.DatasReajuste, Label: "Reatribuir a um mês de referência"},
		},
		Obrigatoria: true,
	}
}

var mesesPtBR = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

func selectPeriodQuestion(agora time.Time) *domain.ImportQuestion {
	opcoes := make([]domain.QuestionOption, 0, 3)
	// Ancora no dia 1 para a aritmética de mês não normalizar (31 de março
	// menos um mês viraria 3 de março).
	base := time.Date(agora.Year(), agora.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		m := base.AddDate(0, -i, 0)
		opcoes = append(opcoes, domain.QuestionOption{
			ID:    fmt.Sprintf("%04d-%02d", m.Year(), int(m.Month())),
			Label: fmt.Sprintf("%s/%d", mesesPtBR[m.Month()-1], m.Year()),
		})
	}
	return &domain.ImportQuestion{
		ID:          domain.QuestionSelecionaPeriodo,
		Kind:        domain.QuestionMonthYear,
		Pergunta:    "Qual é o mês de referência dessas transações?",
		Opcoes:      opcoes,
		Obrigatoria: true,
	}
}
