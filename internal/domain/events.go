package domain

import "time"

// ============================================================
// Chat events — a superfície conversacional do core
// ============================================================
//
// Cada passo relevante do fluxo gera um ChatEvent via onMessage. Renderizar
// é responsabilidade do chamador; o core só produz os eventos.

// ChatEventKind classifies a conversational utterance.
type ChatEventKind string

const (
	EventNotice   ChatEventKind = "notice"   // avisos do sistema ("analisando arquivo…")
	EventQuestion ChatEventKind = "question" // pergunta pendente
	EventPreview  ChatEventKind = "preview"  // resumo do preview
	EventResult   ChatEventKind = "result"   // resultado final do import
	EventWarning  ChatEventKind = "warning"  // aviso não-fatal (ex.: nada selecionado)
	EventError    ChatEventKind = "error"    // falha de extração ou de commit
)

// ChatEvent is one user-facing conversational utterance.
type ChatEvent struct {
	ID    string        `json:"id"`
	Kind  ChatEventKind `json:"kind"`
	Texto string        `json:"texto"`

	// Question acompanha eventos do tipo question.
	Question *ImportQuestion `json:"question,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
