// Package port defines the interfaces the import engine depends on.
//
// Arquitetura hexagonal como no resto dos nossos BFAs: o core depende das
// interfaces, nunca dos adapters concretos (Gemini, Supabase, Postgres) —
// testes substituem tudo por mocks de função simples.
package port

import (
	"context"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
)

// DocumentExtractor turns a raw financial document into candidate
// transactions. Opaque, possibly slow, possibly failing: any error is
// surfaced verbatim as the session's error message and nothing is retried
// automatically by the core.
type DocumentExtractor interface {
	ProcessDocument(ctx context.Context, file domain.FileUpload, userID string) (*domain.ExtractionResult, error)
}

// LedgerStore commits the approved batch. One call, all-or-nothing — partial
// success is not modeled; the underlying store's transactionality is relied
// upon.
type LedgerStore interface {
	InsertTransactions(ctx context.Context, rows []domain.LedgerRow) error
}

// ReferenceDataSource supplies the destination candidates (cards, accounts,
// categories) snapshotted at session start. The core never mutates them.
type ReferenceDataSource interface {
	ListCards(ctx context.Context, userID string) ([]domain.Card, error)
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
}
