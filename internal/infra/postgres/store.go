// Package postgres provides a direct-Postgres backend via bun, as an
// alternative to the Supabase PostgREST adapter for self-hosted deployments.
// Implements port.LedgerStore and port.ReferenceDataSource.
package postgres

import (
	"context"
	"database/sql"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgres")

// Store wraps a bun DB handle over the finance schema.
type Store struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewStore opens a connection pool from the DSN and pings it.
func NewStore(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	// NewConnector panics on an invalid DSN.
	pgconn := pgdriver.NewConnector(pgdriver.WithDSN(dsn))

	sqldb := sql.OpenDB(pgconn)
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, err
	}

	return &Store{db: bun.NewDB(sqldb, pgdialect.New()), logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================================
// Table models
// ============================================================

type cartaoModel struct {
	bun.BaseModel `bun:"table:cartoes"`

	ID             string `bun:"id,pk"`
	UserID         string `bun:"user_id"`
	Nome           string `bun:"nome"`
	UltimosDigitos string `bun:"ultimos_digitos"`
	DiaFechamento  int    `bun:"dia_fechamento"`
	DiaVencimento  int    `bun:"dia_vencimento"`
}

type contaModel struct {
	bun.BaseModel `bun:"table:contas"`

	ID     string  `bun:"id,pk"`
	UserID string  `bun:"user_id"`
	Nome   string  `bun:"nome"`
	Tipo   string  `bun:"tipo"`
	Saldo  float64 `bun:"saldo"`
}

type categoriaModel struct {
	bun.BaseModel `bun:"table:categorias"`

	ID        string `bun:"id,pk"`
	Nome      string `bun:"nome"`
	Aplicavel string `bun:"aplicavel"`
}

type transacaoModel struct {
	bun.BaseModel `bun:"table:transacoes"`

	UserID      string  `bun:"user_id"`
	Descricao   string  `bun:"descricao"`
	Valor       float64 `bun:"valor"`
	Data        string  `bun:"data"`
	Tipo        string  `bun:"tipo"`
	CategoriaID string  `bun:"categoria_id"`
	CartaoID    *string `bun:"cartao_id"`
	ContaID     *string `bun:"conta_id"`
	Origem      string  `bun:"origem"`
	Status      string  `bun:"status"`
}

// ============================================================
// Reference data (implements port.ReferenceDataSource)
// ============================================================

// ListCards fetches the user's registered credit cards.
func (s *Store) ListCards(ctx context.Context, userID string) ([]domain.Card, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListCards")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var rows []cartaoModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("nome ASC").
		Scan(ctx)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgres/cartoes", Err: err}
	}

	cards := make([]domain.Card, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, domain.Card{
			ID:             r.ID,
			Nome:           r.Nome,
			UltimosDigitos: r.UltimosDigitos,
			DiaFechamento:  r.DiaFechamento,
			DiaVencimento:  r.DiaVencimento,
		})
	}
	return cards, nil
}

// ListAccounts fetches the user's registered bank accounts.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListAccounts")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var rows []contaModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("nome ASC").
		Scan(ctx)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgres/contas", Err: err}
	}

	accounts := make([]domain.Account, 0, len(rows))
	for _, r := range rows {
		accounts = append(accounts, domain.Account{
			ID:    r.ID,
			Nome:  r.Nome,
			Tipo:  r.Tipo,
			Saldo: r.Saldo,
		})
	}
	return accounts, nil
}

// ListCategories fetches the category taxonomy (global, not per user).
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListCategories")
	defer span.End()

	var rows []categoriaModel
	err := s.db.NewSelect().
		Model(&rows).
		Order("nome ASC").
		Scan(ctx)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "postgres/categorias", Err: err}
	}

	categories := make([]domain.Category, 0, len(rows))
	for _, r := range rows {
		categories = append(categories, domain.Category{
			ID:        r.ID,
			Nome:      r.Nome,
			Aplicavel: r.Aplicavel,
		})
	}
	return categories, nil
}

// ============================================================
// Ledger (implements port.LedgerStore)
// ============================================================

// InsertTransactions commits the approved batch in a single multi-row insert.
// Um INSERT só = uma transação do Postgres: ou tudo entra, ou nada entra.
func (s *Store) InsertTransactions(ctx context.Context, rows []domain.LedgerRow) error {
	ctx, span := tracer.Start(ctx, "Postgres.InsertTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(rows)))

	if len(rows) == 0 {
		return nil
	}

	models := make([]transacaoModel, 0, len(rows))
	for _, r := range rows {
		models = append(models, transacaoModel{
			UserID:      r.UserID,
			Descricao:   r.Descricao,
			Valor:       r.Valor,
			Data:        r.Data,
			Tipo:        r.Tipo,
			CategoriaID: r.CategoriaID,
			CartaoID:    r.CartaoID,
			ContaID:     r.ContaID,
			Origem:      r.Origem,
			Status:      r.Status,
		})
	}

	if _, err := s.db.NewInsert().Model(&models).Exec(ctx); err != nil {
		return &domain.ErrExternalService{Service: "postgres/transacoes", Err: err}
	}

	s.logger.Info("ledger batch inserted",
		zap.String("user_id", rows[0].UserID),
		zap.Int("rows", len(rows)),
	)
	return nil
}
