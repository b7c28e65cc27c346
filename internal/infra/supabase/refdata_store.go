package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Reference data (implements port.ReferenceDataSource)
// ============================================================

// supabaseCard maps the cartoes table columns.
type supabaseCard struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Nome           string `json:"nome"`
	UltimosDigitos string `json:"ultimos_digitos"`
	DiaFechamento  int    `json:"dia_fechamento"`
	DiaVencimento  int    `json:"dia_vencimento"`
}

// ListCards fetches the user's registered credit cards.
func (c *Client) ListCards(ctx context.Context, userID string) ([]domain.Card, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCards")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var cards []domain.Card

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("cartoes?user_id=eq.%s&order=nome.asc", userID)
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				cards = []domain.Card{}
				return nil
			}

			var rows []supabaseCard
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode cards: %w", err)
			}

			cards = make([]domain.Card, 0, len(rows))
			for _, r := range rows {
				cards = append(cards, domain.Card{
					ID:             r.ID,
					Nome:           r.Nome,
					UltimosDigitos: r.UltimosDigitos,
					DiaFechamento:  r.DiaFechamento,
					DiaVencimento:  r.DiaVencimento,
				})
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/cartoes", Err: err}
	}
	return cards, nil
}

// supabaseAccount maps the contas table columns.
type supabaseAccount struct {
	ID     string  `json:"id"`
	UserID string  `json:"user_id"`
	Nome   string  `json:"nome"`
	Tipo   string  `json:"tipo"`
	Saldo  float64 `json:"saldo"`
}

// ListAccounts fetches the user's registered bank accounts.
func (c *Client) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAccounts")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var accounts []domain.Account

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("contas?user_id=eq.%s&order=nome.asc", userID)
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				accounts = []domain.Account{}
				return nil
			}

			var rows []supabaseAccount
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode accounts: %w", err)
			}

			accounts = make([]domain.Account, 0, len(rows))
			for _, r := range rows {
				accounts = append(accounts, domain.Account{
					ID:    r.ID,
					Nome:  r.Nome,
					Tipo:  r.Tipo,
					Saldo: r.Saldo,
				})
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/contas", Err: err}
	}
	return accounts, nil
}

// supabaseCategory maps the categorias table columns.
type supabaseCategory struct {
	ID        string `json:"id"`
	Nome      string `json:"nome"`
	Aplicavel string `json:"aplicavel"`
}

// ListCategories fetches the category taxonomy. Categorias são globais do
// produto, não por usuário — o filtro fica por conta do chamador.
func (c *Client) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCategories")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var categories []domain.Category

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, "categorias?order=nome.asc")
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				categories = []domain.Category{}
				return nil
			}

			var rows []supabaseCategory
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode categories: %w", err)
			}

			categories = make([]domain.Category, 0, len(rows))
			for _, r := range rows {
				categories = append(categories, domain.Category{
					ID:        r.ID,
					Nome:      r.Nome,
					Aplicavel: r.Aplicavel,
				})
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/categorias", Err: err}
	}
	return categories, nil
}
