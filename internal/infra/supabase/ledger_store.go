package supabase

import (
	"context"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Ledger (implements port.LedgerStore)
// ============================================================

// supabaseLedgerRow maps the transacoes table columns.
type supabaseLedgerRow struct {
	UserID      string  `json:"user_id"`
	Descricao   string  `json:"descricao"`
	Valor       float64 `json:"valor"`
	Data        string  `json:"data"`
	Tipo        string  `json:"tipo"`
	CategoriaID string  `json:"categoria_id"`
	CartaoID    *string `json:"cartao_id,omitempty"`
	ContaID     *string `json:"conta_id,omitempty"`
	Origem      string  `json:"origem"`
	Status      string  `json:"status"`
}

// InsertTransactions commits the approved batch in a single PostgREST call.
// Um array JSON no POST vira um insert atômico no Postgres — ou tudo entra,
// ou nada entra, que é o contrato do commit da importação.
func (c *Client) InsertTransactions(ctx context.Context, rows []domain.LedgerRow) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(rows)))

	if len(rows) == 0 {
		return nil
	}

	payload := make([]supabaseLedgerRow, 0, len(rows))
	for _, r := range rows {
		payload = append(payload, supabaseLedgerRow{
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

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			_, err := c.doPost(ctx, "transacoes", payload)
			return err
		})
	})

	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/transacoes", Err: err}
	}

	c.logger.Info("ledger batch inserted",
		zap.String("user_id", rows[0].UserID),
		zap.Int("rows", len(rows)),
	)
	return nil
}
