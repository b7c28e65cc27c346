package service

import (
	"context"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/cache"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/observability"
	"github.com/boddenberg/doc-import-bfa-go/internal/port"

	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

// ============================================================
// ReferenceLoader — snapshot de cartões/contas/categorias
// ============================================================

// ReferenceLoader fetches the destination candidates for a user, with a TTL
// cache in front. As três listas são buscadas em paralelo — são leituras
// independentes e a abertura de sessão está no caminho crítico do upload.
type ReferenceLoader struct {
	source  port.ReferenceDataSource
	cache   *cache.InMemory[domain.ReferenceData]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewReferenceLoader creates the loader with its cache injected.
func NewReferenceLoader(
	source port.ReferenceDataSource,
	c *cache.InMemory[domain.ReferenceData],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReferenceLoader {
	return &ReferenceLoader{source: source, cache: c, metrics: metrics, logger: logger}
}

// Load returns the user's reference data, from cache when fresh.
func (l *ReferenceLoader) Load(ctx context.Context, userID string) (domain.ReferenceData, error) {
	if ref, ok := l.cache.Get(userID); ok {
		l.metrics.IncrCacheHit("refdata")
		return ref, nil
	}
	l.metrics.IncrCacheMiss("refdata")

	var ref domain.ReferenceData
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cartoes, err := l.source.ListCards(ctx, userID)
		if err != nil {
			return err
		}
		ref.Cartoes = cartoes
		return nil
	})
	g.Go(func() error {
		contas, err := l.source.ListAccounts(ctx, userID)
		if err != nil {
			return err
		}
		ref.Contas = contas
		return nil
	})
	g.Go(func() error {
		categorias, err := l.source.ListCategories(ctx, userID)
		if err != nil {
			return err
		}
		ref.Categorias = categorias
		return nil
	})

	if err := g.Wait(); err != nil {
		l.logger.Error("reference data fetch failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return domain.ReferenceData{}, err
	}

	l.cache.Set(userID, ref)
	return ref, nil
}

// Invalidate drops the cached snapshot for a user (ex.: cartão recém-criado
// em outra tela precisa aparecer na próxima sessão).
func (l *ReferenceLoader) Invalidate(userID string) {
	l.cache.Delete(userID)
}
