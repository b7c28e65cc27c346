package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/heuristic"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/observability"
	"github.com/boddenberg/doc-import-bfa-go/internal/port"

	"go.uber.org/zap"
)

// ============================================================
// Manager — registro de sessões em memória
// ============================================================

// Manager owns the live import sessions. Uma sessão por arquivo; sessões
// abandonadas expiram via janitor (mesmo padrão do cache TTL).
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	loader    *ReferenceLoader
	extractor port.DocumentExtractor
	store     port.LedgerStore
	window    heuristic.YearWindow
	ttl       time.Duration

	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewManager creates the session registry and starts its janitor.
func NewManager(
	loader *ReferenceLoader,
	extractor port.DocumentExtractor,
	store port.LedgerStore,
	window heuristic.YearWindow,
	ttl time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		loader:    loader,
		extractor: extractor,
		store:     store,
		window:    window,
		ttl:       ttl,
		metrics:   metrics,
		logger:    logger,
	}
	go m.janitor()
	return m
}

// CreateSession snapshots the user's reference data and opens a session.
func (m *Manager) CreateSession(ctx context.Context, userID string) (*Session, error) {
	ref, err := m.loader.Load(ctx, userID)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "reference-data", Err: err}
	}

	s := NewSession(userID, ref, m.extractor, m.store, m.metrics, m.logger,
		WithYearWindow(m.window),
	)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.metrics.IncrSessionStarted()
	m.logger.Info("import session created",
		zap.String("session_id", s.ID()),
		zap.String("user_id", userID),
		zap.Int("cards", len(ref.Cartoes)),
		zap.Int("accounts", len(ref.Contas)),
		zap.Int("categories", len(ref.Categorias)),
	)
	return s, nil
}

// GetSession returns a session owned by the user, or ErrNotFound. O check de
// dono evita que uma sessão vaze entre usuários autenticados.
func (m *Manager) GetSession(sessionID, userID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok || s.UserID() != userID {
		return nil, &domain.ErrNotFound{Resource: "import_session", ID: sessionID}
	}
	return s, nil
}

// RemoveSession drops a session from the registry.
func (m *Manager) RemoveSession(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// janitor periodically evicts sessions idle past the TTL.
func (m *Manager) janitor() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for range ticker.C {
		limite := time.Now().Add(-m.ttl)

		m.mu.Lock()
		for id, s := range m.sessions {
			if s.LastActivity().Before(limite) {
				delete(m.sessions, id)
				m.logger.Debug("expired import session evicted", zap.String("session_id", id))
			}
		}
		m.mu.Unlock()
	}
}
