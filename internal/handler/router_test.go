package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/handler"
	"github.com/boddenberg/doc-import-bfa-go/internal/heuristic"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/cache"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/observability"
	"github.com/boddenberg/doc-import-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Mocks
// ============================================================

type mockExtractor struct {
	result *domain.ExtractionResult
	err    error
}

func (m *mockExtractor) ProcessDocument(ctx context.Context, file domain.FileUpload, userID string) (*domain.ExtractionResult, error) {
	return m.result, m.err
}

type mockStore struct {
	inserted [][]domain.LedgerRow
	err      error
}

func (m *mockStore) InsertTransactions(ctx context.Context, rows []domain.LedgerRow) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, rows)
	return nil
}

type mockRefSource struct {
	cards      []domain.Card
	accounts   []domain.Account
	categories []domain.Category
}

func (m *mockRefSource) ListCards(ctx context.Context, userID string) ([]domain.Card, error) {
	return m.cards, nil
}

func (m *mockRefSource) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	return m.accounts, nil
}

func (m *mockRefSource) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	return m.categories, nil
}

func newTestRouter(t *testing.T, extractor *mockExtractor, store *mockStore) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	source := &mockRefSource{
		cards: []domain.Card{
			{ID: "card-1", Nome: "Nubank", UltimosDigitos: "4321"},
		},
		accounts: []domain.Account{
			{ID: "acc-1", Nome: "Itaú Corrente", Tipo: "corrente"},
		},
		categories: []domain.Category{
			{ID: "cat-alim", Nome: "Alimentação", Aplicavel: domain.CategoriaDespesa},
			{ID: "outros", Nome: "Outros", Aplicavel: domain.CategoriaAmbos},
		},
	}
	loader := service.NewReferenceLoader(source, cache.New[domain.ReferenceData](time.Minute), metrics, logger)
	mgr := service.NewManager(loader, extractor, store, heuristic.DefaultYearWindow(), time.Minute, metrics, logger)

	return handler.NewRouter(mgr, metrics, handler.RouterConfig{JWTSecret: "test-secret", DevAuth: true}, logger)
}

func uploadRequest(t *testing.T, userID, fileName string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fmt.Fprint(fw, "%PDF-1.4 fake invoice bytes")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/import/sessions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", userID)
	return req
}

func decodeSession(t *testing.T, body *bytes.Buffer) (sessionID string, state map[string]any) {
	t.Helper()

	var resp struct {
		SessionID string         `json:"sessionId"`
		State     map[string]any `json:"state"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.SessionID, resp.State
}

// ============================================================
// Tests
// ============================================================

func TestCreateSession_Unauthorized(t *testing.T) {
	router := newTestRouter(t, &mockExtractor{}, &mockStore{})

	req := httptest.NewRequest(http.MethodPost, "/v1/import/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestCreateSession_UploadStartsFlow(t *testing.T) {
	extractor := &mockExtractor{
		result: &domain.ExtractionResult{
			TipoDocumento: domain.DocFaturaCartao,
			Confianca:     0.95,
			Transacoes: []domain.ExtractedTransaction{
				{DataBruta: "15/03", Descricao: "IFOOD", Valor: 54.9, Direction: domain.DirectionDebit},
			},
		},
	}
	router := newTestRouter(t, extractor, &mockStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "user-1", "fatura.pdf"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	sessionID, state := decodeSession(t, rec.Body)
	if sessionID == "" {
		t.Fatal("expected a session id")
	}
	// Fatura com um cartão cadastrado: o fluxo para na escolha do cartão.
	if state["step"] != string(domain.StepSelectingDestination) {
		t.Errorf("expected step selecting_destination, got %v", state["step"])
	}
}

func TestGetSession_WrongUser(t *testing.T) {
	extractor := &mockExtractor{
		result: &domain.ExtractionResult{TipoDocumento: domain.DocOutro, Confianca: 0.9},
	}
	router := newTestRouter(t, extractor, &mockStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "user-1", "recibo.jpg"))
	sessionID, _ := decodeSession(t, rec.Body)

	req := httptest.NewRequest(http.MethodGet, "/v1/import/sessions/"+sessionID, nil)
	req.Header.Set("X-User-ID", "user-2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another user's session, got %d", rec.Code)
	}
}

func TestAnswer_MissingQuestionID(t *testing.T) {
	extractor := &mockExtractor{
		result: &domain.ExtractionResult{TipoDocumento: domain.DocFaturaCartao, Confianca: 0.9},
	}
	router := newTestRouter(t, extractor, &mockStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "user-1", "fatura.pdf"))
	sessionID, _ := decodeSession(t, rec.Body)

	body := bytes.NewBufferString(`{"answer": "card-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/import/sessions/"+sessionID+"/answers", body)
	req.Header.Set("X-User-ID", "user-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestImportFlow_EndToEnd(t *testing.T) {
	extractor := &mockExtractor{
		result: &domain.ExtractionResult{
			TipoDocumento: domain.DocFaturaCartao,
			Confianca:     0.95,
			Transacoes: []domain.ExtractedTransaction{
				{DataBruta: "10/03", Descricao: "IFOOD *REST", Valor: 54.9, Direction: domain.DirectionDebit},
				{DataBruta: "11/03", Descricao: "UBER TRIP", Valor: 23.5, Direction: domain.DirectionDebit},
			},
		},
	}
	store := &mockStore{}
	router := newTestRouter(t, extractor, store)

	// 1. Upload.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "user-1", "fatura.pdf"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d", rec.Code)
	}
	sessionID, _ := decodeSession(t, rec.Body)

	answer := func(questionID, value string) map[string]any {
		body, _ := json.Marshal(map[string]string{"questionId": questionID, "answer": value})
		req := httptest.NewRequest(http.MethodPost, "/v1/import/sessions/"+sessionID+"/answers", bytes.NewReader(body))
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("answer %s: expected 200, got %d: %s", questionID, rec.Code, rec.Body.String())
		}
		_, state := decodeSession(t, rec.Body)
		return state
	}

	// 2. Pick the card, then the invoice period.
	state := answer("selecionar_cartao", "card-1")
	if state["step"] != string(domain.StepCollectingData) {
		t.Fatalf("expected collecting_data after card, got %v", state["step"])
	}
	state = answer("selecionar_periodo", "2024-03")
	if state["step"] != string(domain.StepPreview) {
		t.Fatalf("expected preview after period, got %v", state["step"])
	}
	if state["totalTransacoes"] != float64(2) {
		t.Errorf("expected 2 transactions in preview, got %v", state["totalTransacoes"])
	}

	// 3. Confirm.
	req := httptest.NewRequest(http.MethodPost, "/v1/import/sessions/"+sessionID+"/confirm", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", rec.Code)
	}
	_, state = decodeSession(t, rec.Body)
	if state["step"] != string(domain.StepCompleted) {
		t.Errorf("expected completed, got %v", state["step"])
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 batch insert, got %d", len(store.inserted))
	}
	if len(store.inserted[0]) != 2 {
		t.Errorf("expected 2 rows committed, got %d", len(store.inserted[0]))
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &mockExtractor{}, &mockStore{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestImportMetricsSnapshot(t *testing.T) {
	router := newTestRouter(t, &mockExtractor{}, &mockStore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics/import", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap observability.ImportSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
}
