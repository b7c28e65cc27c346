package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/observability"
	"github.com/boddenberg/doc-import-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Limite de upload: faturas em PDF grandes ficam na casa de poucos MB;
// 15MB cobre fotos de comprovante sem abrir a porta para abuso.
const maxUploadBytes = 15 << 20

// sessionResponse is the JSON shape returned by every session endpoint: the
// current state plus the chat transcript, so the frontend can always
// re-render the conversation from one response.
type sessionResponse struct {
	SessionID string                 `json:"sessionId"`
	State     domain.ImportFlowState `json:"state"`
	Messages  []domain.ChatEvent     `json:"messages"`
}

func sessionJSON(s *service.Session) sessionResponse {
	return sessionResponse{
		SessionID: s.ID(),
		State:     s.State(),
		Messages:  s.Transcript(),
	}
}

// ============================================================
// POST /v1/import/sessions — upload + análise
// ============================================================

func createSessionHandler(mgr *service.Manager, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/import/sessions")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read file")
			return
		}
		if len(data) == 0 {
			writeError(w, http.StatusBadRequest, "file is empty")
			return
		}
		if len(data) > maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the 15MB limit")
			return
		}

		sess, err := mgr.CreateSession(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		start := time.Now()
		sess.ProcessFile(ctx, domain.FileUpload{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
		metrics.RecordRequestDuration("import_upload", time.Since(start))

		writeJSON(w, http.StatusCreated, sessionJSON(sess))
	}
}

// ============================================================
// GET state / messages
// ============================================================

func getSessionHandler(mgr *service.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/import/sessions/{sessionId}")
		defer span.End()

		sess, err := mgr.GetSession(chi.URLParam(r, "sessionId"), UserIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sessionJSON(sess))
	}
}

func getMessagesHandler(mgr *service.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/import/sessions/{sessionId}/messages")
		defer span.End()

		sess, err := mgr.GetSession(chi.URLParam(r, "sessionId"), UserIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": sess.Transcript()})
	}
}

// ============================================================
// POST answers — responde a pergunta pendente
// ============================================================

func answerHandler(mgr *service.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/import/sessions/{sessionId}/answers")
		defer span.End()

		sess, err := mgr.GetSession(chi.URLParam(r, "sessionId"), UserIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req struct {
			QuestionID string `json:"questionId"`
			Answer     string `json:"answer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.QuestionID == "" {
			writeError(w, http.StatusBadRequest, "questionId is required")
			return
		}

		sess.AnswerQuestion(req.QuestionID, req.Answer)
		writeJSON(w, http.StatusOK, sessionJSON(sess))
	}
}

// ============================================================
// Preview operations — toggle e override de categoria
// ============================================================

func toggleTransactionHandler(mgr *service.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/import/sessions/{sessionId}/transactions/{txId}/toggle")
		defer span.End()

		sess, err := mgr.GetSession(chi.URLParam(r, "sessionId"), UserIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		sess.ToggleTransaction(chi.URLParam(r, "txId"))
		writeJSON(w, http.StatusOK, sessionJSON(sess))
	}
}

func setCategoryHandler(mgr *service.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "PATCH /v1/import/sessions/{sessionId}/transactions/{txId}/category")
		defer span.End()

		sess, err := mgr.GetSession(chi.URLParam(r, "sessionId"), UserIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req struct {
			CategoriaID   string `json:"categoriaId"`
			CategoriaNome string `json:"categoriaNome"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CategoriaID == "" {
			writeError(w, http.StatusBadRequest, "categoriaId is required")
			return
		}

		sess.UpdateTransactionCategory(chi.URLParam(r, "txId"), req.CategoriaID, req.CategoriaNome)
		writeJSON(w, http.StatusOK, sessionJSON(sess))
	}
}

// ============================================================
// POST confirm / reset
// ============================================================

func confirmHandler(mgr *service.Manager, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/import/sessions/{sessionId}/confirm")
		defer span.End()

		sess, err := mgr.GetSession(chi.URLParam(r, "sessionId"), UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		start := time.Now()
		sess.ConfirmImport(ctx)
		metrics.RecordRequestDuration("import_confirm", time.Since(start))

		writeJSON(w, http.StatusOK, sessionJSON(sess))
	}
}

func resetHandler(mgr *service.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/import/sessions/{sessionId}/reset")
		defer span.End()

		sess, err := mgr.GetSession(chi.URLParam(r, "sessionId"), UserIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		sess.Reset()
		writeJSON(w, http.StatusOK, sessionJSON(sess))
	}
}
