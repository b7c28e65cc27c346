// Package extractor provides the Gemini-backed document extractor.
// Used as the real implementation of port.DocumentExtractor.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/heuristic"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var tracer = otel.Tracer("extractor")

// Gemini sends financial documents to the Gemini multimodal API and decodes
// the strict-JSON response into an ExtractionResult.
type Gemini struct {
	client *genai.Client
	model  string
	cb     *gobreaker.CircuitBreaker
	cfg    resilience.Config
	logger *zap.Logger
}

// NewGemini creates the extractor. O client da genai lê a API key do ambiente
// (GEMINI_API_KEY), como nos outros serviços que usam o SDK.
func NewGemini(ctx context.Context, model string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("extractor: create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, cb: cb, cfg: cfg, logger: logger}, nil
}

// geminiTransaction maps the model's JSON contract.
type geminiTransaction struct {
	DataBruta string  `json:"dataBruta"`
	Descricao string  `json:"descricao"`
	Valor     float64 `json:"valor"`
	Direction string  `json:"direction"`
	Categoria string  `json:"categoria"`
}

type geminiResponse struct {
	TipoDocumento string              `json:"tipoDocumento"`
	Confianca     float64             `json:"confianca"`
	Transacoes    []geminiTransaction `json:"transacoes"`
	Observacoes   []string            `json:"observacoes"`
}

// ProcessDocument implements port.DocumentExtractor.
func (g *Gemini) ProcessDocument(ctx context.Context, file domain.FileUpload, userID string) (*domain.ExtractionResult, error) {
	ctx, span := tracer.Start(ctx, "Gemini.ProcessDocument")
	defer span.End()

	fileType := heuristic.DetectFileType(file.Name)
	mimeType := file.ContentType
	if mimeType == "" {
		mimeType = heuristic.MIMEType(fileType)
	}
	span.SetAttributes(
		attribute.String("file.type", fileType),
		attribute.Int("file.size", len(file.Data)),
	)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractionPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     file.Data,
					},
				},
			},
		},
	}

	var result *domain.ExtractionResult

	_, err := g.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, g.cfg, func() error {
			resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
			if err != nil {
				return fmt.Errorf("generate content: %w", err)
			}

			rawText := resp.Text()
			if rawText == "" {
				return fmt.Errorf("empty response from model")
			}

			parsed, err := decodeResponse(rawText)
			if err != nil {
				return err
			}
			result = parsed
			return nil
		})
	})

	if err != nil {
		g.logger.Error("extraction failed",
			zap.String("user_id", userID),
			zap.String("file_type", fileType),
			zap.Error(err),
		)
		return nil, &domain.ErrExternalService{Service: "gemini", Err: err}
	}

	g.logger.Info("document extracted",
		zap.String("user_id", userID),
		zap.String("file_type", fileType),
		zap.String("doc_type", result.TipoDocumento),
		zap.Float64("confidence", result.Confianca),
		zap.Int("transactions", len(result.Transacoes)),
	)
	return result, nil
}

// decodeResponse cleans and decodes the model's JSON, normalizing into the
// domain contract. Tipo desconhecido vira "outro"; direção desconhecida vira
// débito (o caminho conservador: despesa).
func decodeResponse(rawText string) (*domain.ExtractionResult, error) {
	clean := cleanModelJSON(rawText)

	var parsed geminiResponse
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal model JSON: %w", err)
	}

	result := &domain.ExtractionResult{
		TipoDocumento: normalizeDocType(parsed.TipoDocumento),
		Confianca:     clamp01(parsed.Confianca),
		Observacoes:   parsed.Observacoes,
		Transacoes:    make([]domain.ExtractedTransaction, 0, len(parsed.Transacoes)),
	}

	for _, tx := range parsed.Transacoes {
		direction := domain.DirectionDebit
		if strings.EqualFold(tx.Direction, domain.DirectionCredit) {
			direction = domain.DirectionCredit
		}
		valor := tx.Valor
		if valor < 0 {
			valor = -valor
		}
		result.Transacoes = append(result.Transacoes, domain.ExtractedTransaction{
			DataBruta:     strings.TrimSpace(tx.DataBruta),
			Descricao:     strings.TrimSpace(tx.Descricao),
			Valor:         valor,
			Direction:     direction,
			CategoriaNome: strings.TrimSpace(tx.Categoria),
		})
	}
	return result, nil
}

func normalizeDocType(tipo string) string {
	switch strings.TrimSpace(strings.ToLower(tipo)) {
	case domain.DocFaturaCartao, domain.DocExtratoConta, domain.DocComprovantePix:
		return strings.TrimSpace(strings.ToLower(tipo))
	default:
		return domain.DocOutro
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the "raw JSON only" instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Extra safety: keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
