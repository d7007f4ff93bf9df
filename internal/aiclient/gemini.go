// Package aiclient talks to the Gemini API for the two model-backed
// operations of the pipeline: whole-statement extraction from a PDF and
// single-transaction category classification.
package aiclient

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"statement-ingestion-service/internal/categorizer"
	"statement-ingestion-service/internal/models"
	apperrors "statement-ingestion-service/pkg/errors"
	"statement-ingestion-service/pkg/logger"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

const extractionPrompt = `You are a credit card statement parser for Mexican and US bank statements.

Task:
- Read the attached credit card statement and extract its summary fields and ALL transactions.
- Output STRICT JSON only (no comments, no trailing commas, no extra text).
- Output must begin with "{" and end with "}".
- Do NOT wrap the response in code fences.

The JSON object must have these fields:
- "bankName": string or null
- "cardHolderName": string or null
- "lastFourDigits": string of exactly 4 digits, or null
- "statementDate": string "YYYY-MM-DD" or null
- "dueDate": string "YYYY-MM-DD" or null
- "totalBalance": number or null
- "previousBalance": number or null
- "creditLimit": number or null
- "minimumPayment": number or null
- "availableCredit": number or null
- "transactions": array of objects with:
  - "date": string "YYYY-MM-DD"
  - "description": string
  - "amount": number (positive for charges, negative for payments)
  - "type": "charge", "payment" or "adjustment"

Rules:
- Use null for any field not present in the statement; never invent values.
- Keep amounts as plain numbers without currency symbols or thousands separators.
- Keep original transaction descriptions, do not translate them.`

// Config holds Gemini client settings.
type Config struct {
	Model  string `json:"model"`
	APIKey string `json:"-"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{Model: DefaultModel}
}

// GeminiClient wraps the genai SDK. It satisfies categorizer.Classifier.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger logger.Logger
}

var _ categorizer.Classifier = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini-backed client. The API key falls back to
// the SDK's environment lookup when empty.
func NewGeminiClient(ctx context.Context, config *Config) (*GeminiClient, error) {
	if config == nil {
		config = DefaultConfig()
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      config.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, apperrors.AIError("create client", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger.GetGlobalLogger().WithComponent("aiclient"),
	}, nil
}

// ExtractStatement sends the statement PDF to the model and returns its raw
// text response. The response is near-JSON at best; callers run it through
// the recovery parser, never json.Unmarshal directly.
func (g *GeminiClient) ExtractStatement(ctx context.Context, pdfBytes []byte) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractionPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     pdfBytes,
					},
				},
			},
		},
	}

	g.logger.WithFields(logger.Fields{"model": g.model, "pdf_bytes": len(pdfBytes)}).
		Debug("requesting statement extraction")

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", apperrors.AIError("extract statement", err)
	}

	text := resp.Text()
	if text == "" {
		return "", apperrors.AIError("extract statement",
			fmt.Errorf("empty response from model %s", g.model))
	}
	return text, nil
}

// ExtractStatementFromText is the text-mode variant for locally extracted
// PDF text, avoiding the inline file upload.
func (g *GeminiClient) ExtractStatementFromText(ctx context.Context, statementText string) (string, error) {
	prompt := extractionPrompt + "\n\nStatement text:\n" + statementText

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", apperrors.AIError("extract statement from text", err)
	}

	text := resp.Text()
	if text == "" {
		return "", apperrors.AIError("extract statement from text",
			fmt.Errorf("empty response from model %s", g.model))
	}
	return text, nil
}

// ClassifyTransaction asks the model for a category name.
func (g *GeminiClient) ClassifyTransaction(ctx context.Context, tx *models.Transaction, categories []string) (string, error) {
	prompt := categorizer.BuildClassificationPrompt(tx, categories)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", apperrors.AIError("classify transaction", err)
	}

	return strings.ToLower(strings.TrimSpace(resp.Text())), nil
}
