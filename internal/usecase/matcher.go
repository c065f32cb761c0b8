package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"PaperTracker/internal/domain"
	"PaperTracker/internal/ports"
)

const matcherSystemPrompt = "You are a research paper classifier. Respond with only a JSON object " +
	"containing a boolean 'belongs_to_category' and a number 'confidence' between 0 and 1. " +
	"Do not add any other text."

var errEmptyInput = errors.New("title, abstract and category description must be non-empty")

// categoryMatchSchema is the structured-output contract sent with every request.
var categoryMatchSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"belongs_to_category": map[string]any{"type": "boolean"},
		"confidence":          map[string]any{"type": "number", "minimum": 0, "maximum": 1},
	},
	"required":             []string{"belongs_to_category", "confidence"},
	"additionalProperties": false,
}

// CategoryMatcher asks an LLM whether a paper fits a category rubric.
type CategoryMatcher struct {
	client ports.ChatClient
	logger *slog.Logger
}

// NewCategoryMatcher wires the chat client used for every classification.
func NewCategoryMatcher(client ports.ChatClient, logger *slog.Logger) *CategoryMatcher {
	return &CategoryMatcher{client: client, logger: logger}
}

// Classify issues exactly one completion request. It never returns an error:
// transport failures and malformed model output yield (false, 0) and are
// logged, so an unreadable answer can never count as a match.
func (m *CategoryMatcher) Classify(ctx context.Context, title, abstract, category string) domain.ClassificationResult {
	result, err := m.classify(ctx, title, abstract, category)
	if err != nil {
		m.warn("classification failed closed", "title", title, "error", err)
		return domain.ClassificationResult{}
	}
	m.debug("classified", "title", title, "belongs", result.Belongs, "confidence", result.Confidence)
	return result
}

func (m *CategoryMatcher) classify(ctx context.Context, title, abstract, category string) (domain.ClassificationResult, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(abstract) == "" || strings.TrimSpace(category) == "" {
		return domain.ClassificationResult{}, errEmptyInput
	}
	if m == nil || m.client == nil {
		return domain.ClassificationResult{}, errors.New("chat client is not configured")
	}

	content, err := m.client.Complete(ctx, ports.CompletionRequest{
		System:     matcherSystemPrompt,
		User:       buildMatcherPrompt(title, abstract, category),
		SchemaName: "category_match",
		Schema:     categoryMatchSchema,
	})
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("completion: %w", err)
	}

	return parseCategoryMatch(content)
}

func buildMatcherPrompt(title, abstract, category string) string {
	var b strings.Builder
	b.WriteString("Does this paper belong to the category defined below?\n\n")
	b.WriteString("Category definition:\n")
	b.WriteString(strings.TrimSpace(category))
	b.WriteString("\n\nTitle: ")
	b.WriteString(strings.TrimSpace(title))
	b.WriteString("\n\nAbstract: ")
	b.WriteString(strings.TrimSpace(abstract))
	return b.String()
}

// parseCategoryMatch accepts only a JSON object carrying both keys with the
// right types and a confidence inside [0, 1].
func parseCategoryMatch(content string) (domain.ClassificationResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ClassificationResult{}, errors.New("empty model response")
	}

	var raw struct {
		Belongs    *bool    `json:"belongs_to_category"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("decode model response: %w", err)
	}
	if raw.Belongs == nil {
		return domain.ClassificationResult{}, errors.New("model response missing belongs_to_category")
	}
	if raw.Confidence == nil {
		return domain.ClassificationResult{}, errors.New("model response missing confidence")
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return domain.ClassificationResult{}, fmt.Errorf("confidence %v outside [0,1]", *raw.Confidence)
	}

	return domain.ClassificationResult{Belongs: *raw.Belongs, Confidence: *raw.Confidence}, nil
}

func (m *CategoryMatcher) warn(msg string, args ...any) {
	if m != nil && m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}

func (m *CategoryMatcher) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
