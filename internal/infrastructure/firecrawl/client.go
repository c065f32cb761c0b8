package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PaperTracker/internal/config"
	"PaperTracker/internal/domain"
	"PaperTracker/internal/ports"
)

// Client asks the Firecrawl scrape API to extract structured paper fields.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ ports.DetailExtractor = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.FirecrawlConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// extractSchema lists every field the paper detail page is mined for.
var extractSchema = map[string]any{
	"type": "object",
	"properties": map[string]map[string]string{
		"paper_title":                {"type": "string"},
		"number_of_upvotes":          {"type": "integer"},
		"number_of_comments":         {"type": "integer"},
		"view_pdf_url":               {"type": "string"},
		"view_arxiv_page_url":        {"type": "string"},
		"authors":                    {"type": "string"},
		"abstract_body":              {"type": "string"},
		"utc_publication_date_day":   {"type": "integer"},
		"utc_publication_date_month": {"type": "integer"},
		"utc_publication_date_year":  {"type": "integer"},
		"utc_submission_date_day":    {"type": "integer"},
		"utc_submission_date_month":  {"type": "integer"},
		"utc_submission_date_year":   {"type": "integer"},
		"github_repo_url":            {"type": "string"},
	},
	"required": []string{
		"paper_title", "number_of_upvotes", "number_of_comments", "view_pdf_url",
		"view_arxiv_page_url", "authors", "abstract_body",
		"utc_publication_date_day", "utc_publication_date_month", "utc_publication_date_year",
		"utc_submission_date_day", "utc_submission_date_month", "utc_submission_date_year",
		"github_repo_url",
	},
}

type scrapeRequest struct {
	URL     string         `json:"url"`
	Formats []string       `json:"formats"`
	Extract map[string]any `json:"extract"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Extract *domain.ExtractedPaper `json:"extract"`
	} `json:"data"`
}

// Extract scrapes one paper page and returns its raw fields.
func (c *Client) Extract(ctx context.Context, url string) (domain.ExtractedPaper, error) {
	if c.apiKey == "" {
		return domain.ExtractedPaper{}, errors.New("firecrawl api key is empty")
	}

	payload := scrapeRequest{
		URL:     url,
		Formats: []string{"extract"},
		Extract: map[string]any{"schema": extractSchema},
	}

	var resp scrapeResponse
	if err := c.post(ctx, "/v1/scrape", payload, &resp); err != nil {
		return domain.ExtractedPaper{}, fmt.Errorf("scrape %s: %w", url, err)
	}
	if !resp.Success {
		return domain.ExtractedPaper{}, fmt.Errorf("scrape %s: %s", url, resp.Error)
	}
	if resp.Data.Extract == nil {
		return domain.ExtractedPaper{}, fmt.Errorf("scrape %s: response has no extract", url)
	}

	paper := *resp.Data.Extract
	paper.URL = url
	if strings.TrimSpace(paper.PaperTitle) == "" {
		return domain.ExtractedPaper{}, fmt.Errorf("scrape %s: extracted paper has no title", url)
	}

	return paper, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
