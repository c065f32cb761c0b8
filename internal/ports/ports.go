package ports

import (
	"context"
	"time"

	"PaperTracker/internal/domain"
)

// ListingSource discovers paper detail URLs on a dated listing page.
type ListingSource interface {
	PaperURLs(ctx context.Context, listingURL string) ([]string, error)
}

// DetailExtractor pulls structured metadata for a single paper page.
type DetailExtractor interface {
	Extract(ctx context.Context, url string) (domain.ExtractedPaper, error)
}

// PaperStore persists papers and their engagement history.
type PaperStore interface {
	// Upsert inserts or updates the paper and appends the metrics snapshot
	// atomically. It reports whether the URL had never been stored before.
	Upsert(ctx context.Context, paper domain.Paper, metrics domain.MetricsSnapshot) (bool, error)
	GetAll(ctx context.Context) ([]domain.Paper, error)
	MetricsHistory(ctx context.Context, url string) ([]domain.MetricsSnapshot, error)
	MarkNotified(ctx context.Context, url string, sent bool) error
}

// CompletionRequest is a single chat turn with a forced JSON response shape.
type CompletionRequest struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

// ChatClient talks to an LLM chat-completion API (OpenRouter, OpenAI, ...).
type ChatClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Notifier delivers a new-paper alert to one external channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, paper domain.Paper) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
