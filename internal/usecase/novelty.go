package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"PaperTracker/internal/domain"
	"PaperTracker/internal/ports"
)

// NoveltyTracker merges freshly extracted fields into the store and reports
// whether the paper was seen for the first time.
type NoveltyTracker struct {
	store  ports.PaperStore
	logger *slog.Logger
	now    func() time.Time
}

// NewNoveltyTracker builds a tracker over the given store.
func NewNoveltyTracker(store ports.PaperStore, logger *slog.Logger) *NoveltyTracker {
	return &NoveltyTracker{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Upsert stores the paper together with a new metrics snapshot. Invalid
// date triples fall back to the current time with a warning; storage
// failures are returned to the caller.
func (t *NoveltyTracker) Upsert(ctx context.Context, fields domain.ExtractedPaper) (bool, error) {
	if fields.URL == "" {
		return false, fmt.Errorf("paper url is empty")
	}
	if t.store == nil {
		return false, fmt.Errorf("paper store is not configured")
	}

	now := t.now()
	paper := domain.Paper{
		URL:             fields.URL,
		Title:           fields.PaperTitle,
		Authors:         domain.SplitAuthors(fields.Authors),
		Abstract:        fields.AbstractBody,
		PDFURL:          fields.ViewPDFURL,
		ArxivURL:        fields.ViewArxivPageURL,
		GithubURL:       fields.GithubRepoURL,
		PublicationDate: t.dateOrNow(fields.URL, "publication_date", fields.PublicationDate(), now),
		SubmissionDate:  t.dateOrNow(fields.URL, "submission_date", fields.SubmissionDate(), now),
		Upvotes:         fields.NumberOfUpvotes,
		Comments:        fields.NumberOfComments,
		UpdatedAt:       now,
	}
	snapshot := domain.MetricsSnapshot{
		ID:         uuid.NewString(),
		PaperURL:   fields.URL,
		Upvotes:    fields.NumberOfUpvotes,
		Comments:   fields.NumberOfComments,
		ObservedAt: now,
	}

	isNew, err := t.store.Upsert(ctx, paper, snapshot)
	if err != nil {
		return false, fmt.Errorf("upsert paper %s: %w", fields.URL, err)
	}

	if t.logger != nil {
		action := "updated"
		if isNew {
			action = "added"
		}
		t.logger.Info("paper "+action, "url", fields.URL, "upvotes", snapshot.Upvotes, "comments", snapshot.Comments)
	}

	return isNew, nil
}

func (t *NoveltyTracker) dateOrNow(url, field string, parts domain.DateParts, now time.Time) time.Time {
	d, err := parts.Time()
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("invalid date, using current time", "url", url, "field", field, "error", err)
		}
		return now
	}
	return d
}
