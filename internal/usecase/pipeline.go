package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"PaperTracker/internal/domain"
	"PaperTracker/internal/ports"
)

// DefaultBatchSize bounds concurrent extraction requests per batch.
const DefaultBatchSize = 5

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source    ports.ListingSource
	Extractor ports.DetailExtractor
	Store     ports.PaperStore
	Tracker   *NoveltyTracker
	Matcher   *CategoryMatcher
	Gate      Gate
	Notifiers []ports.Notifier
	Category  string
	BatchSize int
	Logger    *slog.Logger
}

// Pipeline implements the paper tracking workflow.
type Pipeline struct {
	source    ports.ListingSource
	extractor ports.DetailExtractor
	store     ports.PaperStore
	tracker   *NoveltyTracker
	matcher   *CategoryMatcher
	gate      Gate
	notifiers []ports.Notifier
	category  string
	batchSize int
	logger    *slog.Logger
}

// ItemResult records how far one URL got through the pipeline.
type ItemResult struct {
	URL            string
	Stage          domain.ItemStage
	IsNew          bool
	Classification domain.ClassificationResult
	Notified       bool
	Err            error
}

// Summary aggregates a run. Items keep the input order.
type Summary struct {
	Items    []ItemResult
	New      int
	Updated  int
	Notified int
	Failed   int
}

func (s *Summary) add(item ItemResult) {
	s.Items = append(s.Items, item)
	switch {
	case item.Stage.Failed():
		s.Failed++
	case item.IsNew:
		s.New++
	default:
		s.Updated++
	}
	if item.Notified {
		s.Notified++
	}
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		source:    deps.Source,
		extractor: deps.Extractor,
		store:     deps.Store,
		tracker:   deps.Tracker,
		matcher:   deps.Matcher,
		gate:      deps.Gate,
		notifiers: deps.Notifiers,
		category:  deps.Category,
		batchSize: batchSize,
		logger:    deps.Logger,
	}
}

// Run discovers the paper URLs on a listing page and processes them.
func (p *Pipeline) Run(ctx context.Context, listingURL string) (Summary, error) {
	if p.source == nil {
		return Summary{}, errors.New("listing source is not configured")
	}

	p.info("crawling listing", "listing_url", listingURL)
	urls, err := p.source.PaperURLs(ctx, listingURL)
	if err != nil {
		return Summary{}, fmt.Errorf("list papers: %w", err)
	}
	p.info("found papers", "listing_url", listingURL, "count", len(urls))

	summary := p.ProcessURLs(ctx, urls)
	p.info("run finished",
		"listing_url", listingURL,
		"new", summary.New,
		"updated", summary.Updated,
		"notified", summary.Notified,
		"failed", summary.Failed)
	return summary, nil
}

// ProcessURLs walks the URLs in fixed-size batches. Extraction inside a batch
// runs concurrently; the remaining stages run per item in input order and a
// failure of one item never affects its siblings.
func (p *Pipeline) ProcessURLs(ctx context.Context, urls []string) Summary {
	var summary Summary

	for start := 0; start < len(urls); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			p.warn("run cancelled", "remaining", len(urls)-start, "error", err)
			break
		}

		end := min(start+p.batchSize, len(urls))
		batch := urls[start:end]
		p.debug("processing batch", "from", start, "to", end)

		extracted := p.extractBatch(ctx, batch)
		for i, url := range batch {
			summary.add(p.processItem(ctx, url, extracted[i]))
		}
	}

	return summary
}

type extraction struct {
	paper domain.ExtractedPaper
	err   error
}

func (p *Pipeline) extractBatch(ctx context.Context, batch []string) []extraction {
	results := make([]extraction, len(batch))
	if p.extractor == nil {
		for i := range results {
			results[i].err = errors.New("detail extractor is not configured")
		}
		return results
	}

	var wg sync.WaitGroup
	for i, url := range batch {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			paper, err := p.extractor.Extract(ctx, url)
			paper.URL = url
			results[i] = extraction{paper: paper, err: err}
		}(i, url)
	}
	wg.Wait()

	return results
}

func (p *Pipeline) processItem(ctx context.Context, url string, ex extraction) ItemResult {
	item := ItemResult{URL: url, Stage: domain.StageExtracted}
	if ex.err != nil {
		item.Stage = domain.StageExtractFailed
		item.Err = ex.err
		p.error("extraction failed", "url", url, "error", ex.err)
		return item
	}

	item.Stage = domain.StagePersisting
	isNew, err := p.persist(ctx, ex.paper)
	if err != nil {
		item.Stage = domain.StagePersistFailed
		item.Err = err
		p.error("persist failed", "url", url, "error", err)
		return item
	}
	item.Stage = domain.StagePersisted
	item.IsNew = isNew

	if isNew {
		item.Stage = domain.StageClassifying
		if p.matcher == nil {
			item.Stage = domain.StageClassifyFailed
			item.Err = errors.New("category matcher is not configured")
			p.error("classification failed", "url", url, "error", item.Err)
			return item
		}
		item.Classification = p.matcher.Classify(ctx, ex.paper.PaperTitle, ex.paper.AbstractBody, p.category)
		item.Stage = domain.StageClassified
	}

	item.Stage = domain.StageDeciding
	notify := p.gate.ShouldNotify(item.IsNew, item.Classification)
	p.info("decision",
		"url", url,
		"is_new", item.IsNew,
		"belongs", item.Classification.Belongs,
		"confidence", item.Classification.Confidence,
		"notify", notify)

	if notify {
		item.Notified, item.Err = p.dispatch(ctx, ex.paper)
	}

	item.Stage = domain.StageDone
	return item
}

func (p *Pipeline) persist(ctx context.Context, paper domain.ExtractedPaper) (bool, error) {
	if p.tracker == nil {
		return false, errors.New("novelty tracker is not configured")
	}
	return p.tracker.Upsert(ctx, paper)
}

// dispatch sends the alert to every sink. One failing sink does not stop the
// others; the notified marker is stored once any sink accepted the message.
func (p *Pipeline) dispatch(ctx context.Context, fields domain.ExtractedPaper) (bool, error) {
	paper := domain.Paper{
		URL:       fields.URL,
		Title:     fields.PaperTitle,
		Authors:   domain.SplitAuthors(fields.Authors),
		Abstract:  fields.AbstractBody,
		PDFURL:    fields.ViewPDFURL,
		ArxivURL:  fields.ViewArxivPageURL,
		GithubURL: fields.GithubRepoURL,
		Upvotes:   fields.NumberOfUpvotes,
		Comments:  fields.NumberOfComments,
	}

	var (
		errs      []error
		delivered int
	)
	for _, n := range p.notifiers {
		if err := n.Notify(ctx, paper); err != nil {
			p.error("notification failed", "url", paper.URL, "sink", n.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		p.info("notification sent", "url", paper.URL, "sink", n.Name())
		delivered++
	}

	if delivered > 0 && p.store != nil {
		if err := p.store.MarkNotified(ctx, paper.URL, true); err != nil {
			p.error("mark notified failed", "url", paper.URL, "error", err)
			errs = append(errs, fmt.Errorf("mark notified: %w", err))
		}
	}

	return delivered > 0, errors.Join(errs...)
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) error(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
