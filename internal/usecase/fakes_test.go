package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"PaperTracker/internal/domain"
	"PaperTracker/internal/ports"
)

type memoryStore struct {
	mu        sync.Mutex
	papers    map[string]domain.Paper
	metrics   map[string][]domain.MetricsSnapshot
	notified  map[string]bool
	upsertErr error
	markErr   error
	upserts   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		papers:   make(map[string]domain.Paper),
		metrics:  make(map[string][]domain.MetricsSnapshot),
		notified: make(map[string]bool),
	}
}

func (s *memoryStore) Upsert(_ context.Context, paper domain.Paper, snapshot domain.MetricsSnapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return false, s.upsertErr
	}
	s.upserts = append(s.upserts, paper.URL)

	existing, known := s.papers[paper.URL]
	if known {
		paper.CreatedAt = existing.CreatedAt
		paper.NotificationSent = existing.NotificationSent
	} else {
		paper.CreatedAt = paper.UpdatedAt
	}
	s.papers[paper.URL] = paper
	s.metrics[paper.URL] = append([]domain.MetricsSnapshot{snapshot}, s.metrics[paper.URL]...)
	return !known, nil
}

func (s *memoryStore) GetAll(context.Context) ([]domain.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Paper, 0, len(s.papers))
	for _, p := range s.papers {
		out = append(out, p)
	}
	return out, nil
}

func (s *memoryStore) MetricsHistory(_ context.Context, url string) ([]domain.MetricsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.MetricsSnapshot(nil), s.metrics[url]...), nil
}

func (s *memoryStore) MarkNotified(_ context.Context, url string, sent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.notified[url] = sent
	return nil
}

func (s *memoryStore) paper(url string) (domain.Paper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.papers[url]
	return p, ok
}

type stubChat struct {
	mu       sync.Mutex
	content  string
	err      error
	byTitle  map[string]string
	requests []ports.CompletionRequest
}

func (c *stubChat) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.err != nil {
		return "", c.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for title, content := range c.byTitle {
		if strings.Contains(req.User, "Title: "+title+"\n") {
			return content, nil
		}
	}
	return c.content, nil
}

func (c *stubChat) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

type stubExtractor struct {
	papers   map[string]domain.ExtractedPaper
	failures map[string]error
	delay    time.Duration

	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (e *stubExtractor) Extract(_ context.Context, url string) (domain.ExtractedPaper, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		seen := e.maxSeen.Load()
		if n <= seen || e.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}

	if err, ok := e.failures[url]; ok {
		return domain.ExtractedPaper{}, err
	}
	p, ok := e.papers[url]
	if !ok {
		return domain.ExtractedPaper{}, fmt.Errorf("no fixture for %s", url)
	}
	return p, nil
}

type stubListing struct {
	urls []string
	err  error
}

func (l stubListing) PaperURLs(context.Context, string) ([]string, error) {
	return l.urls, l.err
}

type recordingNotifier struct {
	name string
	err  error

	mu   sync.Mutex
	sent []domain.Paper
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) Notify(_ context.Context, paper domain.Paper) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, paper)
	return n.err
}

func (n *recordingNotifier) urls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, p := range n.sent {
		out = append(out, p.URL)
	}
	return out
}

var errBoom = errors.New("boom")

func fixturePaper(url, title string) domain.ExtractedPaper {
	return domain.ExtractedPaper{
		URL:                     url,
		PaperTitle:              title,
		NumberOfUpvotes:         12,
		NumberOfComments:        3,
		ViewPDFURL:              "https://arxiv.org/pdf/2401.00001",
		ViewArxivPageURL:        "https://arxiv.org/abs/2401.00001",
		Authors:                 "Ada Lovelace, Alan Turing",
		AbstractBody:            "An abstract about " + title,
		UTCPublicationDateYear:  2024,
		UTCPublicationDateMonth: 1,
		UTCPublicationDateDay:   15,
		UTCSubmissionDateYear:   2024,
		UTCSubmissionDateMonth:  1,
		UTCSubmissionDateDay:    14,
	}
}
