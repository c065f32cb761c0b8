package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PaperTracker/internal/ports"
)

const (
	// DefaultListingBase is the daily papers page on Hugging Face.
	DefaultListingBase = "https://huggingface.co/papers"
	// DefaultListingLimit caps the number of papers taken from one listing.
	DefaultListingLimit = 30
)

var paperPathExpr = regexp.MustCompile(`^/papers/\d{4}\.\d{4,5}(v\d+)?$`)

// ListingURL returns the dated listing page, e.g.
// https://huggingface.co/papers?date=2025-01-21.
func ListingURL(base string, day time.Time) string {
	if base == "" {
		base = DefaultListingBase
	}
	return strings.TrimRight(base, "/") + "?date=" + day.Format(time.DateOnly)
}

// TodayListingURL picks the listing for the calendar day of now in loc.
func TodayListingURL(base string, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return ListingURL(base, now.In(loc))
}

// HuggingFaceListing collects paper detail links from a daily listing page.
type HuggingFaceListing struct {
	client *http.Client
	limit  int
	logger *slog.Logger
}

var _ ports.ListingSource = (*HuggingFaceListing)(nil)

// NewHuggingFaceListing wires an HTTP client; limit defaults to 30.
func NewHuggingFaceListing(client *http.Client, limit int, logger *slog.Logger) *HuggingFaceListing {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if limit <= 0 {
		limit = DefaultListingLimit
	}
	return &HuggingFaceListing{client: client, limit: limit, logger: logger}
}

// PaperURLs returns absolute paper URLs in page order without duplicates.
func (h *HuggingFaceListing) PaperURLs(ctx context.Context, listingURL string) ([]string, error) {
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	doc, err := h.fetchDocument(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	urls := extractPaperLinks(doc, base, h.limit)
	if h.logger != nil {
		h.logger.Debug("listing parsed", "listing_url", listingURL, "papers", len(urls))
	}
	return urls, nil
}

func (h *HuggingFaceListing) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "PaperTracker/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractPaperLinks(doc *goquery.Document, base *url.URL, limit int) []string {
	var (
		collected []string
		seen      = map[string]struct{}{}
	)

	doc.Find(`a[href*="/papers/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}

		abs := base.ResolveReference(ref)
		abs.RawQuery = ""
		abs.Fragment = ""
		if abs.Host != base.Host || !paperPathExpr.MatchString(abs.Path) {
			return true
		}

		key := abs.String()
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
		collected = append(collected, key)

		return len(collected) < limit
	})

	return collected
}
