package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const listingHTML = `
<html><body>
  <a href="/papers?date=2025-01-20">Previous</a>
  <article>
    <a href="/papers/2501.11111">Agents That Plan</a>
    <a href="/papers/2501.11111#community">12 comments</a>
  </article>
  <article>
    <a href="/papers/2501.22222?utm=feed">Tool Use at Scale</a>
  </article>
  <article>
    <a href="https://arxiv.org/abs/2501.33333">arXiv</a>
    <a href="/papers/2501.33333v2">Versioned</a>
  </article>
  <a href="/papers/trending">Trending</a>
  <a href="https://example.org/papers/2501.44444">Elsewhere</a>
</body></html>`

func TestListingURL(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, time.January, 21, 23, 0, 0, 0, time.UTC)
	if got := ListingURL("", day); got != "https://huggingface.co/papers?date=2025-01-21" {
		t.Fatalf("unexpected listing url: %s", got)
	}
	if got := ListingURL("http://mirror.local/papers/", day); got != "http://mirror.local/papers?date=2025-01-21" {
		t.Fatalf("unexpected listing url: %s", got)
	}
}

func TestTodayListingURLUsesReferenceTimezone(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	// 05:00 UTC on Jan 22 is still Jan 21 in California.
	now := time.Date(2025, time.January, 22, 5, 0, 0, 0, time.UTC)
	if got := TodayListingURL("", now, loc); !strings.HasSuffix(got, "date=2025-01-21") {
		t.Fatalf("expected Pacific date, got %s", got)
	}
	if got := TodayListingURL("", now, nil); !strings.HasSuffix(got, "date=2025-01-22") {
		t.Fatalf("expected UTC date, got %s", got)
	}
}

func TestExtractPaperLinks(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	base, _ := url.Parse("https://huggingface.co/papers?date=2025-01-21")

	got := extractPaperLinks(doc, base, 30)
	want := []string{
		"https://huggingface.co/papers/2501.11111",
		"https://huggingface.co/papers/2501.22222",
		"https://huggingface.co/papers/2501.33333v2",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected links:\n got %v\nwant %v", got, want)
	}

	if limited := extractPaperLinks(doc, base, 2); len(limited) != 2 {
		t.Fatalf("expected limit to cap results, got %d", len(limited))
	}
}

func TestHuggingFaceListingPaperURLs(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") != "2025-01-21" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer server.Close()

	listing := NewHuggingFaceListing(server.Client(), 0, nil)
	urls, err := listing.PaperURLs(context.Background(), server.URL+"/papers?date=2025-01-21")
	if err != nil {
		t.Fatalf("PaperURLs error: %v", err)
	}

	if len(urls) != 3 {
		t.Fatalf("expected 3 urls, got %d: %v", len(urls), urls)
	}
	if urls[0] != server.URL+"/papers/2501.11111" {
		t.Fatalf("unexpected first url: %s", urls[0])
	}
}

func TestHuggingFaceListingStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHuggingFaceListing(server.Client(), 5, nil).PaperURLs(context.Background(), server.URL+"/papers")
	if err == nil {
		t.Fatal("expected error for non-200 listing")
	}
}
