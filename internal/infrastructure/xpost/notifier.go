package xpost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PaperTracker/internal/domain"
	"PaperTracker/internal/httputil"
	"PaperTracker/internal/ports"
)

const (
	defaultEndpoint = "https://api.twitter.com/2/tweets"
	titleLength     = 100
	maxRetries      = 3
)

// Notifier publishes new papers as posts on X with a user-context token.
type Notifier struct {
	endpoint    string
	accessToken string
	client      *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier wires the post endpoint and bearer token. An empty endpoint
// uses the public v2 API.
func NewNotifier(endpoint, accessToken string) *Notifier {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Notifier{
		endpoint:    endpoint,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the sink in logs.
func (n *Notifier) Name() string { return "x" }

// Notify creates one post. Rate-limited requests are retried; anything but
// 201 Created is an error.
func (n *Notifier) Notify(ctx context.Context, paper domain.Paper) error {
	if n.accessToken == "" {
		return fmt.Errorf("x notifier misconfigured")
	}

	body, err := json.Marshal(map[string]string{"text": FormatPost(paper)})
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, n.client, req, maxRetries)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("x error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	return nil
}

// FormatPost renders the post text: truncated title, at most two authors,
// then the paper and resource links.
func FormatPost(p domain.Paper) string {
	var b strings.Builder

	title := []rune(p.Title)
	b.WriteString("📚 ")
	if len(title) > titleLength {
		b.WriteString(string(title[:titleLength]))
		b.WriteString("...")
	} else {
		b.WriteString(p.Title)
	}
	b.WriteString("\n\n")

	if len(p.Authors) > 0 {
		b.WriteString("by ")
		if len(p.Authors) > 2 {
			b.WriteString(strings.Join(p.Authors[:2], ", "))
			b.WriteString(" et al.")
		} else {
			b.WriteString(strings.Join(p.Authors, ", "))
		}
		b.WriteString("\n\n")
	}

	b.WriteString("🔗 ")
	b.WriteString(p.URL)
	if p.PDFURL != "" {
		b.WriteString("\n📄 " + p.PDFURL)
	}
	if p.ArxivURL != "" {
		b.WriteString("\n📝 " + p.ArxivURL)
	}
	if p.GithubURL != "" {
		b.WriteString("\n💻 " + p.GithubURL)
	}

	return b.String()
}
