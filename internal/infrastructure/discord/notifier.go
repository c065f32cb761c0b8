package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PaperTracker/internal/domain"
	"PaperTracker/internal/ports"
)

const (
	embedTitle     = "📚 New Paper Published!"
	embedColor     = 5814783
	abstractLength = 500
)

// Notifier posts new-paper embeds to a Discord channel webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier wires the webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the sink in logs.
func (n *Notifier) Name() string { return "discord" }

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type webhookMessage struct {
	Embeds []embed `json:"embeds"`
}

// Notify sends one embed. Discord answers 204 No Content on success.
func (n *Notifier) Notify(ctx context.Context, paper domain.Paper) error {
	if n.webhookURL == "" || n.client == nil {
		return fmt.Errorf("discord notifier misconfigured")
	}

	body, err := json.Marshal(buildMessage(paper))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// url.Error repeats the webhook URL, which embeds its secret.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	return nil
}

func buildMessage(p domain.Paper) webhookMessage {
	var links []string
	if p.PDFURL != "" {
		links = append(links, fmt.Sprintf("[📄 PDF](%s)", p.PDFURL))
	}
	if p.ArxivURL != "" {
		links = append(links, fmt.Sprintf("[📝 arXiv](%s)", p.ArxivURL))
	}
	if p.GithubURL != "" {
		links = append(links, fmt.Sprintf("[💻 GitHub](%s)", p.GithubURL))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", p.Title)
	fmt.Fprintf(&b, "**Authors:** %s\n\n", strings.Join(p.Authors, ", "))
	fmt.Fprintf(&b, "**Abstract:**\n%s\n\n", truncate(p.Abstract, abstractLength))
	fmt.Fprintf(&b, "**Stats:** ⬆️ %d | 💬 %d\n\n", p.Upvotes, p.Comments)
	if len(links) > 0 {
		fmt.Fprintf(&b, "**Links:**\n%s\n\n", strings.Join(links, " • "))
	}
	fmt.Fprintf(&b, "[View on Hugging Face](%s)", p.URL)

	return webhookMessage{Embeds: []embed{{
		Title:       embedTitle,
		Description: b.String(),
		Color:       embedColor,
	}}}
}

// truncate cuts s to limit runes and marks the cut with an ellipsis.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
