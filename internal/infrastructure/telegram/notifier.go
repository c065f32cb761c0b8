package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PaperTracker/internal/domain"
	"PaperTracker/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends new-paper alerts to a Telegram chat via bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		apiBase:  defaultAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Name identifies the sink in logs.
func (n *Notifier) Name() string { return "telegram" }

// Notify posts a Markdown message to Telegram.
func (n *Notifier) Notify(ctx context.Context, paper domain.Paper) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatMessage(paper))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		// The request URL embeds the bot token; keep it out of errors.
		return fmt.Errorf("telegram request failed: %w", redactToken(err, n.botToken))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func formatMessage(p domain.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*New paper:* %s\n", escapeMarkdown(p.Title))
	if len(p.Authors) > 0 {
		fmt.Fprintf(&b, "_%s_\n", escapeMarkdown(strings.Join(p.Authors, ", ")))
	}
	fmt.Fprintf(&b, "Upvotes: %d | Comments: %d\n", p.Upvotes, p.Comments)
	for _, link := range []struct{ label, href string }{
		{"PDF", p.PDFURL},
		{"arXiv", p.ArxivURL},
		{"GitHub", p.GithubURL},
		{"Hugging Face", p.URL},
	} {
		if link.href != "" {
			fmt.Fprintf(&b, "[%s](%s) ", link.label, link.href)
		}
	}
	return strings.TrimSpace(b.String())
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

type redactedError struct {
	msg string
	err error
}

func (e redactedError) Error() string { return e.msg }
func (e redactedError) Unwrap() error { return e.err }

func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	return redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>"), err: err}
}
