package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"PaperTracker/internal/domain"
)

const defaultWindowDays = 7

// PaperReader is the read side of the paper store.
type PaperReader interface {
	FindPapers(ctx context.Context, filter domain.PaperFilter) ([]domain.Paper, error)
	MetricsHistory(ctx context.Context, url string) ([]domain.MetricsSnapshot, error)
}

// Handler serves tracked papers and their metrics history.
type Handler struct {
	store  PaperReader
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(store PaperReader, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger, now: time.Now}
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListPapers returns papers submitted within ?days= (default 7) that have at
// least ?min_upvotes= upvotes, newest first.
func (h *Handler) ListPapers(c *gin.Context) {
	days, ok := nonNegativeInt(c, "days", defaultWindowDays)
	if !ok {
		return
	}
	minUpvotes, ok := nonNegativeInt(c, "min_upvotes", 0)
	if !ok {
		return
	}

	filter := domain.PaperFilter{MinUpvotes: minUpvotes}
	if days > 0 {
		filter.SubmittedSince = h.now().UTC().AddDate(0, 0, -days)
	}

	papers, err := h.store.FindPapers(c.Request.Context(), filter)
	if err != nil {
		h.logError("list papers failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load papers"})
		return
	}
	if papers == nil {
		papers = []domain.Paper{}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(papers), "papers": papers})
}

// PaperMetrics returns the metrics history of ?url=, most recent first.
func (h *Handler) PaperMetrics(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'url' parameter"})
		return
	}

	history, err := h.store.MetricsHistory(c.Request.Context(), url)
	if err != nil {
		h.logError("metrics history failed", err, "url", url)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load metrics"})
		return
	}
	if history == nil {
		history = []domain.MetricsSnapshot{}
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "metrics": history})
}

func nonNegativeInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'" + key + "' must be a non-negative integer"})
		return 0, false
	}
	return v, true
}

func (h *Handler) logError(msg string, err error, args ...any) {
	if h.logger != nil {
		h.logger.Error(msg, append(args, "error", err)...)
	}
}
