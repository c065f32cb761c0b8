package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"PaperTracker/internal/domain"
	"PaperTracker/internal/ports"
)

// ErrPaperNotFound is returned when an operation targets an unknown URL.
var ErrPaperNotFound = errors.New("paper not found")

// Repository persists papers and their metrics history in Postgres or SQLite.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

var _ ports.PaperStore = (*Repository)(nil)

// NewRepository wires an open sql.DB for the given dialect.
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
	}
}

// Open connects to the DSN, applies migrations and returns the repository.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Repository, error) {
	dialect, conn, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName, conn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}

	version, dirty, err := RunMigrations(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if dialect.Name == SQLite.Name {
		db.SetMaxOpenConns(1)
	}
	if logger != nil {
		logger.Info("database ready", "dialect", dialect.Name, "schema_version", version, "dirty", dirty)
	}

	return NewRepository(db, dialect), nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Upsert inserts the paper or overwrites its fields, and appends the metrics
// snapshot, in one transaction. Novelty is decided by the database: each call
// offers a fresh token that is kept only when the row is created, so the
// returned token equals ours exactly when this call inserted the row.
func (r *Repository) Upsert(ctx context.Context, paper domain.Paper, metrics domain.MetricsSnapshot) (bool, error) {
	authors, err := json.Marshal(nonNilAuthors(paper.Authors))
	if err != nil {
		return false, fmt.Errorf("encode authors: %w", err)
	}

	now := time.Now().UTC()
	updatedAt := utcOr(paper.UpdatedAt, now)
	token := uuid.NewString()

	upsert, args, err := r.builder.
		Insert("papers").
		Columns("url", "title", "authors", "abstract", "pdf_url", "arxiv_url", "github_url",
			"publication_date", "submission_date", "notification_sent", "first_seen_token",
			"created_at", "updated_at").
		Values(paper.URL, paper.Title, string(authors), paper.Abstract, paper.PDFURL, paper.ArxivURL, paper.GithubURL,
			utcOr(paper.PublicationDate, now), utcOr(paper.SubmissionDate, now), false, token,
			updatedAt, updatedAt).
		Suffix(`ON CONFLICT (url) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			abstract = excluded.abstract,
			pdf_url = excluded.pdf_url,
			arxiv_url = excluded.arxiv_url,
			github_url = excluded.github_url,
			publication_date = excluded.publication_date,
			submission_date = excluded.submission_date,
			updated_at = excluded.updated_at
			RETURNING first_seen_token`).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build upsert: %w", err)
	}

	metricsID := metrics.ID
	if metricsID == "" {
		metricsID = uuid.NewString()
	}
	insertMetrics, metricsArgs, err := r.builder.
		Insert("paper_metrics").
		Columns("id", "paper_url", "upvotes", "comments", "observed_at").
		Values(metricsID, paper.URL, metrics.Upvotes, metrics.Comments, utcOr(metrics.ObservedAt, now)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build metrics insert: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stored string
	if err := tx.QueryRowContext(ctx, upsert, args...).Scan(&stored); err != nil {
		return false, fmt.Errorf("upsert paper: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertMetrics, metricsArgs...); err != nil {
		return false, fmt.Errorf("insert metrics: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit upsert: %w", err)
	}

	return stored == token, nil
}

// GetAll returns every paper with its latest metrics, newest submission first.
func (r *Repository) GetAll(ctx context.Context) ([]domain.Paper, error) {
	return r.FindPapers(ctx, domain.PaperFilter{})
}

// FindPapers lists papers matching the filter, newest submission first.
func (r *Repository) FindPapers(ctx context.Context, filter domain.PaperFilter) ([]domain.Paper, error) {
	latest := func(column string) string {
		return fmt.Sprintf(`COALESCE((SELECT m.%[1]s FROM paper_metrics m
			WHERE m.paper_url = p.url ORDER BY m.observed_at DESC, m.seq DESC LIMIT 1), 0)`, column)
	}

	query := r.builder.
		Select("p.url", "p.title", "p.authors", "p.abstract", "p.pdf_url", "p.arxiv_url", "p.github_url",
			"p.publication_date", "p.submission_date", "p.notification_sent", "p.created_at", "p.updated_at",
			latest("upvotes"), latest("comments")).
		From("papers p").
		OrderBy("p.submission_date DESC", "p.url")

	if !filter.SubmittedSince.IsZero() {
		query = query.Where(sq.GtOrEq{"p.submission_date": filter.SubmittedSince.UTC()})
	}
	if filter.MinUpvotes > 0 {
		query = query.Where(sq.Expr(latest("upvotes")+" >= ?", filter.MinUpvotes))
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query papers: %w", err)
	}
	defer rows.Close()

	var papers []domain.Paper
	for rows.Next() {
		var (
			p       domain.Paper
			authors string
		)
		if err := rows.Scan(&p.URL, &p.Title, &authors, &p.Abstract, &p.PDFURL, &p.ArxivURL, &p.GithubURL,
			&p.PublicationDate, &p.SubmissionDate, &p.NotificationSent, &p.CreatedAt, &p.UpdatedAt,
			&p.Upvotes, &p.Comments); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
			return nil, fmt.Errorf("decode authors for %s: %w", p.URL, err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return papers, nil
}

// MetricsHistory returns every snapshot of a paper, most recent first.
func (r *Repository) MetricsHistory(ctx context.Context, url string) ([]domain.MetricsSnapshot, error) {
	stmt, args, err := r.builder.
		Select("id", "paper_url", "upvotes", "comments", "observed_at").
		From("paper_metrics").
		Where(sq.Eq{"paper_url": url}).
		OrderBy("observed_at DESC", "seq DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []domain.MetricsSnapshot
	for rows.Next() {
		var m domain.MetricsSnapshot
		if err := rows.Scan(&m.ID, &m.PaperURL, &m.Upvotes, &m.Comments, &m.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		history = append(history, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return history, nil
}

// MarkNotified stores the notification idempotency marker for a paper.
func (r *Repository) MarkNotified(ctx context.Context, url string, sent bool) error {
	stmt, args, err := r.builder.
		Update("papers").
		Set("notification_sent", sent).
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark notified %s: %w", url, ErrPaperNotFound)
	}

	return nil
}

func nonNilAuthors(authors []string) []string {
	if authors == nil {
		return []string{}
	}
	return authors
}

func utcOr(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t.UTC()
}
