package domain

import (
	"fmt"
	"strings"
	"time"
)

// Paper is a tracked publication keyed by its canonical listing URL.
type Paper struct {
	URL              string    `json:"url"`
	Title            string    `json:"title"`
	Authors          []string  `json:"authors"`
	Abstract         string    `json:"abstract"`
	PDFURL           string    `json:"pdf_url,omitempty"`
	ArxivURL         string    `json:"arxiv_url,omitempty"`
	GithubURL        string    `json:"github_url,omitempty"`
	PublicationDate  time.Time `json:"publication_date"`
	SubmissionDate   time.Time `json:"submission_date"`
	Upvotes          int       `json:"upvotes"`
	Comments         int       `json:"comments"`
	NotificationSent bool      `json:"notification_sent"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MetricsSnapshot is one append-only engagement observation for a paper.
type MetricsSnapshot struct {
	ID         string    `json:"id"`
	PaperURL   string    `json:"paper_url"`
	Upvotes    int       `json:"upvotes"`
	Comments   int       `json:"comments"`
	ObservedAt time.Time `json:"observed_at"`
}

// ExtractedPaper mirrors the raw fields returned by the extraction service.
type ExtractedPaper struct {
	URL                     string `json:"-"`
	PaperTitle              string `json:"paper_title"`
	NumberOfUpvotes         int    `json:"number_of_upvotes"`
	NumberOfComments        int    `json:"number_of_comments"`
	ViewPDFURL              string `json:"view_pdf_url"`
	ViewArxivPageURL        string `json:"view_arxiv_page_url"`
	Authors                 string `json:"authors"`
	AbstractBody            string `json:"abstract_body"`
	UTCPublicationDateDay   int    `json:"utc_publication_date_day"`
	UTCPublicationDateMonth int    `json:"utc_publication_date_month"`
	UTCPublicationDateYear  int    `json:"utc_publication_date_year"`
	UTCSubmissionDateDay    int    `json:"utc_submission_date_day"`
	UTCSubmissionDateMonth  int    `json:"utc_submission_date_month"`
	UTCSubmissionDateYear   int    `json:"utc_submission_date_year"`
	GithubRepoURL           string `json:"github_repo_url"`
}

// PublicationDate returns the publication date parts.
func (e ExtractedPaper) PublicationDate() DateParts {
	return DateParts{Year: e.UTCPublicationDateYear, Month: e.UTCPublicationDateMonth, Day: e.UTCPublicationDateDay}
}

// SubmissionDate returns the date parts of the paper entering the daily feed.
func (e ExtractedPaper) SubmissionDate() DateParts {
	return DateParts{Year: e.UTCSubmissionDateYear, Month: e.UTCSubmissionDateMonth, Day: e.UTCSubmissionDateDay}
}

// DateParts is a calendar date split into integers, as extracted.
type DateParts struct {
	Year  int
	Month int
	Day   int
}

// Time builds a UTC midnight timestamp. time.Date normalizes overflow
// (month 13 becomes January), so the result is checked against the input.
func (d DateParts) Time() (time.Time, error) {
	if d.Year < 1 || d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	if t.Year() != d.Year || int(t.Month()) != d.Month || t.Day() != d.Day {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
	return t, nil
}

// SplitAuthors turns the ", "-delimited author string into an ordered list.
func SplitAuthors(raw string) []string {
	parts := strings.Split(raw, ", ")
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

// PaperFilter narrows paper listings. Zero fields do not filter.
type PaperFilter struct {
	SubmittedSince time.Time
	MinUpvotes     int
	Limit          int
}
