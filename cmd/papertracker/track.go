package main

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"PaperTracker/internal/app"
	"PaperTracker/internal/usecase"
)

const dateLayout = "2006-01-02"

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run the pipeline once over a daily listing",
	Long: `Track crawls one Hugging Face daily listing, stores every paper it finds
and alerts on new papers in the configured category. Without flags it uses
today's listing in the configured timezone.`,
	Args: cobra.NoArgs,
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().String("url", "", "listing page to crawl")
	trackCmd.Flags().String("date", "", "listing day to crawl (YYYY-MM-DD)")
	trackCmd.MarkFlagsMutuallyExclusive("url", "date")

	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rawURL, _ := cmd.Flags().GetString("url")
	date, _ := cmd.Flags().GetString("date")

	ctx := cmd.Context()
	application, err := app.NewTracker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	listing, err := resolveListingURL(rawURL, date, time.Now(), application)
	if err != nil {
		return err
	}

	summary, err := application.Track(ctx, listing)
	if err != nil {
		logger.Error("tracking run failed", "listing_url", listing, "error", err)
		return err
	}

	printSummary(cmd, summary)
	return nil
}

type listingResolver interface {
	ListingURLFor(day time.Time) string
	TodayListingURL(now time.Time) string
}

var _ listingResolver = (*app.Application)(nil)

// resolveListingURL picks the listing page from --url, --date or today.
func resolveListingURL(rawURL, date string, now time.Time, r listingResolver) (string, error) {
	switch {
	case rawURL != "":
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", fmt.Errorf("invalid --url: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", errors.New("invalid --url: want an absolute http(s) URL")
		}
		return rawURL, nil
	case date != "":
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			return "", fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
		}
		return r.ListingURLFor(day), nil
	default:
		return r.TodayListingURL(now), nil
	}
}

func printSummary(cmd *cobra.Command, s usecase.Summary) {
	out := cmd.OutOrStdout()
	for _, item := range s.Items {
		status := string(item.Stage)
		if item.Err != nil {
			status += ": " + item.Err.Error()
		}
		fmt.Fprintf(out, "%-60s new=%-5t notified=%-5t %s\n", item.URL, item.IsNew, item.Notified, status)
	}
	fmt.Fprintf(out, "\n%d new, %d updated, %d notified, %d failed\n", s.New, s.Updated, s.Notified, s.Failed)
}
