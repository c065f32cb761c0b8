package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipelineForTriggerListing(t *testing.T) {
	t.Parallel()

	urls := paperURLs(2)
	f := newPipelineFixture(t, urls, 5)
	driver := &manualDriver{}

	var listings []string
	listingURL := func(at time.Time) string {
		u := "https://huggingface.co/papers?date=" + at.Format(time.DateOnly)
		listings = append(listings, u)
		return u
	}

	s := NewScheduler(driver, f.pipeline, listingURL, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC))

	assert.Equal(t, []string{"https://huggingface.co/papers?date=2024-01-15"}, listings)
	assert.Equal(t, urls, f.discord.urls())

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriverIsNoop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, nil, nil)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
