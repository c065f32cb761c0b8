package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperTracker/internal/domain"
	"PaperTracker/internal/ports"
)

const (
	matchJSON   = `{"belongs_to_category": true, "confidence": 0.92}`
	weakJSON    = `{"belongs_to_category": true, "confidence": 0.75}`
	noMatchJSON = `{"belongs_to_category": false, "confidence": 0.9}`
)

type pipelineFixture struct {
	store     *memoryStore
	chat      *stubChat
	extractor *stubExtractor
	discord   *recordingNotifier
	xpost     *recordingNotifier
	pipeline  *Pipeline
}

func newPipelineFixture(t *testing.T, urls []string, batchSize int) *pipelineFixture {
	t.Helper()

	papers := make(map[string]domain.ExtractedPaper, len(urls))
	for i, u := range urls {
		papers[u] = fixturePaper(u, fmt.Sprintf("Paper %d", i))
	}

	f := &pipelineFixture{
		store:     newMemoryStore(),
		chat:      &stubChat{content: matchJSON},
		extractor: &stubExtractor{papers: papers, failures: map[string]error{}},
		discord:   &recordingNotifier{name: "discord"},
		xpost:     &recordingNotifier{name: "x"},
	}
	f.pipeline = NewPipeline(PipelineDeps{
		Source:    stubListing{urls: urls},
		Extractor: f.extractor,
		Store:     f.store,
		Tracker:   NewNoveltyTracker(f.store, nil),
		Matcher:   NewCategoryMatcher(f.chat, nil),
		Notifiers: []ports.Notifier{f.discord, f.xpost},
		Category:  agentsRubric,
		BatchSize: batchSize,
	})
	return f
}

func paperURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://huggingface.co/papers/2401.%05d", i)
	}
	return urls
}

func TestPipelineNewMatchingPaperNotifiesEverySink(t *testing.T) {
	t.Parallel()

	urls := paperURLs(1)
	f := newPipelineFixture(t, urls, 0)

	summary, err := f.pipeline.Run(context.Background(), "https://huggingface.co/papers?date=2024-01-15")
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	item := summary.Items[0]
	assert.Equal(t, domain.StageDone, item.Stage)
	assert.True(t, item.IsNew)
	assert.True(t, item.Notified)
	assert.NoError(t, item.Err)
	assert.Equal(t, domain.ClassificationResult{Belongs: true, Confidence: 0.92}, item.Classification)

	assert.Equal(t, urls, f.discord.urls())
	assert.Equal(t, urls, f.xpost.urls())
	assert.True(t, f.store.notified[urls[0]])
	assert.Equal(t, 1, summary.New)
	assert.Equal(t, 1, summary.Notified)

	sent := f.discord.sent[0]
	assert.Equal(t, "Paper 0", sent.Title)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, sent.Authors)
}

func TestPipelineKnownPaperSkipsClassificationAndNotification(t *testing.T) {
	t.Parallel()

	urls := paperURLs(1)
	f := newPipelineFixture(t, urls, 5)

	f.pipeline.ProcessURLs(context.Background(), urls)
	require.Equal(t, 1, f.chat.calls())

	summary := f.pipeline.ProcessURLs(context.Background(), urls)
	require.Len(t, summary.Items, 1)
	assert.False(t, summary.Items[0].IsNew)
	assert.False(t, summary.Items[0].Notified)
	assert.Equal(t, domain.StageDone, summary.Items[0].Stage)
	assert.Equal(t, 1, summary.Updated)

	assert.Equal(t, 1, f.chat.calls())
	assert.Len(t, f.discord.urls(), 1)
}

func TestPipelineBelowThresholdDoesNotNotify(t *testing.T) {
	t.Parallel()

	urls := paperURLs(2)
	f := newPipelineFixture(t, urls, 5)
	f.chat.byTitle = map[string]string{"Paper 0": weakJSON, "Paper 1": noMatchJSON}

	summary := f.pipeline.ProcessURLs(context.Background(), urls)

	assert.Equal(t, 2, summary.New)
	assert.Zero(t, summary.Notified)
	assert.Empty(t, f.discord.urls())
	assert.Empty(t, f.xpost.urls())
	assert.Empty(t, f.store.notified)
}

func TestPipelineClassifierTimeoutTouchesNoSink(t *testing.T) {
	t.Parallel()

	urls := paperURLs(1)
	f := newPipelineFixture(t, urls, 5)
	f.chat.err = context.DeadlineExceeded

	summary := f.pipeline.ProcessURLs(context.Background(), urls)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, domain.StageDone, summary.Items[0].Stage)
	assert.Equal(t, domain.ClassificationResult{}, summary.Items[0].Classification)
	assert.Empty(t, f.discord.urls())
	assert.Empty(t, f.xpost.urls())
}

func TestPipelineIsolatesItemFailures(t *testing.T) {
	t.Parallel()

	urls := paperURLs(7)
	f := newPipelineFixture(t, urls, 3)
	f.extractor.failures[urls[1]] = errBoom
	f.extractor.failures[urls[5]] = errBoom

	summary := f.pipeline.ProcessURLs(context.Background(), urls)

	require.Len(t, summary.Items, len(urls))
	for i, item := range summary.Items {
		assert.Equal(t, urls[i], item.URL, "results keep input order")
	}
	assert.Equal(t, domain.StageExtractFailed, summary.Items[1].Stage)
	assert.ErrorIs(t, summary.Items[1].Err, errBoom)
	assert.Equal(t, domain.StageExtractFailed, summary.Items[5].Stage)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 5, summary.New)
	assert.Equal(t, 5, summary.Notified)

	want := []string{urls[0], urls[2], urls[3], urls[4], urls[6]}
	assert.Equal(t, want, f.discord.urls())
	assert.Equal(t, want, f.store.upserts)
}

func TestPipelinePersistFailureStopsOnlyThatItem(t *testing.T) {
	t.Parallel()

	urls := paperURLs(2)
	f := newPipelineFixture(t, urls, 5)
	f.store.upsertErr = errBoom

	summary := f.pipeline.ProcessURLs(context.Background(), urls)

	require.Len(t, summary.Items, 2)
	for _, item := range summary.Items {
		assert.Equal(t, domain.StagePersistFailed, item.Stage)
		assert.ErrorIs(t, item.Err, errBoom)
	}
	assert.Zero(t, f.chat.calls())
	assert.Empty(t, f.discord.urls())
}

func TestPipelineBoundsConcurrentExtraction(t *testing.T) {
	t.Parallel()

	urls := paperURLs(9)
	f := newPipelineFixture(t, urls, 3)
	f.extractor.delay = 20 * time.Millisecond

	summary := f.pipeline.ProcessURLs(context.Background(), urls)

	assert.Len(t, summary.Items, 9)
	assert.LessOrEqual(t, f.extractor.maxSeen.Load(), int32(3))
	assert.Greater(t, f.extractor.maxSeen.Load(), int32(1))
}

func TestPipelineOneSinkFailureStillMarksNotified(t *testing.T) {
	t.Parallel()

	urls := paperURLs(1)
	f := newPipelineFixture(t, urls, 5)
	f.discord.err = errBoom

	summary := f.pipeline.ProcessURLs(context.Background(), urls)

	item := summary.Items[0]
	assert.True(t, item.Notified)
	assert.ErrorIs(t, item.Err, errBoom)
	assert.Equal(t, domain.StageDone, item.Stage)
	assert.Equal(t, urls, f.xpost.urls())
	assert.True(t, f.store.notified[urls[0]])
}

func TestPipelineAllSinksFailingLeavesMarkerUnset(t *testing.T) {
	t.Parallel()

	urls := paperURLs(1)
	f := newPipelineFixture(t, urls, 5)
	f.discord.err = errBoom
	f.xpost.err = errBoom

	summary := f.pipeline.ProcessURLs(context.Background(), urls)

	assert.False(t, summary.Items[0].Notified)
	assert.Error(t, summary.Items[0].Err)
	assert.Empty(t, f.store.notified)
}

func TestPipelineStopsBetweenBatchesOnCancel(t *testing.T) {
	t.Parallel()

	urls := paperURLs(4)
	f := newPipelineFixture(t, urls, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := f.pipeline.ProcessURLs(ctx, urls)
	assert.Empty(t, summary.Items)
}

func TestPipelineRunPropagatesListingError(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{Source: stubListing{err: errBoom}})
	_, err := p.Run(context.Background(), "https://huggingface.co/papers?date=2024-01-15")
	require.ErrorIs(t, err, errBoom)
}
