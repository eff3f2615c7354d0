package pipeline

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/shotscan/internal/cache"
	"github.com/kikiluvv/shotscan/internal/config"
	"github.com/kikiluvv/shotscan/internal/decode"
	"github.com/kikiluvv/shotscan/internal/ffmpeg"
	"github.com/kikiluvv/shotscan/internal/scenes"
	"github.com/kikiluvv/shotscan/internal/video"
	"github.com/kikiluvv/shotscan/internal/video/videotest"
)

func shots(w, h, n int, levels ...uint8) []image.Image {
	var frames []image.Image
	for _, l := range levels {
		for i := 0; i < n; i++ {
			frames = append(frames, videotest.Uniform(w, h, l))
		}
	}
	return frames
}

type thumbCall struct {
	output string
	ts     time.Duration
	opts   ffmpeg.ThumbnailOptions
}

type fakeThumbnailer struct {
	mu    sync.Mutex
	calls []thumbCall
}

func (f *fakeThumbnailer) ExtractFrame(ctx context.Context, input, output string, ts time.Duration, opts ffmpeg.ThumbnailOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, thumbCall{output: output, ts: ts, opts: opts})
	return nil
}

type harness struct {
	root    string
	cfg     *config.Config
	cache   cache.Store
	openers map[string]*videotest.Opener
	prober  *videotest.Prober
	thumbs  *fakeThumbnailer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.CacheDir = filepath.Join(root, ".cache")
	cfg.RootDir = root
	cfg.Reader.PollInterval = time.Millisecond
	return &harness{
		root:    root,
		cfg:     cfg,
		cache:   cache.New(cfg.CacheDir, root, false),
		openers: map[string]*videotest.Opener{},
		prober:  &videotest.Prober{Streams: videotest.ConstantRate(map[string]string{"rotate": "0"}), Rotation: "90"},
		thumbs:  &fakeThumbnailer{},
	}
}

func (h *harness) add(name string, fps float64, frames []image.Image) (string, *videotest.Opener) {
	path := filepath.Join(h.root, name)
	o := videotest.NewOpener(fps, frames)
	h.openers[path] = o
	return path, o
}

func (h *harness) pipeline() *Pipeline {
	opener := decode.OpenerFunc(func(ctx context.Context, path string) (decode.Source, error) {
		o, ok := h.openers[path]
		if !ok {
			return nil, errors.New("no such file")
		}
		return o.Open(ctx, path)
	})
	return NewWithBackend(zerolog.Nop(), h.cfg, h.cache, opener, h.prober, h.thumbs)
}

func TestAnalyzeDetectsBoundaries(t *testing.T) {
	h := newHarness(t)
	path, opener := h.add("trailer.mp4", 25, shots(64, 48, 10, 40, 200, 40))

	res, err := h.pipeline().Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "postprocessed", res.Status)
	assert.Equal(t, "trailer.mp4", res.Key)
	assert.False(t, res.Skipped())
	require.NotNil(t, res.Summary)
	assert.Len(t, res.Summary.Postprocessed, 29)

	require.Len(t, res.Events, 2)
	assert.Equal(t, scenes.Event{Kind: scenes.EventBoundary, Frame: 10, Time: 0.4}, res.Events[0])
	assert.Equal(t, 20, res.Events[1].Frame)

	require.Len(t, res.Shots, 3)
	assert.Equal(t, 0, res.Shots[0].StartFrame)
	assert.Equal(t, 10, res.Shots[1].StartFrame)
	assert.Equal(t, 30, res.Shots[2].EndFrame)

	// one handle for metadata, one for decoding
	assert.Len(t, opener.Opened(), 2)
	for _, src := range opener.Opened() {
		assert.True(t, src.Released())
	}
	assert.True(t, h.cache.Exists(res.Key, cache.SummarySuffix))
}

func TestAnalyzeReusesCachedResults(t *testing.T) {
	h := newHarness(t)
	path, _ := h.add("trailer.mp4", 25, shots(64, 48, 10, 40, 200, 40))
	first, err := h.pipeline().Analyze(context.Background(), path)
	require.NoError(t, err)

	path, opener := h.add("trailer.mp4", 25, shots(64, 48, 10, 40, 200, 40))
	calls := h.prober.Calls()
	second, err := h.pipeline().Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Empty(t, opener.Opened())
	assert.Equal(t, calls, h.prober.Calls())
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Events, second.Events)
}

func TestAnalyzeResumesProcessedVideo(t *testing.T) {
	h := newHarness(t)
	path, _ := h.add("trailer.mp4", 25, shots(64, 48, 10, 40, 200, 40))

	p := h.pipeline()
	v, err := p.Video(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, p.process(context.Background(), v, zerolog.Nop()))
	require.Equal(t, video.StatusProcessed, v.Status())

	path, opener := h.add("trailer.mp4", 25, shots(64, 48, 10, 40, 200, 40))
	res, err := h.pipeline().Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, opener.Opened(), "features are cached, nothing to decode")
	assert.Equal(t, "postprocessed", res.Status)
	assert.Len(t, res.Events, 2)
}

func TestAnalyzeSkipsDefective(t *testing.T) {
	h := newHarness(t)
	h.cfg.Video.MinFPS = 30
	path, opener := h.add("slow.mp4", 25, shots(64, 48, 10, 40))

	res, err := h.pipeline().Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Skipped())
	assert.Equal(t, "defective", res.Status)
	assert.Nil(t, res.Summary)
	assert.Len(t, opener.Opened(), 1)
}

func TestAnalyzeMarksErrored(t *testing.T) {
	h := newHarness(t)
	path, opener := h.add("broken.mp4", 25, shots(64, 48, 10, 40))
	opener.ReadErr = errors.New("invalid NAL unit")
	opener.ReadErrAt = 5

	res, err := h.pipeline().Analyze(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid NAL unit")
	require.NotNil(t, res)
	assert.Equal(t, "errored", res.Status)

	// errored is sticky and persisted
	res, err = h.pipeline().Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Skipped())
	assert.Equal(t, "errored", res.Status)
}

func TestAnalyzeBatchContinuesPastFailures(t *testing.T) {
	h := newHarness(t)
	good, _ := h.add("a/good.mp4", 25, shots(64, 48, 10, 40, 200))
	bad, opener := h.add("b/bad.mp4", 25, shots(64, 48, 10, 40))
	opener.ReadErr = errors.New("boom")
	missing := filepath.Join(h.root, "missing.mp4")

	results, err := h.pipeline().AnalyzeBatch(context.Background(), []string{bad, missing, good})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "errored", results[0].Status)
	assert.Equal(t, "failed", results[1].Status)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, "postprocessed", results[2].Status)
	assert.Equal(t, "a.good.mp4", results[2].Key)
}

func TestAnalyzeBatchStopsOnGridConfig(t *testing.T) {
	h := newHarness(t)
	tiny, _ := h.add("tiny.mp4", 25, shots(4, 4, 10, 40))
	good, opener := h.add("good.mp4", 25, shots(64, 48, 10, 40))

	results, err := h.pipeline().AnalyzeBatch(context.Background(), []string{tiny, good})
	assert.ErrorIs(t, err, scenes.ErrGridConfig)
	assert.Empty(t, results)
	assert.Empty(t, opener.Opened())
}

func TestSummaryOrFades(t *testing.T) {
	h := newHarness(t)
	frames := shots(64, 48, 10, 200)
	for _, l := range []uint8{180, 150, 120, 90, 60, 30} {
		frames = append(frames, videotest.Uniform(64, 48, l))
	}
	path, _ := h.add("fade.mp4", 25, frames)
	p := h.pipeline()

	_, err := p.Summary(context.Background(), path, false)
	assert.Error(t, err, "not analyzed yet")

	_, err = p.Analyze(context.Background(), path)
	require.NoError(t, err)

	plain, err := p.Summary(context.Background(), path, false)
	require.NoError(t, err)
	combined, err := p.Summary(context.Background(), path, true)
	require.NoError(t, err)

	assert.Len(t, combined.Postprocessed, len(plain.Postprocessed))
	assert.Equal(t, scenes.Disjunction(plain.Postprocessed, plain.FadeList), combined.Postprocessed)
	// fade-out flags at frames 13 and 14 fall inside the 15 frame pairs
	assert.Equal(t, 1, combined.Postprocessed[13])
	assert.Equal(t, 1, combined.Postprocessed[14])
}

func TestThumbnails(t *testing.T) {
	h := newHarness(t)
	path, _ := h.add("trailer.mp4", 25, shots(64, 48, 10, 40, 200, 40))
	out := filepath.Join(h.root, "thumbs")

	written, err := h.pipeline().Thumbnails(context.Background(), path, ThumbnailOptions{OutputDir: out, Width: 320})
	require.NoError(t, err)
	require.Len(t, written, 2)
	assert.Equal(t, filepath.Join(out, "trailer.mp4_000010_boundary.jpg"), written[0])

	require.Len(t, h.thumbs.calls, 2)
	assert.Equal(t, 400*time.Millisecond, h.thumbs.calls[0].ts)
	assert.Equal(t, 800*time.Millisecond, h.thumbs.calls[1].ts)
	assert.Equal(t, 90, h.thumbs.calls[0].opts.Rotation)
	assert.Equal(t, 320, h.thumbs.calls[0].opts.Width)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	h := newHarness(t)
	path, _ := h.add("trailer.mp4", 25, shots(64, 48, 10, 40, 200))
	p := h.pipeline()
	_, err := p.Analyze(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, p.Invalidate(path))
	assert.False(t, h.cache.Exists("trailer.mp4", cache.MetaSuffix))
	assert.False(t, h.cache.Exists("trailer.mp4", cache.SummarySuffix))

	path, opener := h.add("trailer.mp4", 25, shots(64, 48, 10, 40, 200))
	_, err = h.pipeline().Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, opener.Opened(), 2)
}
