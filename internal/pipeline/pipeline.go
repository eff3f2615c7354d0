package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/shotscan/internal/cache"
	"github.com/kikiluvv/shotscan/internal/clips"
	"github.com/kikiluvv/shotscan/internal/config"
	"github.com/kikiluvv/shotscan/internal/decode"
	"github.com/kikiluvv/shotscan/internal/ffmpeg"
	"github.com/kikiluvv/shotscan/internal/metrics"
	"github.com/kikiluvv/shotscan/internal/reader"
	"github.com/kikiluvv/shotscan/internal/scenes"
	"github.com/kikiluvv/shotscan/internal/video"
	"github.com/kikiluvv/shotscan/pkg/util"
)

// Pipeline orchestrates metadata collection, detection and postprocessing
type Pipeline struct {
	logger   zerolog.Logger
	config   *config.Config
	store    *video.Store
	detector *scenes.Detector
	thumbs   Thumbnailer
}

// New creates a pipeline backed by the ffmpeg and ffprobe binaries
func New(logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	exec, err := ffmpeg.New(logger, cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}
	c := cache.New(cfg.CacheDir, cfg.RootDir, false)
	return NewWithBackend(logger, cfg, c, exec, exec, exec), nil
}

// NewWithBackend creates a pipeline over explicit decode, probe and
// thumbnail backends.
func NewWithBackend(logger zerolog.Logger, cfg *config.Config, c cache.Store, opener decode.Opener, prober video.Prober, thumbs Thumbnailer) *Pipeline {
	limits := video.Limits{MinFPS: cfg.Video.MinFPS, MinDuration: cfg.Video.MinDuration}
	detCfg := scenes.Config{
		Grid:              cfg.Detector.Grid,
		Downscale:         cfg.Detector.Downscale,
		RelativeThreshold: cfg.Detector.RelativeThreshold,
		MinCells:          cfg.Detector.MinCells,
		MinShotLength:     cfg.Detector.MinShotLength,
		FadeRatio:         cfg.Detector.FadeRatio,
	}

	return &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		config:   cfg,
		store:    video.NewStore(logger, c, opener, prober, limits),
		detector: scenes.NewDetector(logger, c, detCfg),
		thumbs:   thumbs,
	}
}

func (p *Pipeline) readerOptions() reader.Options {
	rc := p.config.Reader
	return reader.Options{
		TargetFPS:      rc.TargetFPS,
		Width:          rc.Width,
		Height:         rc.Height,
		QueueCapacity:  rc.QueueCapacity,
		PollInterval:   rc.PollInterval,
		StallWarning:   rc.StallWarning,
		MaxNullRetries: rc.MaxNullRetries,
	}
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Video returns the metadata handle of path, collecting it if needed.
func (p *Pipeline) Video(ctx context.Context, path string) (*video.Video, error) {
	defer observe("metadata", time.Now())
	return p.store.GetOrCompute(ctx, path)
}

// Invalidate drops every cached record of path.
func (p *Pipeline) Invalidate(path string) error {
	p.logger.Info().Str("video", path).Msg("invalidating cache entry")
	return p.store.Delete(path)
}

// Analyze brings path to POSTPROCESSED and returns its boundaries. Work
// already recorded in the cache is not repeated: a PROCESSED video is only
// postprocessed, a POSTPROCESSED one is read back. DEFECTIVE and ERRORED
// videos are returned untouched.
func (p *Pipeline) Analyze(ctx context.Context, path string) (*Result, error) {
	if path == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}

	v, err := p.Video(ctx, path)
	if err != nil {
		metrics.VideosTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to collect metadata: %w", err)
	}
	logger := v.Logger().With().Str("component", "pipeline").Logger()

	res, err := p.analyze(ctx, v, logger)
	metrics.VideosTotal.WithLabelValues(v.Status().String()).Inc()
	if err != nil {
		return res, err
	}

	logger.Info().
		Str("status", res.Status).
		Int("events", len(res.Events)).
		Int("shots", len(res.Shots)).
		Msg("analysis complete")
	return res, nil
}

func (p *Pipeline) analyze(ctx context.Context, v *video.Video, logger zerolog.Logger) (*Result, error) {
	switch v.Status() {
	case video.StatusDefective, video.StatusErrored:
		logger.Info().Str("status", v.Status().String()).Msg("skipping video")
		return p.result(v, nil)

	case video.StatusPostprocessed:
		s, ok, err := p.detector.LoadSummary(v)
		if err == nil && ok {
			logger.Debug().Msg("summary loaded from cache")
			return p.result(v, s)
		}
		logger.Warn().Err(err).Msg("cached summary unusable, postprocessing again")
		return p.postprocess(v, logger)

	case video.StatusProcessed:
		logger.Info().Msg("features cached, postprocessing only")
		return p.postprocess(v, logger)
	}

	if err := p.process(ctx, v, logger); err != nil {
		if errors.Is(err, scenes.ErrGridConfig) {
			return nil, err
		}
		if ctx.Err() != nil {
			logger.Warn().Err(err).Msg("analysis interrupted")
			return p.failed(v, err), err
		}
		p.fail(v, err, logger)
		return p.failed(v, err), err
	}
	return p.postprocess(v, logger)
}

func (p *Pipeline) process(ctx context.Context, v *video.Video, logger zerolog.Logger) error {
	defer observe("process", time.Now())

	w, h := p.config.Reader.Width, p.config.Reader.Height
	if w <= 0 || h <= 0 {
		m := v.Meta()
		w, h = m.Width, m.Height
	}
	if err := p.detector.CheckFrameSize(w, h); err != nil {
		return err
	}

	r, err := reader.OpenVideo(ctx, p.store.Opener(), v, p.readerOptions())
	if err != nil {
		return err
	}
	defer r.Close()

	logger.Info().
		Int("frames", r.Len()).
		Int("skip", r.SkipRate()).
		Msg("detecting scenes")
	return p.detector.Process(ctx, v, r)
}

func (p *Pipeline) postprocess(v *video.Video, logger zerolog.Logger) (*Result, error) {
	defer observe("postprocess", time.Now())

	s, err := p.detector.Postprocess(v)
	if err != nil {
		p.fail(v, err, logger)
		return p.failed(v, err), err
	}
	return p.result(v, s)
}

func (p *Pipeline) fail(v *video.Video, err error, logger zerolog.Logger) {
	logger.Error().Err(err).Msg("analysis failed")
	if serr := v.SetStatus(video.StatusErrored, true); serr != nil {
		logger.Warn().Err(serr).Msg("could not persist errored status")
	}
}

func (p *Pipeline) failed(v *video.Video, err error) *Result {
	return &Result{
		Path:   v.Path,
		Key:    v.Key,
		Status: v.Status().String(),
		Meta:   v.Meta(),
		Error:  err.Error(),
		status: v.Status(),
	}
}

func (p *Pipeline) result(v *video.Video, s *scenes.Summary) (*Result, error) {
	res := &Result{
		Path:    v.Path,
		Key:     v.Key,
		Status:  v.Status().String(),
		Meta:    v.Meta(),
		Summary: s,
		status:  v.Status(),
	}
	if s == nil {
		return res, nil
	}

	var indexes []int
	if _, err := v.GetData(scenes.KeyFrameIndexes, &indexes); err != nil {
		return nil, err
	}
	res.Events = scenes.Events(s, indexes, v)

	var cuts []int
	for _, ev := range res.Events {
		if ev.Kind == scenes.EventBoundary {
			cuts = append(cuts, ev.Frame)
		}
	}
	res.Shots = clips.FromBoundaries(v.Key, cuts, res.Meta.FrameNum, v)
	return res, nil
}

// AnalyzeBatch analyzes paths in order. A failing video is recorded in its
// result and the batch moves on; only cancellation and configuration errors
// stop it.
func (p *Pipeline) AnalyzeBatch(ctx context.Context, paths []string) ([]*Result, error) {
	p.logger.Info().Int("videos", len(paths)).Msg("starting batch")

	results := make([]*Result, 0, len(paths))
	var failed int
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := p.Analyze(ctx, path)
		switch {
		case errors.Is(err, scenes.ErrGridConfig):
			return results, err
		case err != nil && ctx.Err() != nil:
			return results, ctx.Err()
		case err != nil:
			failed++
			if res == nil {
				res = &Result{Path: path, Status: "failed", Error: err.Error()}
			}
		}
		results = append(results, res)
	}

	p.logger.Info().
		Int("videos", len(paths)).
		Int("failed", failed).
		Msg("batch complete")
	return results, nil
}

// Summary returns the portable summary of an analyzed video. With orFades
// the boundary sequence is ORed with the fade-out flags.
func (p *Pipeline) Summary(ctx context.Context, path string, orFades bool) (*scenes.Summary, error) {
	v, err := p.Video(ctx, path)
	if err != nil {
		return nil, err
	}
	s, ok, err := p.detector.LoadSummary(v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s has not been analyzed (status %s)", path, v.Status())
	}
	if orFades {
		s.Postprocessed = scenes.Disjunction(s.Postprocessed, s.FadeList)
	}
	return s, nil
}

// Thumbnails analyzes path and writes one JPEG per selected event.
func (p *Pipeline) Thumbnails(ctx context.Context, path string, opts ThumbnailOptions) ([]string, error) {
	if p.thumbs == nil {
		return nil, fmt.Errorf("no thumbnail backend configured")
	}
	res, err := p.Analyze(ctx, path)
	if err != nil {
		return nil, err
	}
	if res.Skipped() {
		return nil, fmt.Errorf("%s was skipped with status %s", path, res.Status)
	}

	defer observe("thumbnails", time.Now())
	if err := util.EnsureDir(opts.OutputDir); err != nil {
		return nil, err
	}

	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = []scenes.EventKind{scenes.EventBoundary}
	}

	var written []string
	for _, ev := range res.Events {
		if !slices.Contains(kinds, ev.Kind) {
			continue
		}
		out := filepath.Join(opts.OutputDir, fmt.Sprintf("%s_%06d_%s.jpg", res.Key, ev.Frame, ev.Kind))
		ts := time.Duration(ev.Time * float64(time.Second))
		err := p.thumbs.ExtractFrame(ctx, path, out, ts, ffmpeg.ThumbnailOptions{
			Width:    opts.Width,
			Height:   opts.Height,
			Rotation: res.Meta.Rotation,
		})
		if err != nil {
			return written, fmt.Errorf("thumbnail for frame %d: %w", ev.Frame, err)
		}
		written = append(written, out)
	}

	p.logger.Info().
		Str("video", path).
		Int("thumbnails", len(written)).
		Str("dir", opts.OutputDir).
		Msg("thumbnails written")
	return written, nil
}
