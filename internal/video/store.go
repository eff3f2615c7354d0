package video

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/shotscan/internal/cache"
	"github.com/kikiluvv/shotscan/internal/decode"
	"github.com/kikiluvv/shotscan/internal/ffmpeg"
	"github.com/kikiluvv/shotscan/internal/logging"
	"github.com/kikiluvv/shotscan/internal/metrics"
)

// Prober answers metadata queries about a video file. Calls are synchronous;
// timeouts are the caller's business through ctx.
type Prober interface {
	ProbeStreams(ctx context.Context, path string) (*ffmpeg.StreamInfo, error)
	ProbePackets(ctx context.Context, path string) ([]ffmpeg.Packet, error)
	ProbeRotation(ctx context.Context, path string) (string, error)
}

// Limits mark videos below them as defective. Zero disables a limit.
type Limits struct {
	MinFPS      float64
	MinDuration float64 // seconds
}

// Store hands out Video handles backed by the metadata cache.
type Store struct {
	logger zerolog.Logger
	cache  cache.Store
	opener decode.Opener
	prober Prober
	limits Limits
}

func NewStore(logger zerolog.Logger, c cache.Store, opener decode.Opener, prober Prober, limits Limits) *Store {
	return &Store{
		logger: logger.With().Str("component", "metadata").Logger(),
		cache:  c,
		opener: opener,
		prober: prober,
		limits: limits,
	}
}

// Cache exposes the underlying record store.
func (s *Store) Cache() cache.Store {
	return s.cache
}

// Opener exposes the decode backend used for metadata collection.
func (s *Store) Opener() decode.Opener {
	return s.opener
}

// GetOrCompute returns the handle for path. A readable cached record is
// returned as is, without touching the decoder or the probe tool. Otherwise
// every attribute is computed, the status is set (DEFECTIVE when below the
// store limits) and the record is persisted.
func (s *Store) GetOrCompute(ctx context.Context, path string) (*Video, error) {
	key, err := s.cache.Key(path)
	if err != nil {
		return nil, err
	}

	v := &Video{
		Path:   path,
		Key:    key,
		store:  s,
		logger: logging.ForVideo(s.logger, path),
	}

	if s.load(v) {
		return v, nil
	}
	if err := v.collect(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete drops every cached record of path.
func (s *Store) Delete(path string) error {
	key, err := s.cache.Key(path)
	if err != nil {
		return err
	}
	return s.cache.Remove(key)
}

func (s *Store) load(v *Video) bool {
	b, ok, err := s.cache.Read(v.Key, cache.MetaSuffix)
	if err != nil {
		v.logger.Warn().Err(err).Msg("meta record unreadable, recomputing")
		metrics.CacheLookupsTotal.WithLabelValues("corrupt").Inc()
		return false
	}
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return false
	}

	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		v.logger.Warn().Err(err).Msg("meta record corrupt, recomputing")
		metrics.CacheLookupsTotal.WithLabelValues("corrupt").Inc()
		return false
	}

	v.slots = slotsFrom(rec.Meta)
	v.status = rec.Status
	v.cached = true
	v.dataFlushed = true
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	v.logger.Debug().Str("status", rec.Status.String()).Msg("meta loaded from cache")
	return true
}

func (s *Store) defective(m Meta) bool {
	return m.FPS < s.limits.MinFPS || m.Duration < s.limits.MinDuration
}

// collect computes every attribute with the decode handle open, then
// persists the record, which releases the handle.
func (v *Video) collect(ctx context.Context) error {
	src, err := v.store.opener.Open(ctx, v.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", v.Path, err)
	}
	v.src = src

	if err := v.computeAll(ctx); err != nil {
		v.releaseSource()
		return err
	}

	meta := v.slots.snapshot()
	if v.store.defective(meta) {
		v.logger.Info().
			Float64("fps", meta.FPS).
			Float64("duration", meta.Duration).
			Msg("video below limits, marking defective")
		v.status = advance(v.status, StatusDefective)
	}

	v.logger.Info().
		Float64("fps", meta.FPS).
		Int("frames", meta.FrameNum).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Int("rotation", meta.Rotation).
		Bool("variable_fps", meta.IsVariableFPS).
		Str("gopro", meta.IsGopro.String()).
		Str("datetime", meta.Datetime).
		Msg("metadata collected")

	return v.SaveMeta()
}
