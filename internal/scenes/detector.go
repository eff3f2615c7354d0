package scenes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/shotscan/internal/cache"
	"github.com/kikiluvv/shotscan/internal/reader"
	"github.com/kikiluvv/shotscan/internal/video"
)

// Keys of the detector's entries in a video's data blob.
const (
	KeyCrops         = "exp_list_crops"
	KeyTransitions   = "transition_list"
	KeyFrameIndexes  = "frame_indexes"
	KeyPostprocessed = "postprocessed"
)

// Config configures shot detection behavior
type Config struct {
	Grid              int
	Downscale         int
	RelativeThreshold float64
	MinCells          int
	MinShotLength     int
	FadeRatio         float64
}

func DefaultConfig() Config {
	return Config{
		Grid:              8,
		Downscale:         8,
		RelativeThreshold: DefaultRelativeThreshold,
		MinCells:          DefaultMinCells,
		MinShotLength:     DefaultMinShotLength,
		FadeRatio:         DefaultFadeRatio,
	}
}

func (c Config) grid() Grid {
	return Grid{Size: c.Grid, Downscale: c.Downscale}
}

// Summary is the portable result of a detection run. Sequences are indexed
// by sampled frame; Postprocessed has one entry per adjacent frame pair.
type Summary struct {
	FadeList      []int `json:"fade_list"`
	FlashList     []int `json:"flash_list"`
	Postprocessed []int `json:"postprocessed"`
}

// Frames is the sequence Process consumes; *reader.Reader implements it.
type Frames interface {
	Next() (reader.Frame, error)
}

// Detector finds shot boundaries, fades and flashes
type Detector struct {
	logger zerolog.Logger
	cache  cache.Store
	config Config
}

func NewDetector(logger zerolog.Logger, c cache.Store, cfg Config) *Detector {
	return &Detector{
		logger: logger.With().Str("component", "scene-detector").Logger(),
		cache:  c,
		config: cfg,
	}
}

// CheckFrameSize fails with ErrGridConfig when frames of the given size
// cannot be analyzed.
func (d *Detector) CheckFrameSize(width, height int) error {
	return d.config.grid().Check(width, height)
}

// Process consumes frames, storing grid features, transition labels and
// native frame indexes in the video's data blob, and marks it PROCESSED.
func (d *Detector) Process(ctx context.Context, v *video.Video, frames Frames) error {
	logger := v.Logger().With().Str("component", "scene-detector").Logger()
	logger.Info().Msg("extracting frame features")
	start := time.Now()

	grid := d.config.grid()
	fades := NewFadeWindow(d.config.FadeRatio)

	var (
		crops       [][]float64
		transitions []int
		indexes     []int
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := frames.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		feat, err := grid.Extract(f.Image)
		if err != nil {
			return fmt.Errorf("frame %d: %w", f.Index, err)
		}
		crops = append(crops, feat.Crops)
		transitions = append(transitions, int(fades.Push(feat.Mean)))
		indexes = append(indexes, f.Index)
	}

	logger.Info().
		Int("frames", len(crops)).
		Dur("took", time.Since(start)).
		Msg("frame features extracted")

	if err := v.UpdateData(KeyCrops, crops, video.AddFull, false); err != nil {
		return err
	}
	if err := v.UpdateData(KeyFrameIndexes, indexes, video.AddFull, false); err != nil {
		return err
	}
	if err := v.UpdateData(KeyTransitions, transitions, video.AddFull, true); err != nil {
		return err
	}
	return v.SetStatus(video.StatusProcessed, true)
}

// Postprocess turns the stored features into boundaries, stores them, writes
// the portable summary and marks the video POSTPROCESSED.
func (d *Detector) Postprocess(v *video.Video) (*Summary, error) {
	var crops [][]float64
	if ok, err := v.GetData(KeyCrops, &crops); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%s: no %s, video was not processed", v.Path, KeyCrops)
	}
	var transitions []int
	if _, err := v.GetData(KeyTransitions, &transitions); err != nil {
		return nil, err
	}

	candidates := Threshold(crops, d.config.RelativeThreshold, d.config.MinCells)
	s := &Summary{Postprocessed: Postprocess(candidates, d.config.MinShotLength)}
	s.FadeList, s.FlashList = SplitTransitions(transitions)

	d.logger.Info().
		Str("video", v.Path).
		Int("candidates", count(candidates)).
		Int("boundaries", count(s.Postprocessed)).
		Int("fades", count(s.FadeList)).
		Int("flashes", count(s.FlashList)).
		Msg("boundaries postprocessed")

	if err := v.UpdateData(KeyPostprocessed, s.Postprocessed, video.AddFull, true); err != nil {
		return nil, err
	}
	if err := d.SaveSummary(v, s); err != nil {
		return nil, err
	}
	if err := v.SetStatus(video.StatusPostprocessed, true); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveSummary writes s next to the video's other records.
func (d *Detector) SaveSummary(v *video.Video, s *Summary) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return d.cache.Write(v.Key, cache.SummarySuffix, b)
}

// LoadSummary reads the portable summary written by Postprocess.
func (d *Detector) LoadSummary(v *video.Video) (*Summary, bool, error) {
	b, ok, err := d.cache.Read(v.Key, cache.SummarySuffix)
	if err != nil || !ok {
		return nil, ok, err
	}
	var s Summary
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, true, fmt.Errorf("decode summary: %w", err)
	}
	return &s, true, nil
}

func count(flags []int) int {
	n := 0
	for _, f := range flags {
		n += f
	}
	return n
}
