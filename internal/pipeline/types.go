package pipeline

import (
	"context"
	"time"

	"github.com/kikiluvv/shotscan/internal/clips"
	"github.com/kikiluvv/shotscan/internal/ffmpeg"
	"github.com/kikiluvv/shotscan/internal/scenes"
	"github.com/kikiluvv/shotscan/internal/video"
)

// Result describes one analyzed video
type Result struct {
	Path    string          `json:"path"`
	Key     string          `json:"key"`
	Status  string          `json:"status"`
	Meta    video.Meta      `json:"meta"`
	Summary *scenes.Summary `json:"summary,omitempty"`
	Events  []scenes.Event  `json:"events,omitempty"`
	Shots   []*clips.Clip   `json:"shots,omitempty"`
	Error   string          `json:"error,omitempty"`

	status video.Status
}

// Skipped reports whether the video was left alone because of its status.
func (r *Result) Skipped() bool {
	return r.status.Terminal()
}

// Thumbnailer writes a single frame of a video to an image file.
type Thumbnailer interface {
	ExtractFrame(ctx context.Context, input, output string, timestamp time.Duration, opts ffmpeg.ThumbnailOptions) error
}

// ThumbnailOptions configures thumbnail extraction
type ThumbnailOptions struct {
	OutputDir string
	Width     int // 0 keeps source width
	Height    int
	// Kinds selects the events to extract; empty means boundaries only.
	Kinds []scenes.EventKind
}
