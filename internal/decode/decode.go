// Package decode declares the capabilities shotscan needs from a video
// decoding backend. Implementations live elsewhere (internal/ffmpeg); the
// reader and metadata store only depend on this package.
package decode

import (
	"context"
	"image"
)

// Prop names a property a Source can report.
type Prop int

const (
	PropFPS Prop = iota
	PropFrameCount
	PropWidth
	PropHeight
)

func (p Prop) String() string {
	switch p {
	case PropFPS:
		return "fps"
	case PropFrameCount:
		return "frame_count"
	case PropWidth:
		return "width"
	case PropHeight:
		return "height"
	default:
		return "unknown"
	}
}

// Source is an open decode handle. It is not safe for concurrent use; the
// goroutine that reads from it owns it until Release.
type Source interface {
	// Seek positions the source so the next Read returns frame index.
	Seek(index int) error
	// Read returns the next decoded frame. A nil image with a nil error is a
	// null frame: end of stream, or an intermittent decoder glitch on some
	// cameras.
	Read() (image.Image, error)
	// Get reports a stream property.
	Get(prop Prop) (float64, error)
	// Release frees the handle. Further calls are invalid.
	Release() error
}

// Opener opens a Source for a video path.
type Opener interface {
	Open(ctx context.Context, path string) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, path string) (Source, error)

func (f OpenerFunc) Open(ctx context.Context, path string) (Source, error) {
	return f(ctx, path)
}
