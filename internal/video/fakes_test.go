package video

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/shotscan/internal/cache"
	"github.com/kikiluvv/shotscan/internal/decode"
	"github.com/kikiluvv/shotscan/internal/ffmpeg"
	"github.com/kikiluvv/shotscan/internal/video/videotest"
)

func newOpener() *videotest.Opener {
	return &videotest.Opener{Props: map[decode.Prop]float64{
		decode.PropFPS:        25,
		decode.PropFrameCount: 250,
		decode.PropWidth:      640,
		decode.PropHeight:     360,
	}}
}

func goproStreams() *ffmpeg.StreamInfo {
	return videotest.ConstantRate(map[string]string{
		"encoder":       "GoPro AVC encoder",
		"creation_time": "2019-05-04T10:11:12.000000Z",
	})
}

type fixture struct {
	store  *Store
	opener *videotest.Opener
	prober *videotest.Prober
	cache  cache.Store
	path   string
}

func newFixture(t *testing.T, limits Limits) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		opener: newOpener(),
		prober: &videotest.Prober{Streams: goproStreams(), Rotation: "90"},
		cache:  cache.New(filepath.Join(root, "cache"), root, false),
		path:   filepath.Join(root, "trailers", "a.mp4"),
	}
	f.store = NewStore(zerolog.Nop(), f.cache, f.opener, f.prober, limits)
	return f
}

// reopen builds a fresh store over the same cache with new fakes.
func (f *fixture) reopen() *fixture {
	g := *f
	g.opener = newOpener()
	g.prober = &videotest.Prober{Streams: goproStreams()}
	g.store = NewStore(zerolog.Nop(), f.cache, g.opener, g.prober, f.store.limits)
	return &g
}

func (f *fixture) lastSource() *videotest.Source {
	opened := f.opener.Opened()
	if len(opened) == 0 {
		return nil
	}
	return opened[len(opened)-1]
}
