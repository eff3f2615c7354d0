// Package videotest provides in-memory decode backends and probe tools for
// tests.
package videotest

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/kikiluvv/shotscan/internal/decode"
	"github.com/kikiluvv/shotscan/internal/ffmpeg"
)

// Source plays back a fixed list of frames. A nil entry is a null frame;
// reads past the end return null frames.
type Source struct {
	mu     sync.Mutex
	Props  map[decode.Prop]float64
	Frames []image.Image
	// ReadErr, when set, is returned by the read of frame ReadErrAt.
	ReadErr   error
	ReadErrAt int

	pos      int
	released bool
}

func (s *Source) Seek(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = index
	return nil
}

func (s *Source) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil && s.pos == s.ReadErrAt {
		return nil, s.ReadErr
	}
	if s.pos >= len(s.Frames) {
		return nil, nil
	}
	img := s.Frames[s.pos]
	s.pos++
	return img, nil
}

func (s *Source) Get(p decode.Prop) (float64, error) {
	v, ok := s.Props[p]
	if !ok {
		return 0, errors.New("unsupported property")
	}
	return v, nil
}

func (s *Source) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	return nil
}

func (s *Source) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Opener hands out a new Source over the same frames on every Open.
type Opener struct {
	Props     map[decode.Prop]float64
	Frames    []image.Image
	Err       error
	ReadErr   error
	ReadErrAt int

	mu     sync.Mutex
	opened []*Source
}

// NewOpener reports props derived from frames at the given rate.
func NewOpener(fps float64, frames []image.Image) *Opener {
	o := &Opener{Frames: frames, Props: map[decode.Prop]float64{
		decode.PropFPS:        fps,
		decode.PropFrameCount: float64(len(frames)),
	}}
	if len(frames) > 0 && frames[0] != nil {
		b := frames[0].Bounds()
		o.Props[decode.PropWidth] = float64(b.Dx())
		o.Props[decode.PropHeight] = float64(b.Dy())
	}
	return o
}

func (o *Opener) Open(ctx context.Context, path string) (decode.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	s := &Source{Props: o.Props, Frames: o.Frames, ReadErr: o.ReadErr, ReadErrAt: o.ReadErrAt}
	o.opened = append(o.opened, s)
	return s, nil
}

// Opened returns every Source handed out so far.
func (o *Opener) Opened() []*Source {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Source(nil), o.opened...)
}

// Prober answers probe queries from canned values.
type Prober struct {
	Streams     *ffmpeg.StreamInfo
	StreamsErr  error
	Packets     []ffmpeg.Packet
	PacketsErr  error
	Rotation    string
	RotationErr error

	mu    sync.Mutex
	calls int
}

func (p *Prober) count() {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
}

func (p *Prober) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Prober) ProbeStreams(ctx context.Context, path string) (*ffmpeg.StreamInfo, error) {
	p.count()
	return p.Streams, p.StreamsErr
}

func (p *Prober) ProbePackets(ctx context.Context, path string) ([]ffmpeg.Packet, error) {
	p.count()
	return p.Packets, p.PacketsErr
}

func (p *Prober) ProbeRotation(ctx context.Context, path string) (string, error) {
	p.count()
	return p.Rotation, p.RotationErr
}

// ConstantRate is stream info of a 25 fps video with the given format tags.
func ConstantRate(tags map[string]string) *ffmpeg.StreamInfo {
	return &ffmpeg.StreamInfo{
		Streams: []ffmpeg.Stream{{Index: 0, CodecType: "video", AvgFrameRate: "25/1"}},
		Format:  ffmpeg.Format{Tags: tags},
	}
}

// Uniform returns a w×h frame of one gray level.
func Uniform(w, h int, level uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: level, G: level, B: level, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
