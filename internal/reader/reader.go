// Package reader supplies decoded frames to a single consumer. One worker
// goroutine owns the decode handle and fills a bounded queue; the consumer
// pulls a rate-sampled sequence from it with Next.
package reader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"time"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/shotscan/internal/decode"
	"github.com/kikiluvv/shotscan/internal/metrics"
)

const (
	DefaultTargetFPS      = 25
	DefaultQueueCapacity  = 200
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultStallWarning   = time.Second
	DefaultMaxNullRetries = 100
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("reader: closed")

// WorkerError wraps a fault of the decode worker, cancellation included.
type WorkerError struct {
	Err error
}

func (e *WorkerError) Error() string { return "decode worker: " + e.Err.Error() }
func (e *WorkerError) Unwrap() error { return e.Err }

// Info is what the reader needs to know about the video behind a Source.
type Info struct {
	FPS      float64
	FrameNum int
	// IsGopro makes null frames retryable instead of ending the stream.
	IsGopro bool
}

// Options control sampling, range, output size and queueing. Zero values
// select the defaults.
type Options struct {
	TargetFPS float64
	Start     int
	End       int // exclusive; 0 reads to the last frame
	// Width and Height resize every frame before it is queued. Both must be
	// set to enable resizing.
	Width  int
	Height int

	QueueCapacity  int
	PollInterval   time.Duration
	StallWarning   time.Duration
	MaxNullRetries int // consecutive null frames tolerated on GoPro sources
}

func (o Options) withDefaults(frameNum int) Options {
	if o.TargetFPS <= 0 {
		o.TargetFPS = DefaultTargetFPS
	}
	if o.Start < 0 {
		o.Start = 0
	}
	if o.End <= 0 || o.End > frameNum {
		o.End = frameNum
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = DefaultQueueCapacity
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.StallWarning <= 0 {
		o.StallWarning = DefaultStallWarning
	}
	if o.MaxNullRetries <= 0 {
		o.MaxNullRetries = DefaultMaxNullRetries
	}
	return o
}

// Frame is one sampled frame with its native index.
type Frame struct {
	Index int
	Image image.Image
}

// SkipRate is the number of native frames advanced per sampled frame.
func SkipRate(nativeFPS, targetFPS float64) int {
	if targetFPS <= 0 || nativeFPS <= 0 {
		return 1
	}
	return max(1, int(math.Floor(nativeFPS/targetFPS)))
}

// Reader is a single-pass frame sequence. Next and Close must be called from
// the same goroutine.
type Reader struct {
	logger zerolog.Logger
	opts   Options
	info   Info
	skip   int

	src    decode.Source
	frames chan image.Image
	cancel context.CancelFunc
	done   chan struct{}

	// written by the worker before frames is closed
	err error

	counter  int
	reported bool
	closed   bool
}

// Open starts the decode worker on src. The reader owns src from here on
// and releases it when the worker exits.
func Open(ctx context.Context, logger zerolog.Logger, src decode.Source, info Info, opts Options) *Reader {
	opts = opts.withDefaults(info.FrameNum)
	ctx, cancel := context.WithCancel(ctx)

	r := &Reader{
		logger: logger.With().Str("component", "reader").Logger(),
		opts:   opts,
		info:   info,
		skip:   SkipRate(info.FPS, opts.TargetFPS),
		src:    src,
		frames: make(chan image.Image, opts.QueueCapacity),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	r.logger.Debug().
		Int("start", opts.Start).
		Int("end", opts.End).
		Int("skip", r.skip).
		Int("queue", opts.QueueCapacity).
		Msg("starting decode worker")

	go r.run(ctx)
	return r
}

// SkipRate returns the sampling step in effect.
func (r *Reader) SkipRate() int { return r.skip }

// Len is the number of frames the sequence yields when the source delivers
// every frame of the range.
func (r *Reader) Len() int {
	n := r.opts.End - r.opts.Start
	if n <= 0 {
		return 0
	}
	return (n + r.skip - 1) / r.skip
}

// Next returns the next sampled frame. The sequence ends with io.EOF. A
// worker fault is returned once as a *WorkerError, then io.EOF.
func (r *Reader) Next() (Frame, error) {
	if r.closed {
		return Frame{}, ErrClosed
	}
	for r.counter < r.opts.End-r.opts.Start {
		img, err := r.pull()
		if err != nil {
			return Frame{}, err
		}
		idx := r.counter
		r.counter++
		if idx%r.skip != 0 {
			continue
		}
		metrics.FramesYieldedTotal.Inc()
		return Frame{Index: r.opts.Start + idx, Image: img}, nil
	}
	return Frame{}, io.EOF
}

// Close stops the worker and waits for it to release the source.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.cancel()
	<-r.done
	return nil
}

// pull waits for the next queued frame. The wait is broken into poll
// intervals so long stalls get reported.
func (r *Reader) pull() (image.Image, error) {
	select {
	case img, ok := <-r.frames:
		if !ok {
			return nil, r.finish()
		}
		return img, nil
	default:
	}

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	waiting := time.Now()
	lastWarn := waiting
	for {
		select {
		case img, ok := <-r.frames:
			if !ok {
				return nil, r.finish()
			}
			return img, nil
		case now := <-ticker.C:
			if now.Sub(lastWarn) > r.opts.StallWarning {
				metrics.ConsumerStallsTotal.Inc()
				r.logger.Warn().
					Dur("waited", now.Sub(waiting)).
					Int("frame", r.opts.Start+r.counter).
					Msg("frame queue empty")
				lastWarn = now
			}
		}
	}
}

// finish is called once the worker has exited and the queue is drained.
func (r *Reader) finish() error {
	if r.err != nil && !r.reported {
		r.reported = true
		return &WorkerError{Err: r.err}
	}
	return io.EOF
}

func (r *Reader) run(ctx context.Context) {
	defer close(r.done)
	defer close(r.frames)
	defer func() {
		if err := r.src.Release(); err != nil {
			r.logger.Warn().Err(err).Msg("releasing decode handle failed")
		}
	}()

	r.err = r.decode(ctx)
	if r.err != nil {
		r.logger.Debug().Err(r.err).Msg("decode worker stopped")
	}
}

func (r *Reader) decode(ctx context.Context) error {
	if r.opts.Start > 0 {
		if err := r.src.Seek(r.opts.Start); err != nil {
			return fmt.Errorf("seek to frame %d: %w", r.opts.Start, err)
		}
	}

	resizing := r.opts.Width > 0 && r.opts.Height > 0
	nulls := 0
	for idx := r.opts.Start; idx < r.opts.End; {
		if err := ctx.Err(); err != nil {
			return err
		}

		img, err := r.src.Read()
		if err != nil {
			return fmt.Errorf("read frame %d: %w", idx, err)
		}
		if img == nil {
			if !r.info.IsGopro {
				r.logger.Debug().Int("frame", idx).Msg("null frame, end of stream")
				return nil
			}
			nulls++
			if nulls > r.opts.MaxNullRetries {
				r.logger.Warn().
					Int("frame", idx).
					Int("nulls", nulls).
					Msg("too many consecutive null frames, ending stream")
				return nil
			}
			metrics.NullFrameRetriesTotal.Inc()
			continue
		}
		nulls = 0

		if resizing {
			img = resize.Resize(uint(r.opts.Width), uint(r.opts.Height), img, resize.Bilinear)
		}
		if err := r.enqueue(ctx, img); err != nil {
			return err
		}
		metrics.FramesDecodedTotal.Inc()
		idx++
	}
	return nil
}

// enqueue backs off in poll intervals while the queue is full.
func (r *Reader) enqueue(ctx context.Context, img image.Image) error {
	for {
		select {
		case r.frames <- img:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		metrics.QueueFullWaitsTotal.Inc()
		timer := time.NewTimer(r.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
