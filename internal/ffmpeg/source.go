package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"

	"github.com/kikiluvv/shotscan/internal/decode"
)

// Source decodes a video into RGBA frames by piping ffmpeg rawvideo output.
// It implements decode.Source.
type Source struct {
	exec *Executor
	ctx  context.Context
	path string
	info *VideoInfo

	start  int
	cmd    *exec.Cmd
	cancel context.CancelFunc
	out    *bufio.Reader
}

var _ decode.Source = (*Source)(nil)

// Open probes path and returns a Source positioned at frame 0. The decoder
// process starts on the first Read.
func (e *Executor) Open(ctx context.Context, path string) (decode.Source, error) {
	info, err := e.ProbeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("open %s: invalid frame size %dx%d", path, info.Width, info.Height)
	}
	return &Source{exec: e, ctx: ctx, path: path, info: info}, nil
}

func (s *Source) Seek(index int) error {
	if index < 0 {
		return fmt.Errorf("seek: negative frame index %d", index)
	}
	if err := s.stop(); err != nil {
		return err
	}
	s.start = index
	return nil
}

func (s *Source) Read() (image.Image, error) {
	if s.out == nil {
		if err := s.spawn(); err != nil {
			return nil, err
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	if _, err := io.ReadFull(s.out, img.Pix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return img, nil
}

func (s *Source) Get(prop decode.Prop) (float64, error) {
	switch prop {
	case decode.PropFPS:
		return s.info.FPS, nil
	case decode.PropFrameCount:
		return float64(s.info.FrameCount), nil
	case decode.PropWidth:
		return float64(s.info.Width), nil
	case decode.PropHeight:
		return float64(s.info.Height), nil
	default:
		return 0, fmt.Errorf("unsupported property %s", prop)
	}
}

func (s *Source) Release() error {
	return s.stop()
}

func (s *Source) spawn() error {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if s.start > 0 && s.info.FPS > 0 {
		seconds := float64(s.start) / s.info.FPS
		args = append(args, "-ss", strconv.FormatFloat(seconds, 'f', 6, 64))
	}
	args = append(args,
		"-noautorotate",
		"-i", s.path,
		"-map", "0:v:0",
		"-vsync", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)

	s.exec.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("starting decoder")

	ctx, cancel := context.WithCancel(s.ctx)
	cmd := exec.CommandContext(ctx, s.exec.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start decoder: %w", err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.out = bufio.NewReaderSize(stdout, 4*s.info.Width*s.info.Height)
	return nil
}

func (s *Source) stop() error {
	if s.cmd == nil {
		return nil
	}
	s.cancel()
	// the process is killed on purpose; its exit status carries no information
	_ = s.cmd.Wait()
	s.cmd, s.cancel, s.out = nil, nil, nil
	return nil
}
