package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/shotscan/pkg/util"
)

// ThumbnailOptions controls ExtractFrame output.
type ThumbnailOptions struct {
	Width    int // 0 keeps the source width (or aspect when Height is set)
	Height   int
	Rotation int // rotate tag of the source, undone with transpose
}

// ExtractFrame writes the frame at timestamp to output as a high quality JPEG.
func (e *Executor) ExtractFrame(ctx context.Context, input, output string, timestamp time.Duration, opts ThumbnailOptions) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Dur("timestamp", timestamp).
		Msg("extracting frame")

	args := []string{
		"-ss", util.FormatDuration(timestamp),
		"-noautorotate",
		"-i", input,
		"-vframes", "1",
	}

	filter := NewFilterBuilder().
		Transpose(opts.Rotation).
		Scale(opts.Width, opts.Height).
		Build()
	if filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args, "-q:v", "2", output)

	return e.Run(ctx, RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame extraction")
		},
	})
}
