package reader

import (
	"context"
	"fmt"

	"github.com/kikiluvv/shotscan/internal/decode"
	"github.com/kikiluvv/shotscan/internal/video"
)

// OpenVideo opens a fresh decode handle for v and starts a reader on it,
// logging under the video's logger.
func OpenVideo(ctx context.Context, opener decode.Opener, v *video.Video, opts Options) (*Reader, error) {
	src, err := opener.Open(ctx, v.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", v.Path, err)
	}
	meta := v.Meta()
	gopro, _ := meta.IsGopro.Bool()
	info := Info{
		FPS:      meta.FPS,
		FrameNum: meta.FrameNum,
		IsGopro:  gopro,
	}
	return Open(ctx, v.Logger(), src, info, opts), nil
}
