package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kikiluvv/shotscan/pkg/util"
)

// ProbeStreams returns container and stream information for filePath.
func (e *Executor) ProbeStreams(ctx context.Context, filePath string) (*StreamInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	out, err := e.probe(ctx,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	if err != nil {
		return nil, err
	}
	return parseStreamInfo(out)
}

func parseStreamInfo(out []byte) (*StreamInfo, error) {
	var info StreamInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(info.Streams) == 0 {
		return nil, fmt.Errorf("ffprobe reported no streams")
	}
	return &info, nil
}

// ProbePackets lists packet timing for every stream of filePath.
func (e *Executor) ProbePackets(ctx context.Context, filePath string) ([]Packet, error) {
	out, err := e.probe(ctx,
		"-v", "quiet",
		"-print_format", "json",
		"-show_entries", "packet=pts_time,duration_time,stream_index",
		filePath,
	)
	if err != nil {
		return nil, err
	}
	return parsePackets(out)
}

func parsePackets(out []byte) ([]Packet, error) {
	var result struct {
		Packets []Packet `json:"packets"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe packets: %w", err)
	}
	return result.Packets, nil
}

// ProbeRotation returns the raw rotate tag of the first video stream. An
// untagged stream yields an empty string.
func (e *Executor) ProbeRotation(ctx context.Context, filePath string) (string, error) {
	out, err := e.probe(ctx,
		"-loglevel", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream_tags=rotate",
		"-of", "default=nw=1:nk=1",
		"-i", filePath,
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ProbeVideo extracts the decode-relevant properties of filePath.
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	streams, err := e.ProbeStreams(ctx, filePath)
	if err != nil {
		return nil, err
	}
	return videoInfoFrom(filePath, streams)
}

func videoInfoFrom(filePath string, streams *StreamInfo) (*VideoInfo, error) {
	vs := streams.VideoStream()
	if vs == nil {
		return nil, fmt.Errorf("no video stream in %s", filePath)
	}

	info := &VideoInfo{
		FilePath:   filePath,
		Width:      vs.Width,
		Height:     vs.Height,
		VideoCodec: vs.CodecName,
		FPS:        util.ParseFrameRate(vs.AvgFrameRate),
	}
	if info.FPS == 0 {
		info.FPS = util.ParseFrameRate(vs.RFrameRate)
	}

	duration := vs.Duration
	if duration == "" {
		duration = streams.Format.Duration
	}
	if dur, err := strconv.ParseFloat(duration, 64); err == nil {
		info.Duration = util.SecondsToDuration(dur)
	}

	if n, err := strconv.Atoi(vs.NbFrames); err == nil && n > 0 {
		info.FrameCount = n
	} else if info.FPS > 0 {
		info.FrameCount = int(math.Round(info.Duration.Seconds() * info.FPS))
	}

	return info, nil
}
