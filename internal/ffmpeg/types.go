package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	VideoCodec string
}

// Packet is one entry of ffprobe -show_entries packet output.
type Packet struct {
	PTSTime      string `json:"pts_time"`
	DurationTime string `json:"duration_time"`
	StreamIndex  int    `json:"stream_index"`
}

// StreamInfo is the subset of ffprobe -show_streams/-show_format output used
// for metadata collection.
type StreamInfo struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

type Stream struct {
	Index        int               `json:"index"`
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	RFrameRate   string            `json:"r_frame_rate"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	NbFrames     string            `json:"nb_frames"`
	Duration     string            `json:"duration"`
	Tags         map[string]string `json:"tags"`
}

type Format struct {
	Duration string            `json:"duration"`
	BitRate  string            `json:"bit_rate"`
	Tags     map[string]string `json:"tags"`
}

// VideoStream returns the first video stream, or nil.
func (s *StreamInfo) VideoStream() *Stream {
	for i := range s.Streams {
		if s.Streams[i].CodecType == "video" {
			return &s.Streams[i]
		}
	}
	return nil
}

// Tag looks a tag up on the container first, then on the streams.
func (s *StreamInfo) Tag(name string) (string, bool) {
	if v, ok := s.Format.Tags[name]; ok {
		return v, true
	}
	for _, st := range s.Streams {
		if v, ok := st.Tags[name]; ok {
			return v, true
		}
	}
	return "", false
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
type ProgressFunc func(*Progress)
