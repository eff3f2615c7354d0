package ffmpeg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStreams = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
     "r_frame_rate": "30000/1001", "avg_frame_rate": "30000/1001", "nb_frames": "300",
     "duration": "10.010000", "tags": {"rotate": "90", "handler_name": "GoPro AVC"}},
    {"index": 1, "codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"duration": "10.020000", "bit_rate": "1000",
             "tags": {"encoder": "GoPro AVC encoder", "creation_time": "2019-05-04T10:11:12.000000Z"}}
}`

func TestParseStreamInfo(t *testing.T) {
	info, err := parseStreamInfo([]byte(sampleStreams))
	require.NoError(t, err)

	vs := info.VideoStream()
	require.NotNil(t, vs)
	assert.Equal(t, "30000/1001", vs.AvgFrameRate)

	enc, ok := info.Tag("encoder")
	assert.True(t, ok)
	assert.Equal(t, "GoPro AVC encoder", enc)

	// stream tags are searched after the container tags
	handler, ok := info.Tag("handler_name")
	assert.True(t, ok)
	assert.Equal(t, "GoPro AVC", handler)

	_, ok = info.Tag("date")
	assert.False(t, ok)
}

func TestParseStreamInfoRejectsGarbage(t *testing.T) {
	_, err := parseStreamInfo([]byte("not json"))
	assert.Error(t, err)

	_, err = parseStreamInfo([]byte(`{"streams": []}`))
	assert.Error(t, err)
}

func TestVideoInfoFrom(t *testing.T) {
	streams, err := parseStreamInfo([]byte(sampleStreams))
	require.NoError(t, err)

	info, err := videoInfoFrom("a.mp4", streams)
	require.NoError(t, err)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.Equal(t, 300, info.FrameCount)
	assert.InDelta(t, 29.97, info.FPS, 0.01)
	assert.InDelta(t, 10.01, info.Duration.Seconds(), 1e-6)
}

func TestVideoInfoFromEstimatesFrameCount(t *testing.T) {
	streams := &StreamInfo{
		Streams: []Stream{{CodecType: "video", Width: 64, Height: 64, AvgFrameRate: "25/1"}},
		Format:  Format{Duration: "4.0"},
	}
	info, err := videoInfoFrom("b.mkv", streams)
	require.NoError(t, err)
	assert.Equal(t, 100, info.FrameCount)

	_, err = videoInfoFrom("c.mp3", &StreamInfo{Streams: []Stream{{CodecType: "audio"}}})
	assert.Error(t, err)
}

func TestParsePackets(t *testing.T) {
	packets, err := parsePackets([]byte(`{"packets": [
		{"pts_time": "0.000000", "stream_index": 0},
		{"pts_time": "0.021333", "stream_index": 1},
		{"pts_time": "0.033367", "stream_index": 0}
	]}`))
	require.NoError(t, err)
	require.Len(t, packets, 3)
	assert.Equal(t, "0.033367", packets[2].PTSTime)
	assert.Equal(t, 1, packets[1].StreamIndex)
}

func TestFilterBuilder(t *testing.T) {
	filter := NewFilterBuilder().Transpose(90).Scale(320, 0).Build()
	assert.Equal(t, "transpose=1,scale=320:-2", filter)
}

func TestFilterBuilderEmpty(t *testing.T) {
	assert.Equal(t, "", NewFilterBuilder().Scale(0, 0).Transpose(0).Build())
}

func TestFilterBuilderRotations(t *testing.T) {
	assert.Equal(t, "transpose=1,transpose=1", NewFilterBuilder().Transpose(180).Build())
	assert.Equal(t, "transpose=2", NewFilterBuilder().Transpose(270).Build())
	assert.Equal(t, "null", NewFilterBuilder().Custom("null").Build())
}

func TestStreamOutputProgress(t *testing.T) {
	input := strings.Join([]string{
		"frame=10", "fps=25.0", "bitrate=N/A", "out_time=00:00:00.400000", "speed=1.2x", "progress=continue",
		"frame=0", "progress=end",
	}, "\n")

	var got []Progress
	var lines int
	streamOutput(strings.NewReader(input), func(p *Progress) { got = append(got, *p) }, func(string) { lines++ })

	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Frame)
	assert.Equal(t, 25.0, got[0].FPS)
	assert.Equal(t, "00:00:00.400000", got[0].Time)
	assert.Equal(t, "1.2x", got[0].Speed)
	assert.Equal(t, 8, lines)
}
