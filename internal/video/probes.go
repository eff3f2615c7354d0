package video

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kikiluvv/shotscan/internal/ffmpeg"
	"github.com/kikiluvv/shotscan/pkg/util"
)

// parseRotation normalizes the rotate tag. Anything but 90, 180 or 270 is 0.
func parseRotation(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	deg, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	switch deg {
	case 90, 180, 270:
		return deg
	default:
		return 0
	}
}

// variableFPS reports whether an average frame rate denotes a stream without
// a fixed frame interval. Constant-rate streams use a denominator of 1 or
// 1001 (NTSC rates).
func variableFPS(avgFrameRate string) (bool, error) {
	_, den, err := util.SplitFrameRate(avgFrameRate)
	if err != nil {
		return false, err
	}
	return den != 1 && den != 1001, nil
}

// timecodesFrom returns the presentation times of stream's packets in
// ascending order. Packets without a timestamp are skipped.
func timecodesFrom(packets []ffmpeg.Packet, stream int) []float64 {
	tc := make([]float64, 0, len(packets))
	for _, p := range packets {
		if p.StreamIndex != stream {
			continue
		}
		v, err := strconv.ParseFloat(p.PTSTime, 64)
		if err != nil {
			continue
		}
		tc = append(tc, v)
	}
	sort.Float64s(tc)
	return tc
}

// datetimeFrom formats the creation_time tag as "YYYY:MM:DD HH:MM:SS". When
// creation_time only holds a time of day, the date tag supplies the day.
func datetimeFrom(info *ffmpeg.StreamInfo) (string, error) {
	refLen := len(DefaultDatetime)

	created, ok := info.Tag("creation_time")
	if !ok {
		return "", fmt.Errorf("no creation_time tag")
	}
	if len(created) > refLen {
		created = created[:refLen]
	}
	dt := strings.NewReplacer("-", ":", "T", " ").Replace(created)

	if date, ok := info.Tag("date"); ok && len(dt) != refLen {
		dt = strings.ReplaceAll(date, "-", ":") + " " + dt
	}
	if len(dt) != refLen {
		return "", fmt.Errorf("unrecognized creation time %q", created)
	}
	return dt, nil
}

// goproFrom inspects the encoder tag. A missing tag is Unknown, not False.
func goproFrom(info *ffmpeg.StreamInfo) Tristate {
	if info == nil {
		return Unknown
	}
	enc, ok := info.Tag("encoder")
	if !ok {
		return Unknown
	}
	return TristateOf(strings.Contains(strings.ToLower(enc), "gopro"))
}
