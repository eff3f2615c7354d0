// Package clips cuts a video timeline into shots at detected boundaries.
package clips

import (
	"fmt"
	"sort"
	"time"
)

// Clip is one shot: the frames between two boundaries.
type Clip struct {
	ID         string        `json:"id"`
	StartFrame int           `json:"start_frame"`
	EndFrame   int           `json:"end_frame"` // exclusive
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Duration   time.Duration `json:"duration"`
}

// Timeline maps native frame indexes to seconds.
type Timeline interface {
	Timestamp(index int) float64
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// FromBoundaries splits frames [0, frameNum) at every boundary frame. A
// boundary starts a new clip; boundaries outside the range are ignored.
func FromBoundaries(prefix string, boundaries []int, frameNum int, tl Timeline) []*Clip {
	if frameNum <= 0 {
		return nil
	}

	cuts := []int{0}
	sorted := append([]int(nil), boundaries...)
	sort.Ints(sorted)
	for _, b := range sorted {
		if b > cuts[len(cuts)-1] && b < frameNum {
			cuts = append(cuts, b)
		}
	}
	cuts = append(cuts, frameNum)

	out := make([]*Clip, 0, len(cuts)-1)
	for i := 0; i < len(cuts)-1; i++ {
		start, end := seconds(tl.Timestamp(cuts[i])), seconds(tl.Timestamp(cuts[i+1]))
		out = append(out, &Clip{
			ID:         fmt.Sprintf("%s-%03d", prefix, i),
			StartFrame: cuts[i],
			EndFrame:   cuts[i+1],
			Start:      start,
			End:        end,
			Duration:   end - start,
		})
	}
	return out
}
