package scenes

import "sort"

// EventKind names what happened at an event.
type EventKind string

const (
	EventBoundary EventKind = "boundary"
	EventFadeOut  EventKind = "fade-out"
	EventFlash    EventKind = "flash"
)

// Event is a detection placed on the video timeline.
type Event struct {
	Kind  EventKind `json:"kind"`
	Frame int       `json:"frame"` // native frame index
	Time  float64   `json:"time"`  // seconds
}

// Timeline maps native frame indexes to seconds.
type Timeline interface {
	Timestamp(index int) float64
}

// Events places the flags of s on the timeline. indexes maps sampled frames
// to native ones; when nil, sampled and native indexes are taken to be the
// same. A boundary at pair i is reported at the second frame of the pair.
func Events(s *Summary, indexes []int, tl Timeline) []Event {
	native := func(i int) int {
		if i < len(indexes) {
			return indexes[i]
		}
		return i
	}
	add := func(out []Event, kind EventKind, i int) []Event {
		n := native(i)
		return append(out, Event{Kind: kind, Frame: n, Time: tl.Timestamp(n)})
	}

	var out []Event
	for i, b := range s.Postprocessed {
		if b != 0 {
			out = add(out, EventBoundary, i+1)
		}
	}
	for i, f := range s.FadeList {
		if f != 0 {
			out = add(out, EventFadeOut, i)
		}
	}
	for i, f := range s.FlashList {
		if f != 0 {
			out = add(out, EventFlash, i)
		}
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Frame < out[b].Frame })
	return out
}
