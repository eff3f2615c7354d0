package video

import "fmt"

// Status tracks how far a video has progressed through the pipeline.
type Status int

const (
	StatusInitiated     Status = 0
	StatusMetaCollected Status = 1
	StatusProcessed     Status = 2
	StatusPostprocessed Status = 3
	StatusErrored       Status = 10
	StatusDefective     Status = 11
)

func (s Status) String() string {
	switch s {
	case StatusInitiated:
		return "initiated"
	case StatusMetaCollected:
		return "metacollected"
	case StatusProcessed:
		return "processed"
	case StatusPostprocessed:
		return "postprocessed"
	case StatusErrored:
		return "errored"
	case StatusDefective:
		return "defective"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether s ends processing for the video.
func (s Status) Terminal() bool {
	return s == StatusErrored || s == StatusDefective
}

// advance returns the status that results from moving cur towards next.
// Terminal states stick, terminal targets always win, and ordinary states
// never move backwards.
func advance(cur, next Status) Status {
	switch {
	case cur.Terminal():
		return cur
	case next.Terminal():
		return next
	case next > cur:
		return next
	default:
		return cur
	}
}
