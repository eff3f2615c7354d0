package video

import (
	"fmt"
	"strings"
)

// DefaultDatetime is used when a video carries no usable creation time.
const DefaultDatetime = "1970:01:01 00:00:00"

// Tristate is a boolean that may be unknown.
type Tristate int8

const (
	Unknown Tristate = iota
	False
	True
)

func TristateOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// Bool returns the value and whether it is known.
func (t Tristate) Bool() (value, known bool) {
	return t == True, t != Unknown
}

func (t Tristate) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tristate) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "true":
		*t = True
	case "false":
		*t = False
	case "unknown", "":
		*t = Unknown
	default:
		return fmt.Errorf("invalid tristate %q", b)
	}
	return nil
}

// Meta is the persisted attribute set of a video.
type Meta struct {
	FPS             float64   `json:"fps"`
	FrameNum        int       `json:"frame_num"`
	Duration        float64   `json:"duration"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	IsGopro         Tristate  `json:"is_gopro"`
	IsVariableFPS   bool      `json:"is_variable_fps"`
	Rotation        int       `json:"rotation"`
	Datetime        string    `json:"datetime"`
	FramesTimecodes []float64 `json:"frames_timecodes,omitempty"`
}

// record is the on-disk layout of a .meta file.
type record struct {
	Meta   Meta   `json:"meta"`
	Status Status `json:"status"`
}

// slots memoizes each attribute separately. A nil slot has not been
// computed yet; once set it is never recomputed until invalidated.
type slots struct {
	fps       *float64
	frameNum  *int
	width     *int
	height    *int
	isGopro   *Tristate
	variable  *bool
	rotation  *int
	datetime  *string
	timecodes *[]float64
}

func slotsFrom(m Meta) slots {
	s := slots{
		fps:      &m.FPS,
		frameNum: &m.FrameNum,
		width:    &m.Width,
		height:   &m.Height,
		isGopro:  &m.IsGopro,
		variable: &m.IsVariableFPS,
		rotation: &m.Rotation,
		datetime: &m.Datetime,
	}
	if m.IsVariableFPS {
		tc := m.FramesTimecodes
		s.timecodes = &tc
	}
	return s
}

// snapshot copies the computed slots into a Meta. Missing slots read as
// zero values.
func (s *slots) snapshot() Meta {
	var m Meta
	if s.fps != nil {
		m.FPS = *s.fps
	}
	if s.frameNum != nil {
		m.FrameNum = *s.frameNum
	}
	if m.FPS > 0 {
		m.Duration = float64(m.FrameNum) / m.FPS
	}
	if s.width != nil {
		m.Width = *s.width
	}
	if s.height != nil {
		m.Height = *s.height
	}
	if s.isGopro != nil {
		m.IsGopro = *s.isGopro
	}
	if s.variable != nil {
		m.IsVariableFPS = *s.variable
	}
	if s.rotation != nil {
		m.Rotation = *s.rotation
	}
	if s.datetime != nil {
		m.Datetime = *s.datetime
	}
	if m.IsVariableFPS && s.timecodes != nil {
		m.FramesTimecodes = append([]float64(nil), (*s.timecodes)...)
	}
	return m
}
