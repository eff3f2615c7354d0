package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder helps construct ffmpeg -vf filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a scale filter. A zero dimension keeps the aspect ratio.
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 && height <= 0 {
		return fb
	}
	if width <= 0 {
		width = -2
	}
	if height <= 0 {
		height = -2
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// Transpose rotates the picture to undo a rotate tag of 90, 180 or 270.
func (fb *FilterBuilder) Transpose(rotation int) *FilterBuilder {
	switch rotation {
	case 90:
		fb.filters = append(fb.filters, "transpose=1")
	case 180:
		fb.filters = append(fb.filters, "transpose=1", "transpose=1")
	case 270:
		fb.filters = append(fb.filters, "transpose=2")
	}
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}
