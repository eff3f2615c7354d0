package scenes

// Transition labels a frame by the brightness trend of the window ending at
// it. The numeric values are persisted.
type Transition int

const (
	None    Transition = 0
	FadeOut Transition = 1
	Flash   Transition = 2
)

func (t Transition) String() string {
	switch t {
	case FadeOut:
		return "fade-out"
	case Flash:
		return "flash"
	default:
		return "none"
	}
}

// WindowSize is the number of whole-frame means a label looks at.
const WindowSize = 5

// DefaultFadeRatio is the relative brightness step counted as a change.
const DefaultFadeRatio = 0.05

// Classify labels a window of whole-frame means. Every consecutive pair must
// darken for a fade-out or brighten for a flash; one reversal yields None.
func Classify(m [WindowSize]float64, ratio float64) Transition {
	darker, brighter := 0, 0
	for i := 0; i < WindowSize-1; i++ {
		d := m[i] - m[i+1]
		limit := max(m[i], m[i+1]) * ratio
		if d > limit {
			darker++
		}
		if d < -limit {
			brighter++
		}
	}
	switch {
	case brighter == WindowSize-1:
		return Flash
	case darker == WindowSize-1:
		return FadeOut
	default:
		return None
	}
}

// FadeWindow classifies a stream of whole-frame means as they arrive.
type FadeWindow struct {
	ratio float64
	buf   [WindowSize]float64
	n     int
}

func NewFadeWindow(ratio float64) *FadeWindow {
	if ratio <= 0 {
		ratio = DefaultFadeRatio
	}
	return &FadeWindow{ratio: ratio}
}

// Push adds the next mean and labels its frame. Until the window is full the
// label is None.
func (w *FadeWindow) Push(mean float64) Transition {
	if w.n < WindowSize {
		w.buf[w.n] = mean
		w.n++
	} else {
		copy(w.buf[:], w.buf[1:])
		w.buf[WindowSize-1] = mean
	}
	if w.n < WindowSize {
		return None
	}
	return Classify(w.buf, w.ratio)
}

// SplitTransitions turns labels into separate fade-out and flash flag
// sequences of the same length.
func SplitTransitions(labels []int) (fades, flashes []int) {
	fades = make([]int, len(labels))
	flashes = make([]int, len(labels))
	for i, l := range labels {
		switch Transition(l) {
		case FadeOut:
			fades[i] = 1
		case Flash:
			flashes[i] = 1
		}
	}
	return fades, flashes
}
