package scenes

// Defaults for shot candidate detection.
const (
	DefaultRelativeThreshold = 0.08
	DefaultMinCells          = 20
)

// Threshold marks each adjacent frame pair whose grid changed in at least
// minCells cells. A cell changed when its means differ by strictly more than
// relThr times the smaller one. The result has one entry per pair.
func Threshold(crops [][]float64, relThr float64, minCells int) []int {
	if len(crops) < 2 {
		return []int{}
	}
	out := make([]int, len(crops)-1)
	for i := range out {
		a, b := crops[i], crops[i+1]
		changed := 0
		for j := 0; j < len(a) && j < len(b); j++ {
			diff := a[j] - b[j]
			if diff < 0 {
				diff = -diff
			}
			if diff > min(a[j], b[j])*relThr {
				changed++
			}
		}
		if changed >= minCells {
			out[i] = 1
		}
	}
	return out
}
