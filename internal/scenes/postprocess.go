package scenes

// DefaultMinShotLength is the longest gap, in sampled frames, between
// boundaries that is merged away.
const DefaultMinShotLength = 7

type run struct {
	value      int
	start, end int // end exclusive
}

func runs(seq []int) []run {
	var out []run
	for i := 0; i < len(seq); {
		j := i + 1
		for j < len(seq) && seq[j] == seq[i] {
			j++
		}
		out = append(out, run{value: seq[i], start: i, end: j})
		i = j
	}
	return out
}

// Postprocess cleans shot candidates into boundaries in three passes over
// runs of equal values:
//
//  1. a run of 1s keeps only its leading 1;
//  2. a run of 0s no longer than minShotLen becomes 1s;
//  3. a run of 1s no longer than minShotLen keeps its leading 1, a longer one
//     keeps its first and last 1.
//
// The output has the length of the input.
func Postprocess(candidates []int, minShotLen int) []int {
	out := make([]int, len(candidates))
	copy(out, candidates)

	for _, r := range runs(out) {
		if r.value == 1 {
			clear(out[r.start+1 : r.end])
		}
	}

	for _, r := range runs(out) {
		if r.value == 0 && r.end-r.start <= minShotLen {
			for i := r.start; i < r.end; i++ {
				out[i] = 1
			}
		}
	}

	for _, r := range runs(out) {
		if r.value != 1 {
			continue
		}
		clear(out[r.start+1 : r.end])
		if r.end-r.start > minShotLen {
			out[r.end-1] = 1
		}
	}
	return out
}

// Disjunction ORs two flag sequences. The result has the length of a; flags
// of b past that length are ignored and missing ones read as 0.
func Disjunction(a, b []int) []int {
	out := make([]int, len(a))
	for i := range a {
		if a[i] != 0 || (i < len(b) && b[i] != 0) {
			out[i] = 1
		}
	}
	return out
}
