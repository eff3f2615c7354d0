package scenes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func zeros(n int) []int { return make([]int, n) }

func seq(parts ...[]int) []int {
	var out []int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestPostprocess(t *testing.T) {
	tests := []struct {
		name string
		in   []int
		want []int
	}{
		{
			name: "short gap merges into one boundary",
			in:   []int{1, 0, 0, 1},
			want: []int{1, 0, 0, 0},
		},
		{
			name: "isolated boundary survives",
			in:   seq(zeros(10), []int{1}, zeros(10)),
			want: seq(zeros(10), []int{1}, zeros(10)),
		},
		{
			name: "run of ones debounced",
			in:   seq(zeros(10), []int{1, 1, 1}, zeros(10)),
			want: seq(zeros(10), []int{1}, zeros(12)),
		},
		{
			name: "gap of exactly min shot length is filled",
			in:   seq([]int{1}, zeros(7), []int{1}, zeros(8)),
			want: seq([]int{1}, zeros(7), []int{1}, zeros(8)),
		},
		{
			name: "leading short gap becomes a boundary",
			in:   seq(zeros(3), []int{1}, zeros(9), []int{1, 1}, zeros(8), []int{1}, zeros(9)),
			want: seq([]int{1}, zeros(12), []int{1}, zeros(9), []int{1}, zeros(9)),
		},
		{
			name: "changing region of min shot length keeps its start",
			in:   seq(zeros(9), []int{1, 0, 0, 0, 0, 0, 1}, zeros(9)),
			want: seq(zeros(9), []int{1}, zeros(15)),
		},
		{
			name: "longer changing region keeps start and end",
			in:   seq(zeros(9), []int{1, 0, 0, 0, 0, 0, 0, 1}, zeros(9)),
			want: seq(zeros(9), []int{1, 0, 0, 0, 0, 0, 0, 1}, zeros(9)),
		},
		{
			name: "all zeros short",
			in:   zeros(3),
			want: []int{1, 0, 0},
		},
		{
			name: "empty",
			in:   []int{},
			want: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Postprocess(tt.in, DefaultMinShotLength)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.in))
		})
	}
}

func TestPostprocessIdempotent(t *testing.T) {
	inputs := [][]int{
		{1, 0, 0, 1},
		seq(zeros(9), []int{1, 0, 0, 0, 0, 0, 0, 1}, zeros(9)),
		seq(zeros(9), []int{1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1}, zeros(9)),
		seq(zeros(3), []int{1}, zeros(9), []int{1, 1}, zeros(8), []int{1}, zeros(9)),
		seq([]int{1, 1, 0, 1}, zeros(20), []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, zeros(4)),
	}
	for _, in := range inputs {
		once := Postprocess(in, DefaultMinShotLength)
		assert.Equal(t, once, Postprocess(once, DefaultMinShotLength))
	}
}

func TestPostprocessDoesNotModifyInput(t *testing.T) {
	in := []int{1, 1, 0, 0, 1}
	Postprocess(in, DefaultMinShotLength)
	assert.Equal(t, []int{1, 1, 0, 0, 1}, in)
}

func TestDisjunction(t *testing.T) {
	assert.Equal(t, []int{1, 1, 0, 1}, Disjunction([]int{1, 0, 0, 0}, []int{0, 1, 0, 1, 1}))
	assert.Equal(t, []int{0, 1, 0}, Disjunction([]int{0, 1, 0}, nil))
}
