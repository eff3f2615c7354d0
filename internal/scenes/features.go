package scenes

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrGridConfig reports a grid that cannot be laid over the frame.
var ErrGridConfig = errors.New("grid configuration does not fit frame")

// Features are the brightness statistics of one frame.
type Features struct {
	Crops []float64 // grid*grid crop means, row-major
	Mean  float64   // whole-frame mean
}

// Grid lays grid*grid crops of size (h/downscale, w/downscale) over a frame.
// Anchors are spread so the last crop touches the far edge of the frame.
type Grid struct {
	Size      int
	Downscale int
}

// Check validates the grid against a frame size. Call it before decoding
// starts so a bad configuration fails fast.
func (g Grid) Check(width, height int) error {
	if g.Size < 2 || g.Downscale < 1 {
		return fmt.Errorf("%w: grid %d, downscale %d", ErrGridConfig, g.Size, g.Downscale)
	}
	cropH, cropW := height/g.Downscale, width/g.Downscale
	if cropH == 0 || cropW == 0 {
		return fmt.Errorf("%w: %dx%d frame is smaller than downscale %d", ErrGridConfig, width, height, g.Downscale)
	}
	if height < g.Size*cropH {
		return fmt.Errorf("%w: height %d < %d lines * crop height %d", ErrGridConfig, height, g.Size, cropH)
	}
	if width < g.Size*cropW {
		return fmt.Errorf("%w: width %d < %d columns * crop width %d", ErrGridConfig, width, g.Size, cropW)
	}
	return nil
}

func (g Grid) anchors(dim, crop int) []int {
	pad := float64(dim - crop)
	out := make([]int, g.Size)
	for i := range out {
		out[i] = int(pad / float64(g.Size-1) * float64(i))
	}
	return out
}

// Extract computes crop means and the whole-frame mean over the luma of img.
func (g Grid) Extract(img image.Image) (Features, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if err := g.Check(w, h); err != nil {
		return Features{}, err
	}

	gray := luma(img)
	cropH, cropW := h/g.Downscale, w/g.Downscale
	ys, xs := g.anchors(h, cropH), g.anchors(w, cropW)

	f := Features{Crops: make([]float64, 0, g.Size*g.Size)}
	for _, y0 := range ys {
		for _, x0 := range xs {
			f.Crops = append(f.Crops, mean(gray, w, x0, y0, cropW, cropH))
		}
	}
	f.Mean = mean(gray, w, 0, 0, w, h)
	return f, nil
}

func mean(pix []uint8, stride, x0, y0, w, h int) float64 {
	var sum uint64
	for y := y0; y < y0+h; y++ {
		row := pix[y*stride+x0 : y*stride+x0+w]
		for _, p := range row {
			sum += uint64(p)
		}
	}
	return float64(sum) / float64(w*h)
}

// ITU-R BT.601 weights in 14-bit fixed point, rounded the way OpenCV's
// BGR2GRAY conversion rounds.
const (
	yR     = 4899
	yG     = 9617
	yB     = 1868
	yShift = 14
)

func grayOf(r, g, b uint32) uint8 {
	return uint8((r*yR + g*yG + b*yB + 1<<(yShift-1)) >> yShift)
}

// luma returns a tightly packed 8-bit intensity plane of img.
func luma(img image.Image) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch m := img.(type) {
	case *image.Gray:
		if m.Stride == w {
			return m.Pix[:w*h]
		}
		out := make([]uint8, 0, w*h)
		for y := 0; y < h; y++ {
			out = append(out, m.Pix[y*m.Stride:y*m.Stride+w]...)
		}
		return out
	case *image.RGBA:
		out := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			row := m.Pix[y*m.Stride : y*m.Stride+4*w]
			for x := 0; x < w; x++ {
				p := row[4*x : 4*x+3]
				out[y*w+x] = grayOf(uint32(p[0]), uint32(p[1]), uint32(p[2]))
			}
		}
		return out
	}

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			out[y*w+x] = grayOf(uint32(c.R), uint32(c.G), uint32(c.B))
		}
	}
	return out
}
