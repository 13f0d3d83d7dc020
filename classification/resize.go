package classification

import (
	"image"
	"math"
)

// Fixed-point layout of OpenCV's 8-bit linear resize: 11-bit tap weights,
// horizontal sums pre-shifted by 4 before the vertical pass.
const (
	resizeCoefBits  = 11
	resizeCoefScale = 1 << resizeCoefBits
)

type linearTap struct {
	src    int
	w0, w1 int32
}

// linearTaps maps every destination index to its two source taps using
// half-pixel centers. Taps past the last source pixel collapse onto it.
func linearTaps(srcLen, dstLen int) []linearTap {
	scale := float64(srcLen) / float64(dstLen)
	taps := make([]linearTap, dstLen)
	for d := range taps {
		f := float32((float64(d)+0.5)*scale - 0.5)
		s := int(math.Floor(float64(f)))
		f -= float32(s)
		if s < 0 {
			s, f = 0, 0
		}
		if s >= srcLen-1 {
			s, f = srcLen-1, 0
		}
		w0 := int32(math.RoundToEven(float64((1 - f) * resizeCoefScale)))
		taps[d] = linearTap{src: s, w0: w0, w1: resizeCoefScale - w0}
	}
	return taps
}

// resizeLinear reproduces cv2.resize(..., INTER_LINEAR) on 8-bit images.
// Same-size input is returned as is and an exact 2x downscale averages
// 2x2 blocks, as OpenCV does for that case. Output alpha is opaque.
func resizeLinear(src *image.NRGBA, dstW, dstH int) *image.NRGBA {
	srcW, srcH := src.Rect.Dx(), src.Rect.Dy()
	if srcW == dstW && srcH == dstH {
		return src
	}
	if srcW == 2*dstW && srcH == 2*dstH {
		return resizeHalf(src, dstW, dstH)
	}

	xTaps := linearTaps(srcW, dstW)
	yTaps := linearTaps(srcH, dstH)

	// Horizontally resized source rows, 3 channels each.
	rows := make([][]int32, srcH)
	hrow := func(sy int) []int32 {
		if rows[sy] != nil {
			return rows[sy]
		}
		line := src.Pix[sy*src.Stride:]
		row := make([]int32, dstW*3)
		for dx, t := range xTaps {
			a := line[t.src*4:]
			b := a
			if t.w1 != 0 {
				b = line[(t.src+1)*4:]
			}
			for c := 0; c < 3; c++ {
				row[dx*3+c] = int32(a[c])*t.w0 + int32(b[c])*t.w1
			}
		}
		rows[sy] = row
		return row
	}

	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	for dy, t := range yTaps {
		r0 := hrow(t.src)
		r1 := r0
		if t.w1 != 0 {
			r1 = hrow(t.src + 1)
		}
		out := dst.Pix[dy*dst.Stride:]
		for dx := 0; dx < dstW; dx++ {
			for c := 0; c < 3; c++ {
				i := dx*3 + c
				v := (t.w0*(r0[i]>>4))>>16 + (t.w1*(r1[i]>>4))>>16
				out[dx*4+c] = clampUint8((v + 2) >> 2)
			}
			out[dx*4+3] = 0xff
		}
	}
	return dst
}

func resizeHalf(src *image.NRGBA, dstW, dstH int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	for dy := 0; dy < dstH; dy++ {
		l0 := src.Pix[2*dy*src.Stride:]
		l1 := src.Pix[(2*dy+1)*src.Stride:]
		out := dst.Pix[dy*dst.Stride:]
		for dx := 0; dx < dstW; dx++ {
			a, b := l0[dx*8:], l1[dx*8:]
			for c := 0; c < 3; c++ {
				sum := int32(a[c]) + int32(a[4+c]) + int32(b[c]) + int32(b[4+c])
				out[dx*4+c] = uint8((sum + 2) >> 2)
			}
			out[dx*4+3] = 0xff
		}
	}
	return dst
}

func clampUint8(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 0xff {
		return 0xff
	}
	return uint8(v)
}
