package classification

import (
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Preprocessor converts decoded images into the (1, 224, 224, 3) input
// tensor. Pixel values stay in the 0-255 range.
type Preprocessor struct {
	width, height int
	order         ChannelOrder
	numWorkers    int
}

func NewPreprocessor(order ChannelOrder) *Preprocessor {
	if order == "" {
		order = OrderBGR
	}
	return &Preprocessor{
		width:      InputWidth,
		height:     InputHeight,
		order:      order,
		numWorkers: runtime.GOMAXPROCS(0),
	}
}

// Resize scales img to the model input size with OpenCV's INTER_LINEAR
// sampling. Alpha is ignored, so transparent pixels keep their color.
func (p *Preprocessor) Resize(img image.Image) *image.NRGBA {
	return resizeLinear(toNRGBA(img), p.width, p.height)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// Process resizes img and writes it into a fresh tensor.
func (p *Preprocessor) Process(img image.Image) *Tensor {
	return p.Tensor(p.Resize(img))
}

// Tensor writes an already resized image into a fresh tensor.
func (p *Preprocessor) Tensor(resized *image.NRGBA) *Tensor {
	t := &Tensor{
		Shape: []int64{1, int64(p.height), int64(p.width), InputChannels},
		Data:  make([]float32, p.height*p.width*InputChannels),
	}
	if p.numWorkers > 1 {
		p.processParallel(resized, t.Data)
	} else {
		p.processRows(resized, t.Data, 0, p.height)
	}
	return t
}

func (p *Preprocessor) processParallel(img *image.NRGBA, buffer []float32) {
	rowsPerWorker := p.height / p.numWorkers
	if rowsPerWorker == 0 {
		p.processRows(img, buffer, 0, p.height)
		return
	}

	var wg sync.WaitGroup
	wg.Add(p.numWorkers)

	for w := 0; w < p.numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := (w + 1) * rowsPerWorker
		if w == p.numWorkers-1 {
			endRow = p.height
		}

		go func(start, end int) {
			defer wg.Done()
			p.processRows(img, buffer, start, end)
		}(startRow, endRow)
	}

	wg.Wait()
}

func (p *Preprocessor) processRows(img *image.NRGBA, buffer []float32, start, end int) {
	c0, c2 := 2, 0
	if p.order == OrderRGB {
		c0, c2 = 0, 2
	}
	for y := start; y < end; y++ {
		src := img.Pix[y*img.Stride:]
		dst := buffer[y*p.width*InputChannels:]
		for x := 0; x < p.width; x++ {
			s := src[x*4 : x*4+4]
			d := dst[x*InputChannels : x*InputChannels+InputChannels]
			d[0] = float32(s[c0])
			d[1] = float32(s[1])
			d[2] = float32(s[c2])
		}
	}
}

// Preprocess resizes img and returns the (1, 224, 224, 3) input tensor.
func Preprocess(img image.Image, order ChannelOrder) *Tensor {
	return NewPreprocessor(order).Process(img)
}
