package classification

import (
	"image/color"
	"testing"
)

func TestPreprocessShape(t *testing.T) {
	sizes := [][2]int{{1, 1}, {10, 500}, {640, 480}, {224, 224}, {223, 225}}

	for _, size := range sizes {
		tensor := Preprocess(gradientImage(size[0], size[1]), OrderBGR)

		want := []int64{1, InputHeight, InputWidth, InputChannels}
		if len(tensor.Shape) != len(want) {
			t.Fatalf("%v: shape = %v, want %v", size, tensor.Shape, want)
		}
		for i := range want {
			if tensor.Shape[i] != want[i] {
				t.Fatalf("%v: shape = %v, want %v", size, tensor.Shape, want)
			}
		}
		if len(tensor.Data) != InputHeight*InputWidth*InputChannels {
			t.Errorf("%v: len(data) = %d", size, len(tensor.Data))
		}
	}
}

func TestPreprocessKeepsRawPixelValues(t *testing.T) {
	img := solidImage(300, 150, color.NRGBA{R: 200, G: 10, B: 30, A: 255})

	tests := []struct {
		order ChannelOrder
		want  [3]float32
	}{
		{OrderBGR, [3]float32{30, 10, 200}},
		{OrderRGB, [3]float32{200, 10, 30}},
	}

	for _, tt := range tests {
		tensor := Preprocess(img, tt.order)
		for i := 0; i < len(tensor.Data); i += InputChannels {
			got := [3]float32{tensor.Data[i], tensor.Data[i+1], tensor.Data[i+2]}
			if got != tt.want {
				t.Fatalf("%s: pixel %d = %v, want %v", tt.order, i/InputChannels, got, tt.want)
			}
		}
	}
}

func TestPreprocessValueRange(t *testing.T) {
	tensor := Preprocess(gradientImage(500, 333), OrderBGR)
	for i, v := range tensor.Data {
		if v < 0 || v > 255 {
			t.Fatalf("value %d = %v out of 0-255", i, v)
		}
	}
}

func TestPreprocessParallelMatchesSequential(t *testing.T) {
	resized := NewPreprocessor(OrderBGR).Resize(gradientImage(317, 211))

	sequential := &Preprocessor{width: InputWidth, height: InputHeight, order: OrderBGR, numWorkers: 1}
	want := sequential.Tensor(resized).Data

	for _, workers := range []int{2, 3, 7, 16, 300} {
		parallel := &Preprocessor{width: InputWidth, height: InputHeight, order: OrderBGR, numWorkers: workers}
		got := parallel.Tensor(resized).Data
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("workers=%d: value %d = %v, want %v", workers, i, got[i], want[i])
			}
		}
	}
}

func TestNewPreprocessorDefaultsToBGR(t *testing.T) {
	if p := NewPreprocessor(""); p.order != OrderBGR {
		t.Errorf("order = %q, want %q", p.order, OrderBGR)
	}
}
