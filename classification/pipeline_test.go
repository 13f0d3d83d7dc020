package classification

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/foodshare/food-recognition-service/models"
)

// echoSession returns the first values of the input tensor as scores, so
// predictions depend on the image.
type echoSession struct {
	n   int
	err error
}

func (s *echoSession) Run(input *Tensor) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]float32(nil), input.Data[:s.n]...), nil
}

func (s *echoSession) Destroy() {}

type fakeProvider struct {
	session   Session
	err       error
	acquired  int
	released  int
	discarded int
}

func (p *fakeProvider) Acquire(context.Context) (Session, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.acquired++
	return p.session, nil
}

func (p *fakeProvider) Release(Session) { p.released++ }
func (p *fakeProvider) Discard(Session) { p.discarded++ }

func TestPipelineClassify(t *testing.T) {
	provider := &fakeProvider{session: &echoSession{n: 20}}
	pipeline := NewPipeline(provider, FoodClasses, OrderBGR)
	payload := encodeBase64(t, solidImage(320, 240, color.NRGBA{R: 200, G: 10, B: 30, A: 255}), imaging.PNG)

	timings := &models.ProcessingTimings{}
	outcome, err := pipeline.Classify(context.Background(), payload, timings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// BGR pixels repeat 30, 10, 200, so index 2 wins.
	if outcome.Index != 2 || outcome.Label != "chai" || outcome.Confidence != 200 {
		t.Errorf("outcome = %+v", outcome.Resolution)
	}
	if len(outcome.Scores) != 20 {
		t.Errorf("len(scores) = %d, want 20", len(outcome.Scores))
	}
	if provider.acquired != 1 || provider.released != 1 || provider.discarded != 0 {
		t.Errorf("acquired=%d released=%d discarded=%d", provider.acquired, provider.released, provider.discarded)
	}
	if timings.ImageDecode <= 0 || timings.Resize <= 0 {
		t.Errorf("timings not recorded: %+v", timings)
	}
}

func TestPipelineIdempotent(t *testing.T) {
	pipeline := NewPipeline(&fakeProvider{session: &echoSession{n: 20}}, FoodClasses, OrderBGR)
	payload := encodeBase64(t, gradientImage(500, 375), imaging.JPEG)

	first, err := pipeline.Classify(context.Background(), payload, nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := pipeline.Classify(context.Background(), payload, nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.Resolution != second.Resolution {
		t.Errorf("results differ: %+v vs %+v", first.Resolution, second.Resolution)
	}
}

func TestPipelineDataURIMatchesBare(t *testing.T) {
	pipeline := NewPipeline(&fakeProvider{session: &echoSession{n: 20}}, FoodClasses, OrderBGR)
	bare := encodeBase64(t, gradientImage(120, 90), imaging.JPEG)

	a, err := pipeline.Classify(context.Background(), bare, nil)
	if err != nil {
		t.Fatalf("bare: %v", err)
	}
	b, err := pipeline.Classify(context.Background(), "data:image/jpeg;base64,"+bare, nil)
	if err != nil {
		t.Fatalf("data URI: %v", err)
	}
	if a.Resolution != b.Resolution {
		t.Errorf("results differ: %+v vs %+v", a.Resolution, b.Resolution)
	}
}

func TestPipelineDecodeErrorSkipsModel(t *testing.T) {
	provider := &fakeProvider{session: &echoSession{n: 20}}
	pipeline := NewPipeline(provider, FoodClasses, OrderBGR)

	_, err := pipeline.Classify(context.Background(), "not-valid-base64!!", nil)
	if KindOf(err) != KindDecode {
		t.Fatalf("err = %v, want decode error", err)
	}
	if provider.acquired != 0 {
		t.Error("session acquired for an undecodable payload")
	}
}

func TestPipelineErrors(t *testing.T) {
	// RGB pixels repeat 10, 20, 250, so index 2 wins.
	payload := encodeBase64(t, solidImage(16, 16, color.NRGBA{R: 10, G: 20, B: 250, A: 255}), imaging.PNG)
	runErr := newError(KindInference, "model inference", errors.New("shape mismatch"))
	loadErr := newError(KindModelLoad, "model file not found", nil)

	tests := []struct {
		name          string
		provider      *fakeProvider
		labels        LabelTable
		want          ErrorKind
		wantDiscarded int
	}{
		{"model load", &fakeProvider{err: loadErr}, FoodClasses, KindModelLoad, 0},
		{"inference", &fakeProvider{session: &echoSession{err: runErr}}, FoodClasses, KindInference, 1},
		{"table mismatch", &fakeProvider{session: &echoSession{n: 20}}, NewLabelTable("only", "two"), KindConfiguration, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := NewPipeline(tt.provider, tt.labels, OrderRGB)
			_, err := pipeline.Classify(context.Background(), payload, nil)
			if KindOf(err) != tt.want {
				t.Fatalf("err = %v, want kind %v", err, tt.want)
			}
			if tt.provider.discarded != tt.wantDiscarded {
				t.Errorf("discarded = %d, want %d", tt.provider.discarded, tt.wantDiscarded)
			}
		})
	}
}
