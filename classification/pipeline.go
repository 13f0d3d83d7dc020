package classification

import (
	"context"
	"time"

	"github.com/foodshare/food-recognition-service/models"
)

// SessionProvider hands out model sessions for one forward pass each.
// Sessions that failed a forward pass go back through Discard.
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
	Release(session Session)
	Discard(session Session)
}

// Outcome is the result of classifying one image.
type Outcome struct {
	Resolution
	Scores []float32
}

type Pipeline struct {
	Sessions     SessionProvider
	Labels       LabelTable
	Preprocessor *Preprocessor
}

func NewPipeline(sessions SessionProvider, labels LabelTable, order ChannelOrder) *Pipeline {
	return &Pipeline{
		Sessions:     sessions,
		Labels:       labels,
		Preprocessor: NewPreprocessor(order),
	}
}

// Classify runs decode, preprocess, inference and label resolution for a
// base64 payload. timings may be nil.
func (p *Pipeline) Classify(ctx context.Context, payload string, timings *models.ProcessingTimings) (*Outcome, error) {
	if timings == nil {
		timings = &models.ProcessingTimings{}
	}

	decodeStart := time.Now()
	img, err := DecodeImage(payload)
	timings.ImageDecode = time.Since(decodeStart)
	if err != nil {
		return nil, err
	}

	resizeStart := time.Now()
	resized := p.Preprocessor.Resize(img)
	timings.Resize = time.Since(resizeStart)

	prepStart := time.Now()
	input := p.Preprocessor.Tensor(resized)
	timings.Preprocess = time.Since(prepStart)

	acquireStart := time.Now()
	session, err := p.Sessions.Acquire(ctx)
	timings.Acquire = time.Since(acquireStart)
	if err != nil {
		return nil, err
	}

	inferStart := time.Now()
	scores, err := session.Run(input)
	timings.Inference = time.Since(inferStart)
	if err != nil {
		p.Sessions.Discard(session)
		return nil, err
	}
	p.Sessions.Release(session)

	postStart := time.Now()
	resolution, err := p.Labels.Resolve(scores)
	timings.Postprocess = time.Since(postStart)
	if err != nil {
		return nil, err
	}

	return &Outcome{Resolution: resolution, Scores: scores}, nil
}
