package classification

import (
	"fmt"
	"math"
	"sort"
)

// LabelTable maps model output indices to class names, in training order.
type LabelTable struct {
	names []string
}

func NewLabelTable(names ...string) LabelTable {
	return LabelTable{names: append([]string(nil), names...)}
}

// FoodClasses is the class table FoodResnet.onnx was trained with.
var FoodClasses = NewLabelTable(
	"burger", "butter_naan", "chai", "chapati", "chole_bhature", "dal_makhani",
	"dhokla", "fried_rice", "idli", "jalebi", "kaathi_rolls",
	"kadai_paneer", "kulfi", "masala_dosa", "momos", "paani_puri",
	"pakode", "pav_bhaji", "pizza", "samosa",
)

func (t LabelTable) Len() int {
	return len(t.names)
}

func (t LabelTable) Name(i int) (string, bool) {
	if i < 0 || i >= len(t.names) {
		return "", false
	}
	return t.names[i], true
}

func (t LabelTable) Names() []string {
	return append([]string(nil), t.names...)
}

// Resolution is the winning class of a score vector.
type Resolution struct {
	Index      int
	Label      string
	Confidence float32
}

// Resolve picks the highest score, first index on ties, and looks up its
// label. An index outside the table means the model and the table
// disagree.
func (t LabelTable) Resolve(scores []float32) (Resolution, error) {
	if len(scores) == 0 {
		return Resolution{}, newError(KindInference, "model returned no scores", nil)
	}

	maxIdx := argmax(scores)
	maxVal := scores[maxIdx]
	if math.IsNaN(float64(maxVal)) {
		return Resolution{}, newError(KindInference, "model returned NaN scores", nil)
	}

	label, ok := t.Name(maxIdx)
	if !ok {
		return Resolution{}, newError(KindConfiguration,
			fmt.Sprintf("predicted index %d out of range for %d labels", maxIdx, t.Len()), nil)
	}

	return Resolution{Index: maxIdx, Label: label, Confidence: maxVal}, nil
}

// argmax returns the first maximum; a NaN wins like numpy's argmax.
func argmax(scores []float32) int {
	maxIdx := 0
	for i, v := range scores {
		if math.IsNaN(float64(v)) {
			return i
		}
		if v > scores[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

// Ranked is one entry of a top-k listing.
type Ranked struct {
	Index       int
	Label       string
	Score       float32
	Probability float64
}

// Top returns the k best labelled classes by score with softmax
// probabilities computed over the labelled part of scores.
func (t LabelTable) Top(scores []float32, k int) []Ranked {
	n := len(scores)
	if n > t.Len() {
		n = t.Len()
	}
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}

	probs := softmax(scores[:n])
	ranked := make([]Ranked, n)
	for i := 0; i < n; i++ {
		ranked[i] = Ranked{Index: i, Label: t.names[i], Score: scores[i], Probability: probs[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked[:k]
}

func softmax(scores []float32) []float64 {
	maxVal := math.Inf(-1)
	for _, v := range scores {
		maxVal = math.Max(maxVal, float64(v))
	}

	out := make([]float64, len(scores))
	sum := 0.0
	for i, v := range scores {
		out[i] = math.Exp(float64(v) - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
