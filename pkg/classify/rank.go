package classify

import "math"

// Rank pairs raw model scores with labels and sorts them. Extra scores
// beyond the label list are ignored. When softmax is set the scores are
// treated as logits.
func Rank(scores []float32, labels []string, softmax bool) Predictions {
	n := len(labels)
	if len(scores) < n {
		n = len(scores)
	}

	probs := make([]float64, n)
	for i := 0; i < n; i++ {
		probs[i] = float64(scores[i])
	}
	if softmax {
		probs = softmaxOf(probs)
	}

	preds := make(Predictions, n)
	for i := range preds {
		preds[i] = Prediction{Label: labels[i], Confidence: probs[i]}
	}
	preds.Sort()
	return preds
}

func softmaxOf(x []float64) []float64 {
	if len(x) == 0 {
		return x
	}
	maxV := x[0]
	for _, v := range x[1:] {
		if v > maxV {
			maxV = v
		}
	}
	var sum float64
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Exp(v - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
