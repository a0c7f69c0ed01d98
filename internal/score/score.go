// Package score computes per-frame target-similarity scores: cosine
// similarity of a target-speaker embedding against the streaming and sliced
// embedding sequences, with the sliced sequence upsampled to frame
// resolution in two redundant ways.
package score

import "math"

// Cosine returns the cosine similarity of two embedding vectors. A zero
// vector yields 0.
func Cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64

	for i := range n {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Against scores every vector of a sequence against the target embedding.
func Against(target []float32, sequence [][]float32) []float32 {
	scores := make([]float32, len(sequence))
	for i, vec := range sequence {
		scores[i] = Cosine(target, vec)
	}

	return scores
}

// StepExpand upsamples sliced scores to frame resolution by holding each
// score for hop frames.
func StepExpand(sliced []float32, hop int) []float32 {
	out := make([]float32, 0, len(sliced)*hop)

	for _, s := range sliced {
		for range hop {
			out = append(out, s)
		}
	}

	return out
}

// LinearExpand upsamples sliced scores to frame resolution by linear
// interpolation between consecutive scores, hop samples per segment with the
// segment end point excluded. The final score is held for one trailing hop so
// the natural length matches StepExpand.
func LinearExpand(sliced []float32, hop int) []float32 {
	out := make([]float32, 0, len(sliced)*hop)

	for i := 0; i+1 < len(sliced); i++ {
		from := float64(sliced[i])
		to := float64(sliced[i+1])

		for j := range hop {
			out = append(out, float32(from+(to-from)*float64(j)/float64(hop)))
		}
	}

	if len(sliced) > 0 {
		last := sliced[len(sliced)-1]
		for range hop {
			out = append(out, last)
		}
	}

	return out
}

// Stack assembles the three score streams into a fixed-order 3×n matrix:
// row 0 the streaming scores, row 1 the step expansion, row 2 the linear
// expansion. Every row is truncated or zero-extended to exactly n so the
// matrix always aligns with the label sequence.
func Stack(stream, step, linear []float32, n int) [][]float32 {
	return [][]float32{
		fit(stream, n),
		fit(step, n),
		fit(linear, n),
	}
}

func fit(scores []float32, n int) []float32 {
	out := make([]float32, n)
	copy(out, scores)

	return out
}
