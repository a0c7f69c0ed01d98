package audio

import "math"

// SampleRate is the fixed pipeline sample rate. Every decoded buffer is
// resampled to it before any arithmetic happens.
const SampleRate = 16000

// Samples converts a duration in seconds to a sample count.
func Samples(seconds float64) int {
	return int(seconds * SampleRate)
}

// Seconds converts a sample count to a duration in seconds.
func Seconds(samples int) float64 {
	return float64(samples) / SampleRate
}

// Clip hard-limits every sample to [-1, 1] in place.
func Clip(samples []float32) {
	for i, s := range samples {
		if s > 1 {
			samples[i] = 1
		} else if s < -1 {
			samples[i] = -1
		}
	}
}

// MixAt adds src scaled by gain into dst starting at offset. The caller
// guarantees offset+len(src) <= len(dst).
func MixAt(dst, src []float32, offset int, gain float64) {
	for i, s := range src {
		dst[offset+i] += float32(float64(s) * gain)
	}
}

// Tile loops src until exactly n samples are produced. If src already covers
// n samples, the first n are returned as a copy.
func Tile(src []float32, n int) []float32 {
	out := make([]float32, n)

	if len(src) == 0 {
		return out
	}

	for i := 0; i < n; i += len(src) {
		copy(out[i:], src)
	}

	return out
}

// Peak returns the maximum absolute sample value.
func Peak(samples []float32) float64 {
	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}

	return peak
}
