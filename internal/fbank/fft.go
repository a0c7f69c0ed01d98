package fbank

import "math"

// fft performs an in-place radix-2 Cooley-Tukey FFT. re and im must share a
// power-of-two length.
func fft(re, im []float64) {
	n := len(re)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation
	for i, j := 0, 0; i < n-1; i++ {
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}

		bit := n >> 1
		for bit <= j {
			j -= bit
			bit >>= 1
		}

		j += bit
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		angle := -2 * math.Pi / float64(size)
		stepR, stepI := math.Cos(angle), math.Sin(angle)

		for start := 0; start < n; start += size {
			wR, wI := 1.0, 0.0

			for k := range half {
				u := start + k
				v := u + half

				tR := wR*re[v] - wI*im[v]
				tI := wR*im[v] + wI*re[v]

				re[v] = re[u] - tR
				im[v] = im[u] - tI
				re[u] += tR
				im[u] += tI

				wR, wI = wR*stepR-wI*stepI, wR*stepI+wI*stepR
			}
		}
	}
}
