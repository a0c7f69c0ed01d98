// Package fbank computes the log mel filterbank features used both as the
// persisted frame-level feature matrix and as input to the embedding
// encoder.
//
// Parameters follow the personal-VAD front end:
//
//	SampleRate: 16000
//	WindowSize: 400 (25 ms)
//	HopSize:    160 (10 ms, one analysis frame)
//	FFTSize:    512
//	NumMels:    40
//
// Output rows are log10 mel energies with a 1e-6 floor.
package fbank

import "math"

// Config controls mel filterbank extraction parameters.
type Config struct {
	SampleRate int
	WindowSize int
	HopSize    int
	FFTSize    int
	NumMels    int
	LowFreq    float64
	HighFreq   float64
}

// DefaultConfig returns the personal-VAD front-end configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		WindowSize: 400,
		HopSize:    160,
		FFTSize:    512,
		NumMels:    40,
		LowFreq:    0,
		HighFreq:   8000,
	}
}

// Extractor computes log mel filterbank features from PCM samples.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank [][]float64
}

func New(cfg Config) *Extractor {
	return &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.WindowSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
	}
}

// Extract computes log mel features from normalized float32 PCM.
// Output is a [T][NumMels] matrix with T = (len(pcm) - WindowSize)/HopSize + 1.
func (e *Extractor) Extract(pcm []float32) [][]float32 {
	cfg := e.cfg

	if len(pcm) < cfg.WindowSize {
		return nil
	}

	numFrames := (len(pcm)-cfg.WindowSize)/cfg.HopSize + 1
	halfFFT := cfg.FFTSize/2 + 1

	features := make([][]float32, numFrames)

	re := make([]float64, cfg.FFTSize)
	im := make([]float64, cfg.FFTSize)
	power := make([]float64, halfFFT)

	for t := range numFrames {
		start := t * cfg.HopSize

		for i := range cfg.WindowSize {
			re[i] = float64(pcm[start+i]) * e.window[i]
		}

		for i := cfg.WindowSize; i < cfg.FFTSize; i++ {
			re[i] = 0
		}

		for i := range im {
			im[i] = 0
		}

		fft(re, im)

		for i := range halfFFT {
			power[i] = re[i]*re[i] + im[i]*im[i]
		}

		mel := make([]float32, cfg.NumMels)

		for m := range cfg.NumMels {
			sum := 0.0
			for k, w := range e.melBank[m] {
				sum += w * power[k]
			}

			mel[m] = float32(math.Log10(sum + 1e-6))
		}

		features[t] = mel
	}

	return features
}

// NumFrames returns the frame count Extract would produce for a sample count.
func (e *Extractor) NumFrames(samples int) int {
	if samples < e.cfg.WindowSize {
		return 0
	}

	return (samples-e.cfg.WindowSize)/e.cfg.HopSize + 1
}
