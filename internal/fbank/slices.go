package fbank

// Coarse slicing of the frame-level feature matrix into the larger windows
// the encoder embeds as the "sliced" stream. The window is 1.6 s of frames,
// the hop 0.4 s; SliceHop is also the upsampling hop for the score streams.
const (
	SliceWindow      = 160
	SliceHop         = 40
	sliceMinCoverage = 0.75
)

// Slice is one half-open frame range [Start, Stop).
type Slice struct {
	Start int
	Stop  int
}

// PartialSlices returns the coarse windows covering numFrames frames. The
// last window may overrun the matrix and is kept only when it covers at
// least sliceMinCoverage of a full window; consumers zero-pad the overrun.
func PartialSlices(numFrames int) []Slice {
	var slices []Slice

	for start := 0; start < numFrames; start += SliceHop {
		stop := start + SliceWindow

		if stop > numFrames {
			coverage := float64(numFrames-start) / float64(SliceWindow)
			if len(slices) > 0 && coverage < sliceMinCoverage {
				break
			}
		}

		slices = append(slices, Slice{Start: start, Stop: stop})

		if stop >= numFrames {
			break
		}
	}

	return slices
}

// SliceFeatures cuts the feature matrix into the coarse windows, zero-padding
// rows past the end of the matrix so every window has SliceWindow rows.
func SliceFeatures(features [][]float32, slices []Slice) [][][]float32 {
	if len(features) == 0 {
		return nil
	}

	numMels := len(features[0])
	out := make([][][]float32, len(slices))

	for i, s := range slices {
		window := make([][]float32, 0, SliceWindow)

		for t := s.Start; t < s.Stop; t++ {
			if t < len(features) {
				window = append(window, features[t])
			} else {
				window = append(window, make([]float32, numMels))
			}
		}

		out[i] = window
	}

	return out
}
