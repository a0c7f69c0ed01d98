package synth

import (
	"errors"
	"math/rand"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/audio"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/corpus"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/transcript"
	"go.uber.org/zap"
)

const (
	// MinOverlapSeconds and MaxOverlapSeconds clamp the overlap window
	// except at 100% overlap, which always covers the full main track.
	MinOverlapSeconds = 0.5
	MaxOverlapSeconds = 3.0

	// MaxEventsPerExample bounds overlap events per composite example.
	MaxEventsPerExample = 2

	// earlyPlacementPct is the overlap percentage at which the start offset
	// is restricted to the first third of its range, keeping long overlaps
	// away from the clip's tail.
	earlyPlacementPct = 80
)

// OverlapEvent records one injected overlap region.
type OverlapEvent struct {
	Start      float64
	End        float64
	Speakers   []string
	Amplitude  float64
	Transcript string
}

// Injector mixes secondary-speaker snippets into a main track.
type Injector struct {
	Pool           *corpus.Pool
	Rng            *rand.Rand
	LoadAudio      func(path string) ([]float32, error)
	OverlapPct     float64
	AmplitudeRatio float64
}

func NewInjector(pool *corpus.Pool, rng *rand.Rand, overlapPct, amplitudeRatio float64) *Injector {
	return &Injector{
		Pool:           pool,
		Rng:            rng,
		LoadAudio:      audio.Decode,
		OverlapPct:     overlapPct,
		AmplitudeRatio: amplitudeRatio,
	}
}

// Inject adds 1-2 overlap events to main in place and returns them in
// generation order. The full buffer is hard-clipped to [-1, 1] after every
// merged event; this cumulative clipping is part of the output contract and
// must not be deferred to a single final pass.
func (inj *Injector) Inject(main []float32) []OverlapEvent {
	nEvents := inj.Rng.Intn(MaxEventsPerExample) + 1

	var events []OverlapEvent

	for range nEvents {
		ev, err := inj.injectOne(main)
		if err != nil {
			if errors.Is(err, corpus.ErrExhausted) {
				break
			}

			logging.Logger.Warn("Skipping overlap event", zap.String("error", err.Error()))

			continue
		}

		if ev == nil {
			continue
		}

		events = append(events, *ev)
	}

	return events
}

// injectOne builds one snippet and mixes it. A nil event with nil error
// means the event was skipped as degenerate.
func (inj *Injector) injectOne(main []float32) (*OverlapEvent, error) {
	snippet, speakers, snippetText, err := inj.buildSnippet()
	if err != nil {
		return nil, err
	}

	if len(snippet) < MinTrackSamples {
		return nil, nil
	}

	duration := inj.overlapDuration(len(main))
	if duration <= 0 {
		return nil, nil
	}

	start := 0

	maxStart := len(main) - duration
	if maxStart <= 0 {
		duration = len(main)
	} else if inj.OverlapPct >= earlyPlacementPct {
		start = inj.Rng.Intn(maxStart/3 + 1)
	} else {
		start = inj.Rng.Intn(maxStart + 1)
	}

	// Tile guarantees the mixed segment matches the computed duration
	// exactly, looping the snippet when it is too short.
	segment := audio.Tile(snippet, duration)

	audio.MixAt(main, segment, start, inj.AmplitudeRatio)
	audio.Clip(main)

	return &OverlapEvent{
		Start:      audio.Seconds(start),
		End:        audio.Seconds(start + duration),
		Speakers:   speakers,
		Amplitude:  inj.AmplitudeRatio,
		Transcript: snippetText,
	}, nil
}

// overlapDuration converts the configured percentage into a sample count:
// pct% of the main duration clamped to [MinOverlapSeconds, MaxOverlapSeconds],
// except at 100% where the full main duration is used unclamped. The result
// never exceeds the main duration.
func (inj *Injector) overlapDuration(mainLen int) int {
	if inj.OverlapPct >= 100 {
		return mainLen
	}

	desired := int(inj.OverlapPct / 100 * float64(mainLen))

	duration := min(max(desired, audio.Samples(MinOverlapSeconds)), audio.Samples(MaxOverlapSeconds))

	return min(duration, mainLen)
}

// buildSnippet samples 1-2 secondary speakers, consumes one utterance each
// and concatenates their trimmed audio.
func (inj *Injector) buildSnippet() ([]float32, []string, string, error) {
	nSpeakers := inj.Rng.Intn(2) + 1

	speakerIDs, err := inj.Pool.SampleSpeakers(nSpeakers)
	if err != nil {
		return nil, nil, "", err
	}

	var (
		snippet []float32
		parts   []string
	)

	for _, speakerID := range speakerIDs {
		utt, err := inj.Pool.Take(speakerID)
		if err != nil {
			return nil, nil, "", err
		}

		samples, err := inj.LoadAudio(utt.AudioPath)
		if err != nil {
			return nil, nil, "", err
		}

		end := audio.Samples(utt.EndOfSpeech())
		if end > 0 && end < len(samples) {
			samples = samples[:end]
		}

		snippet = append(snippet, samples...)
		parts = append(parts, strings.Join(utt.Tokens, ","))
	}

	return snippet, speakerIDs, strings.Join(parts, transcript.BoundaryToken), nil
}
