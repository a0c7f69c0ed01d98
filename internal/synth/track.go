package synth

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/audio"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/corpus"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/transcript"
)

// MinTrackSamples is the shortest concatenated main track accepted; anything
// below it is a degenerate near-empty input and the iteration is skipped.
const MinTrackSamples = 100

// ErrTrackTooShort marks an iteration whose concatenated main audio fell
// below MinTrackSamples.
var ErrTrackTooShort = errors.New("main track too short after trimming")

// Track is a concatenated main utterance: audio plus synchronized transcript
// tokens and per-token end timestamps.
type Track struct {
	Audio    []float32
	Tokens   []string
	Stamps   []float64
	Speakers []string
	UttIDs   []string
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	return audio.Seconds(len(t.Audio))
}

// TrackBuilder assembles main tracks from pool utterances.
type TrackBuilder struct {
	Pool      *corpus.Pool
	Rng       *rand.Rand
	LoadAudio func(path string) ([]float32, error)
}

func NewTrackBuilder(pool *corpus.Pool, rng *rand.Rand) *TrackBuilder {
	return &TrackBuilder{
		Pool:      pool,
		Rng:       rng,
		LoadAudio: audio.Decode,
	}
}

// Build draws 1-3 speakers without replacement, takes one utterance from
// each, trims trailing silence per the alignment end-of-speech marker and
// concatenates audio, tokens and offset timestamps. A boundary token is
// inserted between speakers and the final timestamp is forced to equal the
// total duration exactly.
//
// Returns corpus.ErrExhausted when the pool cannot supply enough speakers
// and ErrTrackTooShort for degenerate near-empty results.
func (b *TrackBuilder) Build() (*Track, error) {
	nMain := b.Rng.Intn(3) + 1

	speakers, err := b.Pool.SampleSpeakers(nMain)
	if err != nil {
		return nil, err
	}

	track := &Track{}

	for _, speakerID := range speakers {
		utt, err := b.Pool.Take(speakerID)
		if err != nil {
			return nil, err
		}

		samples, err := b.loadTrimmed(utt)
		if err != nil {
			return nil, err
		}

		b.appendUtterance(track, utt, samples)
	}

	if len(track.Audio) < MinTrackSamples {
		return nil, ErrTrackTooShort
	}

	// The last stamp must equal the total duration exactly, not the last
	// utterance's own alignment end.
	track.Stamps[len(track.Stamps)-1] = track.Duration()

	return track, nil
}

// loadTrimmed decodes an utterance and cuts everything past its alignment
// end-of-speech marker.
func (b *TrackBuilder) loadTrimmed(utt corpus.Utterance) ([]float32, error) {
	samples, err := b.LoadAudio(utt.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load utterance %s: %w", utt.UttID, err)
	}

	end := audio.Samples(utt.EndOfSpeech())
	if end > 0 && end < len(samples) {
		samples = samples[:end]
	}

	return samples, nil
}

func (b *TrackBuilder) appendUtterance(track *Track, utt corpus.Utterance, samples []float32) {
	offset := track.Duration()

	if len(track.Tokens) > 0 {
		track.Tokens = append(track.Tokens, transcript.BoundaryToken)
		track.Stamps = append(track.Stamps, offset)
	}

	track.Tokens = append(track.Tokens, utt.Tokens...)

	for _, stamp := range utt.Stamps {
		track.Stamps = append(track.Stamps, stamp+offset)
	}

	track.Audio = append(track.Audio, samples...)
	track.Speakers = append(track.Speakers, utt.SpeakerID)
	track.UttIDs = append(track.UttIDs, utt.UttID)
}

// Transcript returns the main tokens joined into the transcript snippet form
// used in sidecar metadata.
func (t *Track) Transcript() string {
	return strings.Join(t.Tokens, ",")
}
