package corpus

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Static errors for corpus loading
var (
	ErrEmptyTranscript    = errors.New("utterance transcript is empty")
	ErrStampTokenMismatch = errors.New("alignment stamp count does not match token count")
)

// Record is one utterance tuple as supplied by the external dataset loader:
// audio path, utterance id, aligned transcript and comma-separated alignment
// timestamps.
type Record struct {
	AudioPath  string
	UttID      string
	Transcript string
	Alignments string
}

// Source yields the utterance records of a dataset. Directory scanning and
// alignment-file parsing live behind this interface.
type Source interface {
	Load() ([]Record, error)
}

// Utterance is one immutable source utterance. Audio samples are decoded
// lazily at consumption time from AudioPath; Stamps[i] is the end time of
// Tokens[i] in seconds.
type Utterance struct {
	UttID     string
	SpeakerID string
	AudioPath string
	Tokens    []string
	Stamps    []float64
}

// FromRecord builds an Utterance from a loader record. The transcript is a
// comma-separated token sequence where an empty token denotes silence.
func FromRecord(rec Record) (Utterance, error) {
	if rec.Transcript == "" {
		return Utterance{}, ErrEmptyTranscript
	}

	tokens := strings.Split(rec.Transcript, ",")

	rawStamps := strings.Split(rec.Alignments, ",")
	if len(rawStamps) != len(tokens) {
		return Utterance{}, fmt.Errorf("%w: %d stamps, %d tokens (utt %s)",
			ErrStampTokenMismatch, len(rawStamps), len(tokens), rec.UttID)
	}

	stamps := make([]float64, len(rawStamps))

	for i, raw := range rawStamps {
		stamp, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Utterance{}, fmt.Errorf("failed to parse alignment stamp %q (utt %s): %w",
				raw, rec.UttID, err)
		}

		stamps[i] = stamp
	}

	return Utterance{
		UttID:     rec.UttID,
		SpeakerID: speakerOf(rec.UttID),
		AudioPath: rec.AudioPath,
		Tokens:    tokens,
		Stamps:    stamps,
	}, nil
}

// EndOfSpeech returns the alignment end of the last token, the point after
// which only trailing silence remains.
func (u Utterance) EndOfSpeech() float64 {
	if len(u.Stamps) == 0 {
		return 0
	}

	return u.Stamps[len(u.Stamps)-1]
}

// speakerOf extracts the speaker id from a LibriSpeech-style utterance id
// (<speaker>-<chapter>-<utterance>).
func speakerOf(uttID string) string {
	id, _, _ := strings.Cut(uttID, "-")

	return id
}
