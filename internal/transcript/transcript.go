// Package transcript serializes and parses the text-file lines that carry a
// composite example's token sequence, alignment timestamps and overlap
// markers.
//
// Line format:
//
//	<id> <tok,tok,...$OV0:1.00-2.00$OV1:...> <stamp stamp ...>
//
// The timestamp array indexes only the non-overlap tokens; overlap markers
// carry a time range and must be correlated to frames purely by time.
package transcript

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// BoundaryToken separates the tokens of consecutive main speakers.
	BoundaryToken = "$"
	// SilenceToken is the empty token the aligner emits for silence.
	SilenceToken = ""

	markerSep = "$OV"
)

// Static errors for transcript parsing
var (
	ErrMalformedLine   = errors.New("transcript line has fewer than 3 fields")
	ErrMalformedMarker = errors.New("malformed overlap marker")
)

// OverlapEvent is one overlap region as recorded in the transcript sidecar
// markers: a time range in seconds, in generation order.
type OverlapEvent struct {
	Start float64
	End   float64
}

// Entry is one parsed transcript line.
type Entry struct {
	ID     string
	Tokens []string
	Stamps []float64
	Events []OverlapEvent
}

// Encode renders an entry to its text-file line. Events are appended to the
// transcript field in generation order.
func Encode(entry Entry) string {
	var sb strings.Builder

	sb.WriteString(entry.ID)
	sb.WriteByte(' ')
	sb.WriteString(strings.Join(entry.Tokens, ","))

	for i, ev := range entry.Events {
		fmt.Fprintf(&sb, "%sOV%d:%.2f-%.2f", BoundaryToken, i, ev.Start, ev.End)
	}

	for _, stamp := range entry.Stamps {
		fmt.Fprintf(&sb, " %.2f", stamp)
	}

	return sb.String()
}

// Parse reads one text-file line back into an Entry. Unparseable overlap
// markers are dropped; everything else malformed is an error.
//
// Fields are split on single spaces, not runs of whitespace: an all-silence
// entry encodes its transcript field as the empty string, and collapsing the
// double space would shift the first timestamp into the transcript.
func Parse(line string) (Entry, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 3 {
		return Entry{}, ErrMalformedLine
	}

	entry := Entry{ID: fields[0]}

	transcriptField := fields[1]

	parts := strings.Split(transcriptField, markerSep)
	entry.Tokens = strings.Split(parts[0], ",")

	for _, marker := range parts[1:] {
		ev, err := parseMarker(marker)
		if err != nil {
			continue
		}

		entry.Events = append(entry.Events, ev)
	}

	stampFields := strings.Fields(fields[2])
	if len(stampFields) == 0 {
		return Entry{}, ErrMalformedLine
	}

	entry.Stamps = make([]float64, 0, len(stampFields))

	for _, raw := range stampFields {
		stamp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to parse timestamp %q: %w", raw, err)
		}

		entry.Stamps = append(entry.Stamps, stamp)
	}

	return entry, nil
}

// parseMarker decodes "<index>:<start>-<end>".
func parseMarker(marker string) (OverlapEvent, error) {
	_, timeRange, ok := strings.Cut(marker, ":")
	if !ok {
		return OverlapEvent{}, ErrMalformedMarker
	}

	startStr, endStr, ok := strings.Cut(timeRange, "-")
	if !ok {
		return OverlapEvent{}, ErrMalformedMarker
	}

	start, err := strconv.ParseFloat(startStr, 64)
	if err != nil {
		return OverlapEvent{}, fmt.Errorf("%w: %q", ErrMalformedMarker, marker)
	}

	end, err := strconv.ParseFloat(endStr, 64)
	if err != nil {
		return OverlapEvent{}, fmt.Errorf("%w: %q", ErrMalformedMarker, marker)
	}

	return OverlapEvent{Start: start, End: end}, nil
}

// MainSpeakerCount returns the number of main speakers an entry's token
// sequence encodes: one more than its boundary tokens.
func (e Entry) MainSpeakerCount() int {
	count := 1

	for _, tok := range e.Tokens {
		if tok == BoundaryToken {
			count++
		}
	}

	return count
}
