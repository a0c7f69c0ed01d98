// Package label derives the per-frame 3-class training labels of a composite
// example from its transcript tokens, alignment timestamps and overlap
// markers.
package label

import (
	"sort"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/transcript"
)

// FrameLabel is the class of one 10 ms analysis frame.
type FrameLabel uint8

const (
	// NS marks non-speech (silence) frames.
	NS FrameLabel = 0
	// NTSS marks frames with speech of a non-target speaker.
	NTSS FrameLabel = 1
	// TSS marks frames with speech of the target speaker.
	TSS FrameLabel = 2
)

// FramesPerSecond is the label resolution: one label per 10 ms frame.
const FramesPerSecond = 100

// MergePolicy selects the order in which overlap events overwrite the base
// labels. The historical behavior applies events in generation order, which
// makes the merge non-commutative when event regions intersect; TimeSorted
// exists as an explicit alternative and must never be applied silently.
type MergePolicy int

const (
	GenerationOrder MergePolicy = iota
	TimeSorted
)

// Derive produces one label per frame for an example's full duration.
//
// The base pass walks the tokens in order, tracking the current speaker
// ordinal (incremented at every boundary token). Overlap events are then
// applied as region overwrites: a region that already contains any
// target-speech frame becomes all target speech; a region that is entirely
// silence becomes non-target speech; anything else is left unchanged.
func Derive(entry transcript.Entry, targetOrdinal, totalFrames int, policy MergePolicy) []FrameLabel {
	labels := make([]FrameLabel, totalFrames)

	deriveBase(labels, entry, targetOrdinal)
	applyEvents(labels, entry.Events, policy)

	return labels
}

func deriveBase(labels []FrameLabel, entry transcript.Entry, targetOrdinal int) {
	totalFrames := len(labels)

	stamps := entry.Stamps
	if len(stamps) > len(entry.Tokens) {
		stamps = stamps[:len(entry.Tokens)]
	}

	prev := 0
	ordinal := 0

	for i, stamp := range stamps {
		end := clampFrame(stamp, totalFrames)

		// The final stamp is forced to cover the full duration so trailing
		// frames never stay unlabeled.
		if i == len(stamps)-1 && end < totalFrames {
			end = totalFrames
		}

		tok := entry.Tokens[i]

		switch tok {
		case transcript.SilenceToken:
			fill(labels, prev, end, NS)
		case transcript.BoundaryToken:
			ordinal++

			fill(labels, prev, end, NS)
		default:
			if ordinal == targetOrdinal {
				fill(labels, prev, end, TSS)
			} else {
				fill(labels, prev, end, NTSS)
			}
		}

		prev = end
	}
}

func applyEvents(labels []FrameLabel, events []transcript.OverlapEvent, policy MergePolicy) {
	totalFrames := len(labels)

	if policy == TimeSorted {
		sorted := make([]transcript.OverlapEvent, len(events))
		copy(sorted, events)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Start < sorted[j].Start
		})

		events = sorted
	}

	for _, ev := range events {
		start := clampFrame(ev.Start, totalFrames)
		end := clampFrame(ev.End, totalFrames)

		if end <= start {
			continue
		}

		overwriteRegion(labels[start:end])
	}
}

// overwriteRegion applies one event to the current label state of its frame
// range. A later event sees the overwrites of earlier ones.
func overwriteRegion(region []FrameLabel) {
	hasTarget := false
	allSilence := true

	for _, l := range region {
		if l == TSS {
			hasTarget = true
		}

		if l != NS {
			allSilence = false
		}
	}

	switch {
	case hasTarget:
		fill(region, 0, len(region), TSS)
	case allSilence:
		fill(region, 0, len(region), NTSS)
	}
}

func fill(labels []FrameLabel, start, end int, l FrameLabel) {
	for i := start; i < end; i++ {
		labels[i] = l
	}
}

func clampFrame(seconds float64, totalFrames int) int {
	frame := int(seconds * FramesPerSecond)

	if frame < 0 {
		return 0
	}

	if frame > totalFrames {
		return totalFrames
	}

	return frame
}
