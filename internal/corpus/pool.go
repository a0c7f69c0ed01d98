package corpus

import (
	"errors"
	"math/rand"
)

// ErrExhausted is returned when fewer unconsumed speakers remain than were
// requested. Callers treat it as an end-of-run signal, not a failure.
var ErrExhausted = errors.New("utterance pool exhausted")

// Pool holds the unconsumed utterances of every speaker. Sampling is global
// without-replacement: an utterance leaves the pool exactly once, and a
// speaker entry is dropped as soon as its list empties.
type Pool struct {
	rng      *rand.Rand
	speakers []string
	byID     map[string][]Utterance
}

func NewPool(rng *rand.Rand) *Pool {
	return &Pool{
		rng:  rng,
		byID: make(map[string][]Utterance),
	}
}

// Add inserts an utterance under its speaker id.
func (p *Pool) Add(utt Utterance) {
	if _, ok := p.byID[utt.SpeakerID]; !ok {
		p.speakers = append(p.speakers, utt.SpeakerID)
	}

	p.byID[utt.SpeakerID] = append(p.byID[utt.SpeakerID], utt)
}

// Speakers returns the number of speakers that still hold utterances.
func (p *Pool) Speakers() int {
	return len(p.speakers)
}

// Utterances returns the total number of unconsumed utterances.
func (p *Pool) Utterances() int {
	total := 0
	for _, utts := range p.byID {
		total += len(utts)
	}

	return total
}

// SampleSpeakers draws n distinct speaker ids uniformly without replacement.
func (p *Pool) SampleSpeakers(n int) ([]string, error) {
	if len(p.speakers) < n {
		return nil, ErrExhausted
	}

	perm := p.rng.Perm(len(p.speakers))

	picked := make([]string, n)
	for i := range n {
		picked[i] = p.speakers[perm[i]]
	}

	return picked, nil
}

// Take removes and returns one random utterance of the given speaker.
// Removal is O(1) swap-remove; the speaker is dropped once empty.
func (p *Pool) Take(speakerID string) (Utterance, error) {
	utts, ok := p.byID[speakerID]
	if !ok || len(utts) == 0 {
		return Utterance{}, ErrExhausted
	}

	idx := p.rng.Intn(len(utts))
	utt := utts[idx]

	utts[idx] = utts[len(utts)-1]
	utts = utts[:len(utts)-1]

	if len(utts) == 0 {
		delete(p.byID, speakerID)
		p.dropSpeaker(speakerID)
	} else {
		p.byID[speakerID] = utts
	}

	return utt, nil
}

func (p *Pool) dropSpeaker(speakerID string) {
	for i, id := range p.speakers {
		if id == speakerID {
			p.speakers[i] = p.speakers[len(p.speakers)-1]
			p.speakers = p.speakers[:len(p.speakers)-1]

			return
		}
	}
}
