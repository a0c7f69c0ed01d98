package extract

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/store"
)

// NoTargetOrdinal marks an example whose target speaker is not among the
// main speakers; no base frame can then be target speech.
const NoTargetOrdinal = -1

// ErrNoSpeakers is returned when the embedding store holds no speakers to
// dropout-sample from.
var ErrNoSpeakers = errors.New("no speakers available in embedding store")

// Selection fixes the target speaker for one example: the ordinal among the
// main speakers (or NoTargetOrdinal), the chosen speaker id and its
// embedding.
type Selection struct {
	Ordinal   int
	SpeakerID string
	Embedding []float32
}

// Selector picks the target speaker per example. With dropout enabled and a
// single main speaker, one third of examples substitute a random foreign
// speaker so the model sees enrolled-but-absent targets.
type Selector struct {
	Embeddings  *store.Store
	AllSpeakers []string
	Dropout     bool
	Rng         *rand.Rand
}

func NewSelector(embeddings *store.Store, dropout bool, rng *rand.Rand) (*Selector, error) {
	speakers, err := embeddings.Keys()
	if err != nil {
		return nil, err
	}

	return &Selector{
		Embeddings:  embeddings,
		AllSpeakers: speakers,
		Dropout:     dropout,
		Rng:         rng,
	}, nil
}

// Select fixes the target speaker for the example with the given id. Main
// speaker ids are recovered from the id, which joins the source utterance
// ids with underscores.
func (s *Selector) Select(exampleID string) (Selection, error) {
	mainSpeakers := mainSpeakersOf(exampleID)
	if len(mainSpeakers) == 0 {
		return Selection{}, fmt.Errorf("no main speakers in example id %q", exampleID)
	}

	ordinal := 0

	if s.Dropout && len(mainSpeakers) == 1 {
		// Two thirds keep the real target, one third swaps in a foreign one.
		if s.Rng.Intn(3) == 0 {
			return s.selectForeign(mainSpeakers[0])
		}
	} else {
		ordinal = s.Rng.Intn(len(mainSpeakers))
	}

	speakerID := mainSpeakers[ordinal]

	embedding, err := s.Embeddings.GetVector(speakerID)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to load target embedding for %s: %w", speakerID, err)
	}

	return Selection{Ordinal: ordinal, SpeakerID: speakerID, Embedding: embedding}, nil
}

func (s *Selector) selectForeign(exclude string) (Selection, error) {
	if len(s.AllSpeakers) == 0 {
		return Selection{}, ErrNoSpeakers
	}

	speakerID := exclude
	for speakerID == exclude {
		candidate := s.AllSpeakers[s.Rng.Intn(len(s.AllSpeakers))]
		if candidate == exclude && len(s.AllSpeakers) == 1 {
			return Selection{}, ErrNoSpeakers
		}

		speakerID = candidate
	}

	embedding, err := s.Embeddings.GetVector(speakerID)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to load foreign embedding for %s: %w", speakerID, err)
	}

	return Selection{Ordinal: NoTargetOrdinal, SpeakerID: speakerID, Embedding: embedding}, nil
}

// mainSpeakersOf recovers the main speaker ids from an example id of the
// form <utt>_<utt>..._OV0_OV1.
func mainSpeakersOf(exampleID string) []string {
	var speakers []string

	for _, part := range strings.Split(exampleID, "_") {
		if strings.HasPrefix(part, "OV") {
			continue
		}

		speaker, _, _ := strings.Cut(part, "-")
		if speaker != "" {
			speakers = append(speakers, speaker)
		}
	}

	return speakers
}
