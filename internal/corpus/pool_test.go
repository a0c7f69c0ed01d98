package corpus

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testUtterance(uttID string) Utterance {
	return Utterance{
		UttID:     uttID,
		SpeakerID: speakerOf(uttID),
		AudioPath: "/nonexistent/" + uttID + ".flac",
		Tokens:    []string{"hello"},
		Stamps:    []float64{1.0},
	}
}

func TestPoolSampleSpeakersWithoutReplacement(t *testing.T) {
	pool := NewPool(rand.New(rand.NewSource(1)))
	pool.Add(testUtterance("19-198-0000"))
	pool.Add(testUtterance("27-123-0000"))
	pool.Add(testUtterance("39-121-0000"))

	speakers, err := pool.SampleSpeakers(3)
	require.NoError(t, err)
	require.Len(t, speakers, 3)

	seen := make(map[string]bool)
	for _, id := range speakers {
		require.False(t, seen[id], "speaker %s sampled twice", id)
		seen[id] = true
	}

	require.True(t, seen["19"])
	require.True(t, seen["27"])
	require.True(t, seen["39"])
}

func TestPoolSampleSpeakersExhausted(t *testing.T) {
	pool := NewPool(rand.New(rand.NewSource(1)))
	pool.Add(testUtterance("19-198-0000"))

	_, err := pool.SampleSpeakers(2)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestPoolTakeConsumesExactlyOnce(t *testing.T) {
	pool := NewPool(rand.New(rand.NewSource(1)))
	pool.Add(testUtterance("19-198-0000"))
	pool.Add(testUtterance("19-198-0001"))

	require.Equal(t, 1, pool.Speakers())
	require.Equal(t, 2, pool.Utterances())

	first, err := pool.Take("19")
	require.NoError(t, err)

	second, err := pool.Take("19")
	require.NoError(t, err)

	require.NotEqual(t, first.UttID, second.UttID)

	// Speaker is dropped once its last utterance is consumed.
	require.Equal(t, 0, pool.Speakers())
	require.Equal(t, 0, pool.Utterances())

	_, err = pool.Take("19")
	require.ErrorIs(t, err, ErrExhausted)
}

func TestPoolTakeUnknownSpeaker(t *testing.T) {
	pool := NewPool(rand.New(rand.NewSource(1)))

	_, err := pool.Take("99")
	require.ErrorIs(t, err, ErrExhausted)
}
