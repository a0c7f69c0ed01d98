package extract

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/store"
)

func embedStore(t *testing.T, vectors map[string][]float32) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "embeddings"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	for id, vec := range vectors {
		require.NoError(t, s.PutVector(id, vec))
	}

	require.NoError(t, s.Flush())

	return s
}

func TestMainSpeakersOf(t *testing.T) {
	require.Equal(t,
		[]string{"19", "27"},
		mainSpeakersOf("19-198-0000_27-123-0001_OV0"),
	)

	require.Equal(t,
		[]string{"19"},
		mainSpeakersOf("19-198-0000_OV0_OV1"),
	)

	require.Equal(t,
		[]string{"19", "27", "39"},
		mainSpeakersOf("19-198-0000_27-123-0001_39-121-0002"),
	)
}

func TestSelectorPicksMainSpeaker(t *testing.T) {
	s := embedStore(t, map[string][]float32{
		"19": {1, 0},
		"27": {0, 1},
		"83": {1, 1},
	})

	selector, err := NewSelector(s, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, selector.AllSpeakers, 3)

	sel, err := selector.Select("19-198-0000_27-123-0001_OV0")
	require.NoError(t, err)

	require.GreaterOrEqual(t, sel.Ordinal, 0)
	require.Less(t, sel.Ordinal, 2)

	expected := []string{"19", "27"}[sel.Ordinal]
	require.Equal(t, expected, sel.SpeakerID)
	require.NotEmpty(t, sel.Embedding)
}

func TestSelectorSingleSpeakerWithoutDropout(t *testing.T) {
	s := embedStore(t, map[string][]float32{
		"19": {1, 0},
		"27": {0, 1},
	})

	selector, err := NewSelector(s, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	sel, err := selector.Select("19-198-0000_OV0")
	require.NoError(t, err)

	require.Equal(t, 0, sel.Ordinal)
	require.Equal(t, "19", sel.SpeakerID)
	require.Equal(t, []float32{1, 0}, sel.Embedding)
}

func TestSelectForeignExcludesMainSpeaker(t *testing.T) {
	s := embedStore(t, map[string][]float32{
		"19": {1, 0},
		"27": {0, 1},
	})

	selector, err := NewSelector(s, true, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	for range 20 {
		sel, err := selector.selectForeign("19")
		require.NoError(t, err)

		require.Equal(t, NoTargetOrdinal, sel.Ordinal)
		require.Equal(t, "27", sel.SpeakerID)
	}
}

func TestSelectForeignNoCandidates(t *testing.T) {
	s := embedStore(t, map[string][]float32{"19": {1, 0}})

	selector, err := NewSelector(s, true, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = selector.selectForeign("19")
	require.ErrorIs(t, err, ErrNoSpeakers)
}

func TestSelectorMissingEmbedding(t *testing.T) {
	s := embedStore(t, map[string][]float32{"19": {1, 0}})

	selector, err := NewSelector(s, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = selector.Select("99-100-0000")
	require.Error(t, err)
}
