package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func TestMatrixRoundTrip(t *testing.T) {
	s := openTestStore(t)

	matrix := [][]float32{
		{1, 2, 3},
		{4, 5, 6},
	}

	require.NoError(t, s.PutMatrix("ex1", matrix))
	require.NoError(t, s.Flush())

	got, err := s.GetMatrix("ex1")
	require.NoError(t, err)
	require.Equal(t, matrix, got)
}

func TestVectorRoundTrip(t *testing.T) {
	s := openTestStore(t)

	vector := []float32{0.1, -0.2, 0.3}

	require.NoError(t, s.PutVector("spk19", vector))
	require.NoError(t, s.Flush())

	got, err := s.GetVector("spk19")
	require.NoError(t, err)
	require.Equal(t, vector, got)
}

func TestLabelsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	labels := []uint8{0, 1, 2, 2, 1, 0}

	require.NoError(t, s.PutLabels("ex1", labels))
	require.NoError(t, s.Flush())

	got, err := s.GetLabels("ex1")
	require.NoError(t, err)
	require.Equal(t, labels, got)
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetMatrix("absent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestKeysSorted(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutVector("b", []float32{1}))
	require.NoError(t, s.PutVector("a", []float32{2}))
	require.NoError(t, s.PutVector("c", []float32{3}))
	require.NoError(t, s.Flush())

	keys, err := s.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestEmptyMatrix(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutMatrix("empty", nil))
	require.NoError(t, s.Flush())

	got, err := s.GetMatrix("empty")
	require.NoError(t, err)
	require.Empty(t, got)
}
