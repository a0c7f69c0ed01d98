package corpus

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeIndex(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "index.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestIndexSourceLoad(t *testing.T) {
	path := writeIndex(t,
		"19-198-0000\t/data/19-198-0000.flac\thello,world\t1.0,2.0\n"+
			"27-123-0001\t/data/27-123-0001.flac\t,hi,\t0.5,1.0,1.5\n")

	records, err := IndexSource{Path: path}.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "19-198-0000", records[0].UttID)
	require.Equal(t, "/data/19-198-0000.flac", records[0].AudioPath)
	require.Equal(t, "hello,world", records[0].Transcript)
	require.Equal(t, "1.0,2.0", records[0].Alignments)
}

func TestIndexSourceSkipsMalformedLines(t *testing.T) {
	path := writeIndex(t,
		"19-198-0000\t/data/a.flac\thello\t1.0\n"+
			"not enough fields\n"+
			"\n"+
			"27-123-0001\t/data/b.flac\thi\t0.5\n")

	records, err := IndexSource{Path: path}.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestIndexSourceMissingFile(t *testing.T) {
	_, err := IndexSource{Path: "/nonexistent/index.tsv"}.Load()
	require.Error(t, err)
}

func TestLoadPool(t *testing.T) {
	path := writeIndex(t,
		"19-198-0000\t/data/a.flac\thello\t1.0\n"+
			"19-198-0001\t/data/b.flac\thi,there\t0.5,1.0\n"+
			"27-123-0000\t/data/c.flac\tbad,alignments\t0.5\n"+
			"39-121-0000\t/data/d.flac\tyo\t0.7\n")

	pool, err := LoadPool(IndexSource{Path: path}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	// The mismatched record is dropped, the rest grouped by speaker.
	require.Equal(t, 2, pool.Speakers())
	require.Equal(t, 3, pool.Utterances())
}
