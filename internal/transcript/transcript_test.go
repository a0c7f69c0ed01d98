package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	entry := Entry{
		ID:     "19-198-0000_27-123-0000_OV0",
		Tokens: []string{"hello", "$", "world", ""},
		Stamps: []float64{1.0, 1.0, 2.5, 3.0},
		Events: []OverlapEvent{{Start: 1.0, End: 1.6}},
	}

	line := Encode(entry)

	require.Equal(t,
		"19-198-0000_27-123-0000_OV0 hello,$,world,$OV0:1.00-1.60 1.00 1.00 2.50 3.00",
		line,
	)
}

func TestEncodeParseRoundTrip(t *testing.T) {
	entry := Entry{
		ID:     "19-198-0000_OV0_OV1",
		Tokens: []string{"", "go", "on"},
		Stamps: []float64{0.5, 1.25, 2.0},
		Events: []OverlapEvent{
			{Start: 0.25, End: 1.0},
			{Start: 1.5, End: 2.0},
		},
	}

	parsed, err := Parse(Encode(entry))
	require.NoError(t, err)

	require.Equal(t, entry.ID, parsed.ID)
	require.Equal(t, entry.Tokens, parsed.Tokens)
	require.Equal(t, entry.Stamps, parsed.Stamps)
	require.Equal(t, entry.Events, parsed.Events)
}

func TestEncodeParseRoundTripAllSilence(t *testing.T) {
	// A single silence token joins to an empty transcript field, leaving two
	// adjacent spaces in the line.
	entry := Entry{
		ID:     "19-198-0003",
		Tokens: []string{""},
		Stamps: []float64{1.5},
	}

	line := Encode(entry)
	require.Equal(t, "19-198-0003  1.50", line)

	parsed, err := Parse(line)
	require.NoError(t, err)

	require.Equal(t, entry.ID, parsed.ID)
	require.Equal(t, entry.Tokens, parsed.Tokens)
	require.Equal(t, entry.Stamps, parsed.Stamps)
	require.Empty(t, parsed.Events)
}

func TestParseMalformedLine(t *testing.T) {
	_, err := Parse("lonely-id")
	require.ErrorIs(t, err, ErrMalformedLine)

	_, err = Parse("id tok,tok notanumber")
	require.Error(t, err)
}

func TestParseDropsUnparseableMarkers(t *testing.T) {
	entry, err := Parse("id hello,world$OVbroken$OV1:1.00-2.00 1.00 2.50")
	require.NoError(t, err)

	require.Equal(t, []string{"hello", "world"}, entry.Tokens)
	require.Equal(t, []OverlapEvent{{Start: 1.0, End: 2.0}}, entry.Events)
}

func TestMainSpeakerCount(t *testing.T) {
	require.Equal(t, 1, Entry{Tokens: []string{"a", "b"}}.MainSpeakerCount())
	require.Equal(t, 3, Entry{Tokens: []string{"a", "$", "b", "$", "c"}}.MainSpeakerCount())
}

func TestLoadTableSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text")

	content := "ex1 hello,world 1.00 2.00\n" +
		"broken\n" +
		"ex2 a,$,b$OV0:0.50-1.00 0.40 0.40 1.20\n"

	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, table, 2)

	require.Equal(t, []float64{1.0, 2.0}, table["ex1"].Stamps)
	require.Len(t, table["ex2"].Events, 1)
}
