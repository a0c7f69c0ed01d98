package corpus

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	"go.uber.org/zap"
)

const indexFieldCount = 4

// IndexSource loads utterance records from a dataset index file written by
// the external alignment tooling: one utterance per line, tab-separated as
// <utt_id> <audio_path> <transcript> <alignments>.
type IndexSource struct {
	Path string
}

func (s IndexSource) Load() ([]Record, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset index %s: %w", s.Path, err)
	}

	defer file.Close()

	var records []Record

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimRight(scanner.Text(), "\n")
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, "\t", indexFieldCount)
		if len(fields) != indexFieldCount {
			logging.Logger.Warn("Skipping malformed dataset index line",
				zap.String("path", s.Path),
				zap.Int("line", lineNo),
			)

			continue
		}

		records = append(records, Record{
			UttID:      fields[0],
			AudioPath:  fields[1],
			Transcript: fields[2],
			Alignments: fields[3],
		})
	}

	err = scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset index %s: %w", s.Path, err)
	}

	return records, nil
}

// LoadPool fills a fresh pool from every loadable record of the source.
// Records that fail validation are logged and skipped.
func LoadPool(src Source, rng *rand.Rand) (*Pool, error) {
	records, err := src.Load()
	if err != nil {
		return nil, err
	}

	pool := NewPool(rng)

	for _, rec := range records {
		utt, err := FromRecord(rec)
		if err != nil {
			logging.Logger.Warn("Skipping unusable utterance record",
				zap.String("utt_id", rec.UttID),
				zap.String("error", err.Error()),
			)

			continue
		}

		pool.Add(utt)
	}

	logging.Logger.Info("Utterance pool loaded",
		zap.Int("speakers", pool.Speakers()),
		zap.Int("utterances", pool.Utterances()),
	)

	return pool, nil
}
