package transcript

import (
	"bufio"
	"fmt"
	"os"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	"go.uber.org/zap"
)

// Table maps example ids to their parsed transcript entries. It is loaded
// once before extraction starts and read concurrently by every shard worker.
type Table map[string]Entry

// LoadTable reads a text file into a Table. Malformed lines are logged and
// skipped so one bad entry cannot block a whole run.
func LoadTable(path string) (Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}

	defer func() {
		cerr := file.Close()
		if cerr != nil {
			logging.Logger.Warn("Failed to close transcript file", zap.String("error", cerr.Error()))
		}
	}()

	table := make(Table)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		entry, err := Parse(line)
		if err != nil {
			logging.Logger.Warn("Skipping malformed transcript line",
				zap.String("error", err.Error()),
			)

			continue
		}

		table[entry.ID] = entry
	}

	err = scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	logging.Logger.Info("Transcript table loaded",
		zap.String("path", path),
		zap.Int("entries", len(table)),
	)

	return table, nil
}
