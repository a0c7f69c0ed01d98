package synth

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Manifest summarizes one synthesis run. It is written next to the index
// files so downstream tooling can tell which parameters produced a tree.
type Manifest struct {
	RunID          string  `json:"run_id"`
	Requested      int     `json:"requested"`
	Generated      int     `json:"generated"`
	OverlapPct     float64 `json:"overlap_pct"`
	AmplitudeRatio float64 `json:"amplitude_ratio"`
	CreatedAt      string  `json:"created_at"`
}

// WriteManifest persists a run manifest into the output root.
func WriteManifest(outputRoot string, requested, generated int, overlapPct, amplitudeRatio float64) error {
	manifest := Manifest{
		RunID:          uuid.NewString(),
		Requested:      requested,
		Generated:      generated,
		OverlapPct:     overlapPct,
		AmplitudeRatio: amplitudeRatio,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run manifest: %w", err)
	}

	err = os.WriteFile(filepath.Join(outputRoot, "run_manifest.json"), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write run manifest: %w", err)
	}

	return nil
}
