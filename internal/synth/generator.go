package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/audio"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/corpus"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	prometheusKamino "git.mci.dev/mse/sre/phoenix/golang/kamino/internal/prometheus"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/transcript"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ErrDestNotEmpty is returned when the output root already holds files.
// Re-running is not idempotent, so a dirty destination is refused up front.
var ErrDestNotEmpty = errors.New("destination folder is an existing file or non-empty directory")

const progressLogEvery = 50

// Generator runs the synthesis stage: a strictly sequential loop producing
// composite examples into a sharded output tree together with the wav.scp,
// utt2spk, text and per-example metadata sidecar files.
type Generator struct {
	Builder     *TrackBuilder
	Injector    *Injector
	OutputRoot  string
	ScpPrefix   string
	FilesPerDir int
	Encode      func(path string, samples []float32) error

	wavSCP  *os.File
	utt2spk *os.File
	text    *os.File
}

func NewGenerator(builder *TrackBuilder, injector *Injector, outputRoot, scpPrefix string, filesPerDir int) *Generator {
	if !strings.HasSuffix(scpPrefix, "/") {
		scpPrefix += "/"
	}

	return &Generator{
		Builder:     builder,
		Injector:    injector,
		OutputRoot:  outputRoot,
		ScpPrefix:   scpPrefix,
		FilesPerDir: filesPerDir,
		Encode:      audio.EncodeFLAC,
	}
}

// Run generates up to count examples and returns how many were produced.
// Pool exhaustion ends the run early with a partial count and no error.
func (g *Generator) Run(ctx context.Context, count int) (int, error) {
	err := g.prepareDest()
	if err != nil {
		return 0, err
	}

	defer g.closeIndexFiles()

	generated := 0
	shardName := ""

	for iteration := range count {
		if ctx.Err() != nil {
			logging.Logger.Warn("Synthesis interrupted",
				zap.Int("generated", generated),
			)

			return generated, ctx.Err()
		}

		if iteration%g.FilesPerDir == 0 {
			shardName = strconv.Itoa(iteration/g.FilesPerDir) + "_overlap"

			err = os.MkdirAll(filepath.Join(g.OutputRoot, shardName), 0o755)
			if err != nil {
				return generated, fmt.Errorf("failed to create shard directory: %w", err)
			}
		}

		done, err := g.generateOne(shardName)
		if err != nil {
			if errors.Is(err, corpus.ErrExhausted) {
				logging.Logger.Info("Ran out of utterances, ending early",
					zap.Int("generated", generated),
					zap.Int("requested", count),
				)

				return generated, nil
			}

			return generated, err
		}

		if done {
			generated++
		}

		if done && generated%progressLogEvery == 0 {
			logging.Logger.Info("Synthesis progress",
				zap.Int("generated", generated),
				zap.Int("requested", count),
			)
		}
	}

	return generated, nil
}

// generateOne produces a single example. A false return with nil error means
// the iteration was skipped (degenerate track or exhausted pool).
func (g *Generator) generateOne(shardName string) (bool, error) {
	timer := prometheus.NewTimer(prometheusKamino.SynthesisDuration)
	defer timer.ObserveDuration()

	track, err := g.Builder.Build()
	if err != nil {
		switch {
		case errors.Is(err, corpus.ErrExhausted):
			return false, err
		case errors.Is(err, ErrTrackTooShort):
			prometheusKamino.IterationsSkipped.WithLabelValues("track_too_short").Inc()
			logging.Logger.Warn("Main track too short, skipping iteration")
		default:
			prometheusKamino.IterationsSkipped.WithLabelValues("load_failure").Inc()
			logging.Logger.Warn("Failed to build main track, skipping iteration",
				zap.String("error", err.Error()),
			)
		}

		return false, nil
	}

	events := g.Injector.Inject(track.Audio)
	prometheusKamino.OverlapEventsInjected.Add(float64(len(events)))

	id := exampleID(track, events)

	flacPath := filepath.Join(g.OutputRoot, shardName, id+".flac")

	err = g.Encode(flacPath, track.Audio)
	if err != nil {
		return false, fmt.Errorf("failed to write example audio: %w", err)
	}

	err = g.writeIndexLines(id, shardName, track, events)
	if err != nil {
		return false, err
	}

	err = g.writeMeta(filepath.Join(g.OutputRoot, shardName, id+".overlap_meta"), track, events)
	if err != nil {
		return false, err
	}

	prometheusKamino.ExamplesGenerated.Inc()

	return true, nil
}

func (g *Generator) writeIndexLines(id, shardName string, track *Track, events []OverlapEvent) error {
	_, err := fmt.Fprintf(g.wavSCP, "%s flac -d -c -s %s%s/%s.flac |\n", id, g.ScpPrefix, shardName, id)
	if err != nil {
		return fmt.Errorf("failed to write wav.scp line: %w", err)
	}

	_, err = fmt.Fprintf(g.utt2spk, "%s %s\n", id, id)
	if err != nil {
		return fmt.Errorf("failed to write utt2spk line: %w", err)
	}

	entry := transcript.Entry{
		ID:     id,
		Tokens: track.Tokens,
		Stamps: track.Stamps,
		Events: eventRanges(events),
	}

	_, err = fmt.Fprintln(g.text, transcript.Encode(entry))
	if err != nil {
		return fmt.Errorf("failed to write text line: %w", err)
	}

	return nil
}

// writeMeta writes the per-example sidecar consumed by tooling that needs
// the overlap layout without reparsing the transcript.
func (g *Generator) writeMeta(path string, track *Track, events []OverlapEvent) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "main_speakers: %s\n", strings.Join(track.Speakers, ","))
	fmt.Fprintf(&sb, "overlap_count: %d\n", len(events))

	for i, ev := range events {
		fmt.Fprintf(&sb, "overlap_%d: %.2f-%.2f speakers=%s amplitude=%s\n",
			i, ev.Start, ev.End,
			strings.Join(ev.Speakers, ","),
			strconv.FormatFloat(ev.Amplitude, 'g', -1, 64),
		)
	}

	err := os.WriteFile(path, []byte(sb.String()), 0o644)
	if err != nil {
		return fmt.Errorf("failed to write overlap metadata: %w", err)
	}

	return nil
}

func (g *Generator) prepareDest() error {
	info, err := os.Stat(g.OutputRoot)

	switch {
	case err == nil:
		if !info.IsDir() {
			return ErrDestNotEmpty
		}

		entries, err := os.ReadDir(g.OutputRoot)
		if err != nil {
			return fmt.Errorf("failed to read destination directory: %w", err)
		}

		if len(entries) > 0 {
			return ErrDestNotEmpty
		}
	case os.IsNotExist(err):
		err = os.MkdirAll(g.OutputRoot, 0o755)
		if err != nil {
			return fmt.Errorf("failed to create destination directory: %w", err)
		}
	default:
		return fmt.Errorf("failed to stat destination directory: %w", err)
	}

	return g.openIndexFiles()
}

func (g *Generator) openIndexFiles() error {
	var err error

	g.wavSCP, err = os.Create(filepath.Join(g.OutputRoot, "wav.scp"))
	if err != nil {
		return fmt.Errorf("failed to create wav.scp: %w", err)
	}

	g.utt2spk, err = os.Create(filepath.Join(g.OutputRoot, "utt2spk"))
	if err != nil {
		return fmt.Errorf("failed to create utt2spk: %w", err)
	}

	g.text, err = os.Create(filepath.Join(g.OutputRoot, "text"))
	if err != nil {
		return fmt.Errorf("failed to create text: %w", err)
	}

	return nil
}

func (g *Generator) closeIndexFiles() {
	for _, f := range []*os.File{g.wavSCP, g.utt2spk, g.text} {
		if f == nil {
			continue
		}

		err := f.Close()
		if err != nil {
			logging.Logger.Warn("Failed to close index file",
				zap.String("file", f.Name()),
				zap.String("error", err.Error()),
			)
		}
	}
}

func exampleID(track *Track, events []OverlapEvent) string {
	id := strings.Join(track.UttIDs, "_")
	for i := range events {
		id += fmt.Sprintf("_OV%d", i)
	}

	return id
}

func eventRanges(events []OverlapEvent) []transcript.OverlapEvent {
	ranges := make([]transcript.OverlapEvent, len(events))
	for i, ev := range events {
		ranges[i] = transcript.OverlapEvent{Start: ev.Start, End: ev.End}
	}

	return ranges
}
