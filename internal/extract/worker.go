package extract

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/audio"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/embedder"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/fbank"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/label"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	prometheusKamino "git.mci.dev/mse/sre/phoenix/golang/kamino/internal/prometheus"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/score"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/store"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/transcript"
	"go.uber.org/zap"
)

// worker processes one input shard. It owns its output stores, its targets
// index file and its dedicated encoder reply channel; the only shared state
// it touches is the read-only transcript table and the encoder request
// channel.
type worker struct {
	shard      string
	shardDir   string
	dest       string
	table      transcript.Table
	selector   *Selector
	requests   chan<- embedder.Request
	reply      chan embedder.Response
	extractor  *fbank.Extractor
	policy     label.MergePolicy
	flushEvery int

	fbanks  *store.Store
	scores  *store.Store
	labels  *store.Store
	targets *os.File
	targetW *bufio.Writer
}

func (w *worker) run(ctx context.Context) error {
	err := w.openOutputs()
	if err != nil {
		return err
	}

	defer w.closeOutputs()

	records, err := w.listRecords()
	if err != nil {
		return err
	}

	logging.Logger.Info("Shard extraction started",
		zap.String("shard", w.shard),
		zap.Int("records", len(records)),
	)

	processed := 0

	for _, path := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		id := strings.TrimSuffix(filepath.Base(path), ".flac")

		err := w.processRecord(ctx, id, path)
		if err != nil {
			// One bad record never aborts the shard.
			prometheusKamino.RecordsSkipped.WithLabelValues(w.shard).Inc()
			logging.Logger.Warn("Skipping record",
				zap.String("shard", w.shard),
				zap.String("id", id),
				zap.String("error", err.Error()),
			)

			continue
		}

		prometheusKamino.RecordsProcessed.WithLabelValues(w.shard).Inc()

		processed++
		if processed%w.flushEvery == 0 {
			w.flush()
		}
	}

	logging.Logger.Info("Shard extraction finished",
		zap.String("shard", w.shard),
		zap.Int("processed", processed),
	)

	return nil
}

func (w *worker) processRecord(ctx context.Context, id, path string) error {
	entry, ok := w.table[id]
	if !ok {
		return fmt.Errorf("transcript key %s not found", id)
	}

	err := audio.CheckSampleRate(path)
	if err != nil {
		return err
	}

	samples, err := audio.Decode(path)
	if err != nil {
		return err
	}

	features := w.extractor.Extract(samples)
	if len(features) == 0 {
		return fmt.Errorf("audio too short for feature extraction: %s", id)
	}

	n := len(features)

	slices := fbank.PartialSlices(n)
	sliced := fbank.SliceFeatures(features, slices)

	w.requests <- embedder.Request{
		ID:     id,
		Frames: features,
		Slices: sliced,
		Reply:  w.reply,
	}

	resp := <-w.reply
	if resp.Err != nil {
		return fmt.Errorf("encoder request failed: %w", resp.Err)
	}

	if len(resp.Stream) != n {
		return fmt.Errorf("streaming embedding count %d does not match frame count %d",
			len(resp.Stream), n)
	}

	if len(resp.Sliced) != len(slices) {
		return fmt.Errorf("sliced embedding count %d does not match slice count %d",
			len(resp.Sliced), len(slices))
	}

	selection, err := w.selector.Select(id)
	if err != nil {
		return err
	}

	streamScores := score.Against(selection.Embedding, resp.Stream)
	slicedScores := score.Against(selection.Embedding, resp.Sliced)

	matrix := score.Stack(
		streamScores,
		score.StepExpand(slicedScores, fbank.SliceHop),
		score.LinearExpand(slicedScores, fbank.SliceHop),
		n,
	)

	labels := label.Derive(entry, selection.Ordinal, n, w.policy)

	return w.writeRecord(id, features, matrix, labels, selection.SpeakerID)
}

func (w *worker) writeRecord(id string, features, scores [][]float32, labels []label.FrameLabel, targetID string) error {
	err := w.fbanks.PutMatrix(id, features)
	if err != nil {
		return err
	}

	err = w.scores.PutMatrix(id, scores)
	if err != nil {
		return err
	}

	raw := make([]uint8, len(labels))
	for i, l := range labels {
		raw[i] = uint8(l)
	}

	err = w.labels.PutLabels(id, raw)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w.targetW, "%s %s\n", id, targetID)
	if err != nil {
		return fmt.Errorf("failed to write targets line: %w", err)
	}

	return nil
}

// flush pushes the pending batches of every output to disk, bounding data
// loss on crash to the current batch.
func (w *worker) flush() {
	for _, s := range []*store.Store{w.fbanks, w.scores, w.labels} {
		err := s.Flush()
		if err != nil {
			logging.Logger.Warn("Array store flush failed",
				zap.String("shard", w.shard),
				zap.String("error", err.Error()),
			)
		}
	}

	err := w.targetW.Flush()
	if err != nil {
		logging.Logger.Warn("Targets index flush failed",
			zap.String("shard", w.shard),
			zap.String("error", err.Error()),
		)
	}
}

// listRecords returns the shard's audio files sorted by name; processing
// order within a shard equals input order.
func (w *worker) listRecords() ([]string, error) {
	entries, err := os.ReadDir(w.shardDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read shard directory %s: %w", w.shardDir, err)
	}

	var records []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".flac") {
			continue
		}

		records = append(records, filepath.Join(w.shardDir, entry.Name()))
	}

	sort.Strings(records)

	return records, nil
}

func (w *worker) openOutputs() error {
	var err error

	w.fbanks, err = store.Open(filepath.Join(w.dest, "fbanks_"+w.shard))
	if err != nil {
		return err
	}

	w.scores, err = store.Open(filepath.Join(w.dest, "scores_"+w.shard))
	if err != nil {
		return err
	}

	w.labels, err = store.Open(filepath.Join(w.dest, "labels_"+w.shard))
	if err != nil {
		return err
	}

	w.targets, err = os.Create(filepath.Join(w.dest, "targets_"+w.shard+".scp"))
	if err != nil {
		return fmt.Errorf("failed to create targets index: %w", err)
	}

	w.targetW = bufio.NewWriter(w.targets)

	return nil
}

func (w *worker) closeOutputs() {
	for _, s := range []*store.Store{w.fbanks, w.scores, w.labels} {
		if s == nil {
			continue
		}

		err := s.Close()
		if err != nil {
			logging.Logger.Warn("Failed to close array store",
				zap.String("shard", w.shard),
				zap.String("error", err.Error()),
			)
		}
	}

	if w.targetW != nil {
		err := w.targetW.Flush()
		if err != nil {
			logging.Logger.Warn("Failed to flush targets index",
				zap.String("error", err.Error()),
			)
		}
	}

	if w.targets != nil {
		err := w.targets.Close()
		if err != nil {
			logging.Logger.Warn("Failed to close targets index",
				zap.String("error", err.Error()),
			)
		}
	}
}
