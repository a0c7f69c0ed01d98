package extract

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/embedder"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/fbank"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/label"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/store"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/transcript"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoShards is returned when the dataset root contains no overlap shard
// directories to extract from.
var ErrNoShards = errors.New("no overlap shard directories found under dataset root")

// Service runs frame-level feature and label extraction over every shard of
// a synthesized dataset. Shards are processed concurrently, one worker per
// shard; all workers share a single encoder-owning goroutine.
type Service struct {
	DataRoot   string
	Dest       string
	EmbedRoot  string
	Encoder    embedder.Encoder
	Dropout    bool
	FlushEvery int
	Policy     label.MergePolicy
}

func NewService() *Service {
	policy := label.GenerationOrder
	if config.Conf.MergeTimeSorted {
		policy = label.TimeSorted
	}

	return &Service{
		DataRoot:   config.Conf.OutputRoot,
		Dest:       config.Conf.ExtractRoot,
		EmbedRoot:  config.Conf.EmbedRoot,
		Encoder:    embedder.NewClient(),
		Dropout:    config.Conf.TargetDropout,
		FlushEvery: config.Conf.FlushEvery,
		Policy:     policy,
	}
}

func (s *Service) Run(ctx context.Context) error {
	table, err := transcript.LoadTable(filepath.Join(s.DataRoot, "text"))
	if err != nil {
		return err
	}

	shards, err := s.listShards()
	if err != nil {
		return err
	}

	if len(shards) == 0 {
		return ErrNoShards
	}

	err = os.MkdirAll(s.Dest, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create extraction destination: %w", err)
	}

	embeddings, err := store.OpenReadOnly(s.EmbedRoot)
	if err != nil {
		return fmt.Errorf("failed to open embedding store: %w", err)
	}

	defer embeddings.Close()

	logging.Logger.Info("Extraction started",
		zap.Int("shards", len(shards)),
		zap.String("dest", s.Dest),
	)

	encoderService := embedder.NewService(s.Encoder, len(shards))

	serveCtx, stopEncoder := context.WithCancel(ctx)
	defer stopEncoder()

	go encoderService.Serve(serveCtx)

	pool, err := ants.NewPool(len(shards), ants.WithPreAlloc(true))
	if err != nil {
		return err
	}

	defer pool.Release()

	g, gctx := errgroup.WithContext(ctx)

	for i, shard := range shards {
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))

		selector, err := NewSelector(embeddings, s.Dropout, rng)
		if err != nil {
			return err
		}

		w := &worker{
			shard:      shard,
			shardDir:   filepath.Join(s.DataRoot, shard),
			dest:       s.Dest,
			table:      table,
			selector:   selector,
			requests:   encoderService.Requests,
			reply:      make(chan embedder.Response, 1),
			extractor:  fbank.New(fbank.DefaultConfig()),
			policy:     s.Policy,
			flushEvery: s.FlushEvery,
		}

		g.Go(func() error {
			done := make(chan error, 1)

			err := pool.Submit(func() {
				done <- w.run(gctx)
			})
			if err != nil {
				return fmt.Errorf("failed to submit shard %s to worker pool: %w", w.shard, err)
			}

			return <-done
		})
	}

	err = g.Wait()
	if err != nil {
		return err
	}

	logging.Logger.Info("Extraction finished", zap.Int("shards", len(shards)))

	return nil
}

func (s *Service) listShards() ([]string, error) {
	entries, err := os.ReadDir(s.DataRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset root %s: %w", s.DataRoot, err)
	}

	var shards []string

	for _, entry := range entries {
		if entry.IsDir() && strings.HasSuffix(entry.Name(), "_overlap") {
			shards = append(shards, entry.Name())
		}
	}

	sort.Strings(shards)

	return shards, nil
}
