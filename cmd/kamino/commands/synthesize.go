package commands

import (
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/corpus"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/synth"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Generate overlapping speech examples from a clean corpus",
	Long: `Generate composite examples by concatenating 1-3 main speakers and
mixing in 1-2 overlap events per example. Writes sharded flac files plus
wav.scp, utt2spk, text, per-example overlap sidecars and a run manifest
under the output root. The output root must be absolute and empty.`,
	RunE: runSynthesize,
}

func init() {
	flags := synthesizeCmd.Flags()
	flags.String("dataset_root", "", "dataset index file produced by the alignment tooling")
	flags.String("output_root", "", "absolute destination directory for the generated dataset")
	flags.Int("example_count", 500, "number of examples to generate")
	flags.Float64("overlap_pct", 30, "overlap duration as a percentage of the main track")
	flags.Float64("amplitude_ratio", 0.7, "gain applied to overlap audio before mixing")
	flags.String("scp_prefix", "data/overlap/", "path prefix written into wav.scp entries")
	flags.Int("files_per_dir", 200, "examples per shard directory")
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	pool, err := corpus.LoadPool(corpus.IndexSource{Path: config.Conf.DatasetRoot}, rng)
	if err != nil {
		return err
	}

	builder := synth.NewTrackBuilder(pool, rng)
	injector := synth.NewInjector(pool, rng, config.Conf.OverlapPct, config.Conf.AmplitudeRatio)

	generator := synth.NewGenerator(
		builder,
		injector,
		config.Conf.OutputRoot,
		config.Conf.ScpPrefix,
		config.Conf.FilesPerDir,
	)

	generated, err := generator.Run(cmd.Context(), config.Conf.ExampleCount)
	if err != nil {
		return err
	}

	err = synth.WriteManifest(
		config.Conf.OutputRoot,
		config.Conf.ExampleCount,
		generated,
		config.Conf.OverlapPct,
		config.Conf.AmplitudeRatio,
	)
	if err != nil {
		return err
	}

	logging.Logger.Info("Synthesis completed",
		zap.Int("requested", config.Conf.ExampleCount),
		zap.Int("generated", generated),
	)

	return nil
}
