package commands

import (
	"github.com/spf13/cobra"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Derive frame labels, scores and features from a synthesized dataset",
	Long: `Process every overlap shard of a synthesized dataset concurrently.
For each example this derives 3-class frame labels, target similarity score
streams and log-mel filterbank features, writing them to per-shard array
stores plus a targets index under the extraction destination.

Speaker embeddings are read from a prebuilt store; the embedding encoder is
reached over HTTP at --encoder_base_url.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return extract.NewService().Run(cmd.Context())
	},
}

func init() {
	flags := extractCmd.Flags()
	flags.String("output_root", "", "synthesized dataset root to extract from")
	flags.String("extract_root", "", "absolute destination directory for extraction artifacts")
	flags.String("embed_root", "", "speaker embedding store directory")
	flags.String("encoder_base_url", "", "base URL of the embedding encoder service")
	flags.Bool("target_dropout", false, "substitute a foreign target speaker for a third of single-speaker examples")
	flags.Bool("merge_time_sorted", false, "apply overlap events sorted by start time instead of generation order")
	flags.Int("flush_every", 100, "records between store flushes")
	flags.Int("encoder_timeout", 30, "encoder request timeout in seconds")
	flags.Uint("encoder_retry_max_attempts", 3, "encoder retry attempts")
}
