package commands

import (
	"github.com/spf13/cobra"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/prometheus"
)

var rootCmd = &cobra.Command{
	Use:   "kamino",
	Short: "Overlap speech synthesis and personal VAD feature extraction",
	Long: `kamino builds multi-speaker training data for personal voice
activity detection.

Stages:
  synthesize - mix overlapping speech examples out of a clean corpus
  extract    - derive frame labels, similarity scores and filterbank
               features from a synthesized dataset
  export     - upload a finished dataset tree to object storage

Every flag can also be set through an environment variable of the same
name in upper case, e.g. OUTPUT_ROOT for --output_root.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}

		logging.Init()

		go prometheus.Run()

		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log_level", "INFO", "minimum log level")
	flags.String("log_file_path", "./access.log", "JSON log file path")
	flags.String("prometheus_port", "2112", "metrics listen port")

	rootCmd.AddCommand(synthesizeCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(exportCmd)
}
