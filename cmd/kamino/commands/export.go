package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/export"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a finished dataset tree to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := export.NewClient()
		if err != nil {
			return err
		}

		uploaded, err := client.UploadDataset(cmd.Context(), config.Conf.OutputRoot)
		if err != nil {
			return err
		}

		logging.Logger.Info("Export completed", zap.Int("files", uploaded))

		return nil
	},
}

func init() {
	flags := exportCmd.Flags()
	flags.String("output_root", "", "dataset root to upload")
	flags.String("minio_endpoint_url", "", "object storage endpoint")
	flags.String("minio_access_key", "", "object storage access key")
	flags.String("minio_secret_key", "", "object storage secret key")
	flags.String("minio_bucket_name", "", "destination bucket")
	flags.String("minio_path_prefix", "", "key prefix inside the bucket")
}
