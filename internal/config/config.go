package config

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Static errors for configuration validation
var (
	ErrOverlapPctRange   = errors.New("overlap percentage must be between 0 and 100")
	ErrNegativeAmplitude = errors.New("amplitude ratio must be 0 or greater")
	ErrOutputRootNotAbs  = errors.New("output root path must be absolute")
	ErrExtractRootNotAbs = errors.New("extraction destination path must be absolute")
)

type Config struct {
	DatasetRoot  string `mapstructure:"dataset_root"`
	OutputRoot   string `mapstructure:"output_root"`
	ExampleCount int    `mapstructure:"example_count"  validate:"min=1"`

	OverlapPct     float64 `mapstructure:"overlap_pct"`
	AmplitudeRatio float64 `mapstructure:"amplitude_ratio"`
	ScpPrefix      string  `mapstructure:"scp_prefix"`
	FilesPerDir    int     `mapstructure:"files_per_dir"   validate:"min=1"`

	ExtractRoot     string `mapstructure:"extract_root"`
	EmbedRoot       string `mapstructure:"embed_root"`
	TargetDropout   bool   `mapstructure:"target_dropout"`
	FlushEvery      int    `mapstructure:"flush_every"       validate:"min=1"`
	MergeTimeSorted bool   `mapstructure:"merge_time_sorted"`

	EncoderBaseUrl               string `mapstructure:"encoder_base_url"`
	EncoderTimeout               int    `mapstructure:"encoder_timeout"`
	EncoderRetryMaxAttempts      uint   `mapstructure:"encoder_retry_max_attempts"`
	EncoderRetryMinBackoff       int    `mapstructure:"encoder_retry_min_backoff"`
	EncoderRetryMaxBackoff       int    `mapstructure:"encoder_retry_max_backoff"`
	EncoderIntervalCB            uint32 `mapstructure:"encoder_interval_cb"`
	EncoderConsecutiveFailuresCB uint32 `mapstructure:"encoder_consecutive_failures_cb"`

	MinioEndpointURL            string `mapstructure:"minio_endpoint_url"`
	MinioAccessKey              string `mapstructure:"minio_access_key"`
	MinioSecretKey              string `mapstructure:"minio_secret_key"`
	MinioBucketName             string `mapstructure:"minio_bucket_name"`
	MinioPathPrefix             string `mapstructure:"minio_path_prefix"`
	MinioMaxRetryAttempts       uint   `mapstructure:"minio_max_retry_attempts"`
	MinioRetryBackoffMinSeconds int    `mapstructure:"minio_retry_backoff_min_seconds"`
	MinioRetryBackoffMaxSeconds int    `mapstructure:"minio_retry_backoff_max_seconds"`
	MinioTimeout                int    `mapstructure:"minio_timeout"`
	MinioIntervalCB             uint32 `mapstructure:"minio_interval_cb"`
	MinioConsecutiveFailuresCB  uint32 `mapstructure:"minio_consecutive_failures_cb"`

	LogLevel    string `mapstructure:"log_level"`
	LogFilePath string `mapstructure:"log_file_path"`

	PrometheusPort    string `mapstructure:"prometheus_port"`
	PrometheusTimeout int    `mapstructure:"prometheus_timeout"`
}

var Conf Config

// Load reads the configuration from environment variables and the given
// command flag set, unmarshals it into Conf and validates it. Flags take
// precedence over environment variables.
func Load(flags *pflag.FlagSet) error {
	viper.AutomaticEnv()
	viper.AllowEmptyEnv(true)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setupDefaults()

	if flags != nil {
		err := viper.BindPFlags(flags)
		if err != nil {
			return err
		}
	}

	err := viper.Unmarshal(&Conf)
	if err != nil {
		return err
	}

	err = validator.New().Struct(&Conf)
	if err != nil {
		return err
	}

	return validateRanges(&Conf)
}

// validateRanges covers the fail-fast checks that must run before any
// generation starts.
func validateRanges(cfg *Config) error {
	if cfg.OverlapPct < 0 || cfg.OverlapPct > 100 {
		return ErrOverlapPctRange
	}

	if cfg.AmplitudeRatio < 0 {
		return ErrNegativeAmplitude
	}

	if cfg.OutputRoot != "" && !filepath.IsAbs(cfg.OutputRoot) {
		return ErrOutputRootNotAbs
	}

	if cfg.ExtractRoot != "" && !filepath.IsAbs(cfg.ExtractRoot) {
		return ErrExtractRootNotAbs
	}

	return nil
}

func setupDefaults() {
	confType := reflect.TypeOf(Conf)
	for i := range confType.NumField() {
		field := confType.Field(i)
		viper.SetDefault(field.Tag.Get("mapstructure"), "")
	}

	viper.SetDefault("EXAMPLE_COUNT", "500")
	viper.SetDefault("OVERLAP_PCT", "30")
	viper.SetDefault("AMPLITUDE_RATIO", "0.7")
	viper.SetDefault("SCP_PREFIX", "data/overlap/")
	viper.SetDefault("FILES_PER_DIR", "200")
	viper.SetDefault("FLUSH_EVERY", "100")
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("LOG_FILE_PATH", "./access.log")
	viper.SetDefault("ENCODER_TIMEOUT", "30")
	viper.SetDefault("ENCODER_RETRY_MAX_ATTEMPTS", "3")
	viper.SetDefault("ENCODER_RETRY_MIN_BACKOFF", "1")
	viper.SetDefault("ENCODER_RETRY_MAX_BACKOFF", "10")
	viper.SetDefault("ENCODER_INTERVAL_CB", "30")
	viper.SetDefault("ENCODER_CONSECUTIVE_FAILURES_CB", "3")
	viper.SetDefault("MINIO_MAX_RETRY_ATTEMPTS", "3")
	viper.SetDefault("MINIO_RETRY_BACKOFF_MIN_SECONDS", "1")
	viper.SetDefault("MINIO_RETRY_BACKOFF_MAX_SECONDS", "10")
	viper.SetDefault("MINIO_TIMEOUT", "60")
	viper.SetDefault("MINIO_INTERVAL_CB", "300")
	viper.SetDefault("MINIO_CONSECUTIVE_FAILURES_CB", "3")
	viper.SetDefault("PROMETHEUS_PORT", "2112")
	viper.SetDefault("PROMETHEUS_TIMEOUT", "60")
}
