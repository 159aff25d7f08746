// Package config loads application configuration from config.yaml and
// environment variables, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the root configuration structure.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Preprocess PreprocessConfig `yaml:"preprocess" mapstructure:"preprocess"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Task       TaskConfig       `yaml:"task" mapstructure:"task"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Datasets   DatasetsConfig   `yaml:"datasets" mapstructure:"datasets"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings and per-phase token budgets.
type AnthropicConfig struct {
	Key                 string  `yaml:"key" mapstructure:"key"`
	Model               string  `yaml:"model" mapstructure:"model"`
	ContextMaxTokens    int64   `yaml:"context_max_tokens" mapstructure:"context_max_tokens"`
	ScanMaxTokens       int64   `yaml:"scan_max_tokens" mapstructure:"scan_max_tokens"`
	AnalyzeMaxTokens    int64   `yaml:"analyze_max_tokens" mapstructure:"analyze_max_tokens"`
	SynthesizeMaxTokens int64   `yaml:"synthesize_max_tokens" mapstructure:"synthesize_max_tokens"`
	RequestsPerMinute   float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// PreprocessConfig holds image normalization limits.
type PreprocessConfig struct {
	MaxDimension int   `yaml:"max_dimension" mapstructure:"max_dimension"`
	MaxSizeKB    int   `yaml:"max_size_kb" mapstructure:"max_size_kb"`
	Quality      int   `yaml:"quality" mapstructure:"quality"`
	MinQuality   int   `yaml:"min_quality" mapstructure:"min_quality"`
	Concurrency  int   `yaml:"concurrency" mapstructure:"concurrency"`
	MaxFileBytes int64 `yaml:"max_file_bytes" mapstructure:"max_file_bytes"`
}

// PipelineConfig holds analysis thresholds.
type PipelineConfig struct {
	// SynthesisThreshold is the confidence floor applied to the analysis
	// tree before synthesis.
	SynthesisThreshold float64 `yaml:"synthesis_threshold" mapstructure:"synthesis_threshold"`
}

// TaskConfig holds task registry settings.
type TaskConfig struct {
	RetentionMinutes int `yaml:"retention_minutes" mapstructure:"retention_minutes"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int `yaml:"port" mapstructure:"port"`
	MaxUploadImages int `yaml:"max_upload_images" mapstructure:"max_upload_images"`
	MaxUploadSizeMB int `yaml:"max_upload_size_mb" mapstructure:"max_upload_size_mb"`
}

// DatasetsConfig holds the on-disk dataset catalog location.
type DatasetsConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// StoreConfig holds the audit store location.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the BIOBLUEPRINT_ prefix with underscores,
// e.g. BIOBLUEPRINT_ANTHROPIC_KEY.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BIOBLUEPRINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.context_max_tokens", 8000)
	v.SetDefault("anthropic.scan_max_tokens", 16000)
	v.SetDefault("anthropic.analyze_max_tokens", 16000)
	v.SetDefault("anthropic.synthesize_max_tokens", 16000)
	v.SetDefault("anthropic.requests_per_minute", 0)
	v.SetDefault("preprocess.max_dimension", 1024)
	v.SetDefault("preprocess.max_size_kb", 200)
	v.SetDefault("preprocess.quality", 80)
	v.SetDefault("preprocess.min_quality", 30)
	v.SetDefault("preprocess.concurrency", 4)
	v.SetDefault("preprocess.max_file_bytes", 10*1024*1024)
	v.SetDefault("pipeline.synthesis_threshold", 0.8)
	v.SetDefault("task.retention_minutes", 60)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.max_upload_images", 50)
	v.SetDefault("server.max_upload_size_mb", 10)
	v.SetDefault("datasets.root", "datasets")
	v.SetDefault("store.path", "bioblueprint.db")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger sets up the global zap logger based on config.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
