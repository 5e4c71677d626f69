package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".xdsref"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for xdsref settings.
const envPrefix = "XDSREF"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadEnv reads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}

	return nil
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Scan:      ScanConfig{Pattern: DefaultScanPattern},
		Stats:     StatsConfig{SkipMalformed: DefaultStatsSkipMalformed},
		Rank:      RankConfig{Pattern: DefaultRankPattern, MetricColumn: DefaultRankMetricColumn, Workers: DefaultRankWorkers, Top: DefaultRankTop},
		Reference: ReferenceConfig{Output: DefaultReferenceOutput, Source: DefaultReferenceSource},
		Reprocess: ReprocessConfig{
			Script:       DefaultReprocessScript,
			Resolution:   DefaultReprocessResolution,
			ISigCut:      DefaultReprocessISigCut,
			TemplateHost: DefaultReprocessTemplateHost,
			AutoProc:     DefaultReprocessAutoProc,
			Anom:         DefaultReprocessAnom,
			SkipDone:     DefaultReprocessSkipDone,
			Grace:        DefaultReprocessGrace,
		},
		Plot:    PlotConfig{DPI: DefaultPlotDPI, Theme: DefaultPlotTheme, Bins: DefaultPlotBins},
		Logging: LoggingConfig{Level: DefaultLoggingLevel, JSON: DefaultLoggingJSON},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: DefaultTelemetryOTLPEndpoint,
			OTLPInsecure: DefaultTelemetryOTLPInsecure,
			MetricsAddr:  DefaultTelemetryMetricsAddr,
		},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("scan.pattern", DefaultScanPattern)
	viperCfg.SetDefault("stats.skip_malformed", DefaultStatsSkipMalformed)

	viperCfg.SetDefault("rank.pattern", DefaultRankPattern)
	viperCfg.SetDefault("rank.metric_column", DefaultRankMetricColumn)
	viperCfg.SetDefault("rank.workers", DefaultRankWorkers)
	viperCfg.SetDefault("rank.top", DefaultRankTop)

	viperCfg.SetDefault("reference.output", DefaultReferenceOutput)
	viperCfg.SetDefault("reference.source", DefaultReferenceSource)

	viperCfg.SetDefault("reprocess.script", DefaultReprocessScript)
	viperCfg.SetDefault("reprocess.resolution", DefaultReprocessResolution)
	viperCfg.SetDefault("reprocess.i_sig_cut", DefaultReprocessISigCut)
	viperCfg.SetDefault("reprocess.template_host", DefaultReprocessTemplateHost)
	viperCfg.SetDefault("reprocess.autoproc", DefaultReprocessAutoProc)
	viperCfg.SetDefault("reprocess.anom", DefaultReprocessAnom)
	viperCfg.SetDefault("reprocess.skipdone", DefaultReprocessSkipDone)
	viperCfg.SetDefault("reprocess.grace", DefaultReprocessGrace)

	viperCfg.SetDefault("plot.dpi", DefaultPlotDPI)
	viperCfg.SetDefault("plot.theme", DefaultPlotTheme)
	viperCfg.SetDefault("plot.bins", DefaultPlotBins)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", DefaultLoggingJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultTelemetryOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultTelemetryOTLPInsecure)
	viperCfg.SetDefault("telemetry.metrics_addr", DefaultTelemetryMetricsAddr)
}
