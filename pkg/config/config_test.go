package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/xdsref/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".xdsref.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, config.DefaultScanPattern, cfg.Scan.Pattern)
	assert.Equal(t, config.DefaultRankMetricColumn, cfg.Rank.MetricColumn)
	assert.Equal(t, config.DefaultReprocessGrace, cfg.Reprocess.Grace)
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
scan:
  pattern: XDS_ASCII.HKL
stats:
  skip_malformed: true
rank:
  workers: 4
  top: 3
reprocess:
  script: /opt/mcr/reprocess.sh
  anom: true
  grace: 2s
plot:
  dpi: 300
  theme: dark
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "XDS_ASCII.HKL", cfg.Scan.Pattern)
	assert.True(t, cfg.Stats.SkipMalformed)
	assert.Equal(t, 4, cfg.Rank.Workers)
	assert.Equal(t, 3, cfg.Rank.Top)
	assert.Equal(t, "/opt/mcr/reprocess.sh", cfg.Reprocess.Script)
	assert.True(t, cfg.Reprocess.Anom)
	assert.Equal(t, 2*time.Second, cfg.Reprocess.Grace)
	assert.Equal(t, 300, cfg.Plot.DPI)
	assert.Equal(t, "dark", cfg.Plot.Theme)
	assert.Equal(t, config.DefaultReprocessTemplateHost, cfg.Reprocess.TemplateHost)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "pattern with path", content: "scan:\n  pattern: a/CORRECT.LP\n", want: config.ErrInvalidPattern},
		{name: "metric column", content: "rank:\n  metric_column: 20\n", want: config.ErrInvalidMetricColumn},
		{name: "workers", content: "rank:\n  workers: -1\n", want: config.ErrInvalidWorkers},
		{name: "top", content: "rank:\n  top: 0\n", want: config.ErrInvalidTop},
		{name: "dpi", content: "plot:\n  dpi: 5\n", want: config.ErrInvalidDPI},
		{name: "theme", content: "plot:\n  theme: neon\n", want: config.ErrInvalidTheme},
		{name: "bins", content: "plot:\n  bins: 0\n", want: config.ErrInvalidBins},
		{name: "log level", content: "logging:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "output", content: "reference:\n  output: \"\"\n", want: config.ErrInvalidOutput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tc.content))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "scan: [unclosed"))
	require.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("XDSREF_RANK_TOP", "7")

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Rank.Top)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("XDSREF_PLOT_DPI=250\n"), 0o600))

	t.Setenv("XDSREF_PLOT_DPI", "")
	require.NoError(t, os.Unsetenv("XDSREF_PLOT_DPI"))

	require.NoError(t, config.LoadEnv(envPath))
	assert.Equal(t, "250", os.Getenv("XDSREF_PLOT_DPI"))

	require.NoError(t, config.LoadEnv(filepath.Join(dir, "missing.env")))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := config.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())

	_, err = config.ParseLevel("verbose")
	require.ErrorIs(t, err, config.ErrInvalidLogLevel)
}
