// Package config provides YAML-based configuration for xdsref.
package config

import (
	"time"

	"github.com/Sumatoshi-tech/xdsref/pkg/xds"
)

// Scan defaults.
const (
	DefaultScanPattern        = xds.CorrectLP
	DefaultStatsSkipMalformed = false
)

// Ranking defaults.
const (
	DefaultRankPattern      = xds.CorrectLP
	DefaultRankMetricColumn = 8
	DefaultRankWorkers      = 0
	DefaultRankTop          = 10
)

// Reference defaults.
const (
	DefaultReferenceOutput = xds.ReferenceName
	DefaultReferenceSource = ""
)

// Reprocessing defaults.
const (
	DefaultReprocessScript       = ""
	DefaultReprocessResolution   = "1.4"
	DefaultReprocessISigCut      = "1"
	DefaultReprocessTemplateHost = "id232control"
	DefaultReprocessAutoProc     = false
	DefaultReprocessAnom         = false
	DefaultReprocessSkipDone     = false
	DefaultReprocessGrace        = 5 * time.Second
)

// Plot defaults.
const (
	DefaultPlotDPI   = 100
	DefaultPlotTheme = "light"
	DefaultPlotBins  = 100
)

// Logging and telemetry defaults.
const (
	DefaultLoggingLevel          = "info"
	DefaultLoggingJSON           = false
	DefaultTelemetryOTLPEndpoint = ""
	DefaultTelemetryOTLPInsecure = false
	DefaultTelemetryMetricsAddr  = ""
)

// DefaultEnvFile is the dotenv file read before the environment.
const DefaultEnvFile = ".env"
