package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/xdsref/pkg/config"
	"github.com/Sumatoshi-tech/xdsref/pkg/observability"
	"github.com/Sumatoshi-tech/xdsref/pkg/report"
	"github.com/Sumatoshi-tech/xdsref/pkg/session"
	"github.com/Sumatoshi-tech/xdsref/pkg/version"
)

// App is the configured environment a command runs in.
type App struct {
	Config   *config.Config
	Root     string
	Logger   *slog.Logger
	Tracer   trace.Tracer
	RED      *observability.REDMetrics
	Pipeline *observability.PipelineMetrics
	Out      io.Writer
	Err      io.Writer
	Render   *report.Renderer
	Quiet    bool

	shutdown   func(context.Context) error
	metricsSrv *observability.MetricsServer
}

func newApp(cmd *cobra.Command, flags globalFlags, initObs initFunc) (*App, error) {
	envErr := config.LoadEnv(config.DefaultEnvFile)
	if envErr != nil {
		return nil, envErr
	}

	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.pattern != "" {
		cfg.Scan.Pattern = flags.pattern
	}

	root, err := filepath.Abs(flags.dir)
	if err != nil {
		return nil, fmt.Errorf("resolve --dir: %w", err)
	}

	obsCfg, err := observabilityConfig(cmd, cfg, flags)
	if err != nil {
		return nil, err
	}

	providers, err := initObs(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	app := &App{
		Config:   cfg,
		Root:     root,
		Logger:   providers.Logger,
		Tracer:   providers.Tracer,
		Out:      cmd.OutOrStdout(),
		Err:      cmd.ErrOrStderr(),
		Render:   report.NewRenderer(cmd.OutOrStdout(), flags.noColor),
		Quiet:    flags.quiet,
		shutdown: providers.Shutdown,
	}

	metricsErr := app.initMetrics(providers, metricsAddr(cfg, flags))
	if metricsErr != nil {
		return nil, errors.Join(metricsErr, app.Close(context.Background()))
	}

	return app, nil
}

func observabilityConfig(cmd *cobra.Command, cfg *config.Config, flags globalFlags) (observability.Config, error) {
	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return observability.Config{}, err
	}

	switch {
	case flags.verbose:
		level = slog.LevelDebug
	case flags.quiet:
		level = slog.LevelWarn
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.Prometheus = metricsAddr(cfg, flags) != ""
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON || flags.logJSON
	obsCfg.LogWriter = cmd.ErrOrStderr()

	if cmd.Name() == mcpCommandName {
		obsCfg.Mode = observability.ModeMCP
		obsCfg.LogJSON = true
	}

	return obsCfg, nil
}

func metricsAddr(cfg *config.Config, flags globalFlags) string {
	if flags.metricsAddr != "" {
		return flags.metricsAddr
	}

	return cfg.Telemetry.MetricsAddr
}

func (a *App) initMetrics(providers observability.Providers, addr string) error {
	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return err
	}

	pipeline, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return err
	}

	a.RED = red
	a.Pipeline = pipeline

	if addr == "" || providers.MetricsHandler == nil {
		return nil
	}

	srv, err := observability.StartMetricsServer(addr, providers.MetricsHandler, a.Logger)
	if err != nil {
		return err
	}

	a.metricsSrv = srv

	return nil
}

// Close stops the metrics endpoint and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.metricsSrv != nil {
		errs = append(errs, a.metricsSrv.Close(ctx))
	}

	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}

	return errors.Join(errs...)
}

// observe runs fn inside a span named op and records RED metrics for it.
func (a *App) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := a.Tracer.Start(ctx, "xdsref."+op)
	defer span.End()

	err := a.RED.Observe(ctx, op, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

// session loads the saved selection of the processing root.
func (a *App) session() (*session.Session, error) {
	return session.Load(a.Root, a.Config.Scan.Pattern)
}

// referenceTarget resolves reference.output against the processing root.
func (a *App) referenceTarget() string {
	out := a.Config.Reference.Output
	if filepath.IsAbs(out) {
		return out
	}

	return filepath.Join(a.Root, out)
}

func (a *App) success(format string, args ...any) {
	if a.Quiet {
		return
	}

	a.Render.Success(format, args...)
}

func (a *App) warn(format string, args ...any) {
	a.Render.Warn(format, args...)
}
