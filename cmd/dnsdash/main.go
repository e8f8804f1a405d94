package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jaxxstorm/dnsdash/internal/apiclient"
	"github.com/jaxxstorm/dnsdash/internal/config"
	"github.com/jaxxstorm/dnsdash/internal/metrics"
	"github.com/jaxxstorm/dnsdash/internal/model"
	"github.com/jaxxstorm/dnsdash/internal/output"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var Version = "dev"

// errVerdict makes the process exit 2 without printing anything further.
var errVerdict = errors.New("resolver verdict is not CORRECT")

type Globals struct {
	API         string          `name:"api" env:"DNSDASH_API" default:"http://localhost:5000" help:"Control API base URL."`
	SocksProxy  string          `env:"DNSDASH_SOCKS_PROXY" help:"Route API traffic through a SOCKS5 proxy (socks5://host:port)."`
	Output      string          `enum:"pretty,json" default:"pretty" help:"Output format."`
	Timeout     time.Duration   `default:"30s" help:"Deadline for one-shot commands."`
	MetricsAddr string          `env:"DNSDASH_METRICS_ADDR" help:"Serve Prometheus metrics on this address (e.g. :9090)."`
	Verbose     bool            `help:"Enable verbose logging."`
	Debug       bool            `help:"Enable debug logging (includes request IDs and bodies)."`
	Config      kong.ConfigFlag `help:"Load flag defaults from a TOML file."`
}

type CLI struct {
	Globals `embed:""`

	Watch        WatchCmd        `cmd:"" help:"Live dashboard: poll the lab and drive it from the keyboard."`
	Status       StatusCmd       `cmd:"" help:"Print resolver, resolution and attack state once."`
	Toggle       ToggleCmd       `cmd:"" help:"Enable, disable or flip DNSSEC validation."`
	Attack       AttackCmd       `cmd:"" help:"Start, stop or inspect the attacker."`
	ClearCache   ClearCacheCmd   `cmd:"" name:"clear-cache" help:"Flush a resolver cache."`
	Dig          DigCmd          `cmd:"" help:"Show the backend's dig output for a resolver."`
	Capture      CaptureCmd      `cmd:"" help:"Show the latest packet capture for a resolver."`
	Logs         LogsCmd         `cmd:"" help:"Show resolver logs."`
	Plot         PlotCmd         `cmd:"" help:"Show plot data."`
	Website      WebsiteCmd      `cmd:"" help:"Print the proxied website URL."`
	Health       HealthCmd       `cmd:"" help:"Check the control API."`
	DNSSECStatus DNSSECStatusCmd `cmd:"" name:"dnssec-status" help:"Show DNSSEC validation status."`
	Probe        ProbeCmd        `cmd:"" help:"Query lab resolvers directly and judge their answers."`
	History      HistoryCmd      `cmd:"" help:"Summarize resolutions recorded by watch --history."`
	Version      VersionCmd      `cmd:"" help:"Print version."`
}

type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Println(Version)
	return nil
}

// app is what every command's Run receives.
type app struct {
	globals *Globals
	logger  *zap.Logger
	metrics *metrics.Prometheus
}

func main() {
	if err := loadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("dnsdash"),
		kong.Description("Operator dashboard for the DNS cache-poisoning lab."),
		kong.UsageOnError(),
		kong.Configuration(config.TOML, config.DefaultPath()),
	)

	a := &app{globals: &cli.Globals}
	if ctx.Selected() == nil || ctx.Selected().Name != "watch" {
		logger, err := newLogger(cli.Verbose, cli.Debug, "")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		a.logger = logger
		defer func() { _ = logger.Sync() }()
	}

	err := ctx.Run(a)
	if errors.Is(err, errVerdict) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

// newLogger writes to stderr unless logFile is set.
func newLogger(verbose bool, debug bool, logFile string) (*zap.Logger, error) {
	var cfg zap.Config
	switch {
	case debug:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case verbose:
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	if logFile != "" {
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	}
	return cfg.Build()
}

// client builds the API client and, when --metrics-addr is set, starts the
// metrics endpoint it reports to.
func (a *app) client() (*apiclient.Client, error) {
	httpClient, err := apiclient.NewHTTPClient(a.globals.SocksProxy)
	if err != nil {
		return nil, err
	}
	opts := apiclient.Options{
		BaseURL:    a.globals.API,
		HTTPClient: httpClient,
		UserAgent:  "dnsdash/" + Version,
		Logger:     a.logger,
	}
	if a.globals.MetricsAddr != "" && a.metrics == nil {
		a.metrics = metrics.NewPrometheus()
		a.metrics.Serve(a.globals.MetricsAddr, a.logger)
	}
	if a.metrics != nil {
		opts.Metrics = a.metrics
	}
	return apiclient.New(opts), nil
}

// commandContext is bounded by --timeout and cancelled on SIGINT/SIGTERM.
func (a *app) commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, a.globals.Timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// mode returns the explicit mode, or the one implied by the backend's current
// DNSSEC setting.
func (a *app) mode(ctx context.Context, c *apiclient.Client, explicit string) (model.Mode, error) {
	if explicit != "" {
		return model.ParseMode(explicit)
	}
	info, err := c.CurrentResolver(ctx)
	if err != nil {
		return "", err
	}
	return model.ModeFor(info.DNSSECEnabled), nil
}

// emit prints v as JSON, or the pretty rendering when that is selected.
func (a *app) emit(v any, pretty func() string) error {
	if a.globals.Output == "json" || pretty == nil {
		rendered, err := output.RenderJSON(v)
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	}
	fmt.Println(pretty())
	return nil
}
