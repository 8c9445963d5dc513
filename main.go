package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/wordstat/internal/config"
	"github.com/go-scripts/wordstat/internal/input"
	"github.com/go-scripts/wordstat/internal/progress"
	"github.com/go-scripts/wordstat/internal/runner"
	"github.com/go-scripts/wordstat/internal/store"
	"github.com/go-scripts/wordstat/internal/writer"
	"github.com/go-scripts/wordstat/pkg/common"
	"github.com/go-scripts/wordstat/pkg/extract"
	"github.com/go-scripts/wordstat/pkg/gateway"
	"github.com/go-scripts/wordstat/ui"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

// CLIFlags override values from the configuration file.
type CLIFlags struct {
	Config      string `help:"Path to configuration file" default:"wordstat.yaml"`
	Input       string `help:"Query list, one per line" short:"i"`
	Output      string `help:"Path to the .xlsx report" short:"o"`
	HTTP        bool   `help:"Use plain HTTP requests instead of a browser" name:"http"`
	Headless    bool   `help:"Run the browser without a window"`
	SummaryJSON string `help:"Also write results as JSON to this path" name:"summary-json"`
	History     string `help:"SQLite file recording every run"`
	DumpDir     string `help:"Save every fetched page into this directory" name:"dump-dir"`
	Browse      bool   `help:"Open the interactive results browser after the run"`
	Debug       bool   `help:"Enable debug logging" default:"false"`
}

// apply copies the flags that were set into cfg.
func (f CLIFlags) apply(cfg *config.Config) {
	if f.Input != "" {
		cfg.Input = f.Input
	}
	if f.Output != "" {
		cfg.Output = f.Output
	}
	if f.HTTP {
		cfg.Gateway.Strategy = "http"
	}
	if f.Headless {
		cfg.Gateway.Headless = true
	}
	if f.SummaryJSON != "" {
		cfg.SummaryJSON = f.SummaryJSON
	}
	if f.History != "" {
		cfg.History = f.History
	}
	if f.DumpDir != "" {
		cfg.DumpDir = f.DumpDir
	}
}

// openGateway is replaced in tests.
var openGateway = gateway.Open

// app holds what one invocation needs besides the flags.
type app struct {
	flags  CLIFlags
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
	clock  runner.Clock
	browse func(title string, results common.ResultTable, placeholder string) error
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var flags CLIFlags
	parser, err := kong.New(&flags,
		kong.Name("wordstat"),
		kong.Description("Collect Yandex Wordstat frequencies for a list of queries."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating parser: %v\n", err)
		return exitFailure
	}
	if _, err := parser.Parse(args); err != nil {
		fmt.Fprintf(stderr, "Error parsing flags: %v\n", err)
		return exitFailure
	}

	log.SetOutput(stderr)
	if flags.Debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(flags.Config)
	if err != nil {
		log.Error("Error loading configuration", "err", err)
		return exitFailure
	}
	flags.apply(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		flags:  flags,
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
		clock:  runner.RealClock,
		browse: ui.Browse,
	}
	return a.execute(ctx)
}

func (a *app) execute(ctx context.Context) int {
	queries, err := input.ReadFile(a.cfg.Input)
	if err != nil {
		log.Error("Cannot read queries", "path", a.cfg.Input, "err", err)
		return exitFailure
	}
	log.Info("Loaded queries", "path", a.cfg.Input, "count", len(queries))

	rules, err := a.cfg.Extract.Rules()
	if err != nil {
		log.Error("Invalid extraction rules", "err", err)
		return exitFailure
	}

	gw, err := openGateway(a.cfg.GatewayOptions())
	if err != nil {
		log.Error("No gateway available", "err", err)
		return exitFailure
	}
	defer func() {
		if err := gw.Close(); err != nil {
			log.Warn("Failed to close gateway", "err", err)
		}
	}()

	opts := []runner.Option{runner.WithClock(a.clock)}
	tracker := progress.NewWithWriter(a.stderr)
	opts = append(opts, runner.WithProgress(tracker))
	if a.cfg.DumpDir != "" {
		dump, err := writer.NewPageDump(a.cfg.DumpDir)
		if err != nil {
			log.Error("Cannot create dump directory", "dir", a.cfg.DumpDir, "err", err)
			return exitFailure
		}
		opts = append(opts, runner.WithDumper(dump))
	}

	started := time.Now()
	table, runErr := runner.New(gw, extract.New(rules), opts...).Run(ctx, queries)
	tracker.Done()

	a.saveHistory(started, gw, table, runErr)

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		log.Warn("Interrupted, no report written")
		return exitInterrupted
	case errors.Is(runErr, gateway.ErrUnavailable):
		log.Error("Service unavailable, run aborted", "err", runErr)
		return exitFailure
	default:
		log.Error("Run aborted", "err", runErr)
		return exitFailure
	}

	code := exitOK
	report := writer.NewReport(a.cfg.Lookup())
	if a.cfg.Placeholder != "" {
		report.Placeholder = a.cfg.Placeholder
	}
	if err := report.Write(a.cfg.Output, table); err != nil {
		log.Error("Failed to write report", "path", a.cfg.Output, "err", err)
		code = exitFailure
	} else {
		log.Info("Report saved", "path", a.cfg.Output)
	}

	if a.cfg.SummaryJSON != "" {
		if err := writer.WriteSummary(a.cfg.SummaryJSON, table); err != nil {
			log.Error("Failed to write summary", "path", a.cfg.SummaryJSON, "err", err)
			code = exitFailure
		}
	}

	ui.RenderSummary(a.stdout, table, report.Placeholder)

	if a.flags.Browse {
		if err := a.browse("Wordstat results", table, report.Placeholder); err != nil {
			log.Error("Results browser failed", "err", err)
		}
	}
	return code
}

// saveHistory records the run when a history file is configured. A
// cancelled run is marked interrupted; any other runErr is kept as the
// abort reason. Failures are logged only.
func (a *app) saveHistory(started time.Time, gw gateway.Gateway, table common.ResultTable, runErr error) {
	if a.cfg.History == "" {
		return
	}
	s, err := store.Open(a.cfg.History)
	if err != nil {
		log.Warn("Cannot open history", "path", a.cfg.History, "err", err)
		return
	}
	defer s.Close()

	// The run context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	run := store.Run{
		StartedAt:   started,
		Gateway:     gw.Kind().String(),
		Authorized:  gw.State().Authorized,
		Interrupted: errors.Is(runErr, context.Canceled),
	}
	if runErr != nil && !run.Interrupted {
		run.Error = runErr.Error()
	}
	id, err := s.SaveRun(ctx, run, table)
	if err != nil {
		log.Warn("Failed to save history", "err", err)
		return
	}
	log.Debug("Saved run", "id", id, "path", s.Path())
}
