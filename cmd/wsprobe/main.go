// Command wsprobe shows what every extraction strategy finds on one page,
// either a saved file or a live lookup.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/go-scripts/wordstat/internal/config"
	"github.com/go-scripts/wordstat/pkg/common"
	"github.com/go-scripts/wordstat/pkg/extract"
	"github.com/go-scripts/wordstat/pkg/gateway"
)

type CLIFlags struct {
	Config  string `help:"Path to configuration file" default:"wordstat.yaml"`
	File    string `help:"Saved page to inspect instead of fetching" short:"f" type:"existingfile"`
	Raw     bool   `help:"Treat the page as raw markup"`
	Query   string `help:"Query to look up" short:"q"`
	Variant string `help:"Query variant" enum:"loose,exact,exact-forced" default:"loose"`
	HTTP    bool   `help:"Fetch with plain HTTP requests" name:"http"`
	Debug   bool   `help:"Enable debug logging"`
}

var openGateway = gateway.Open

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var flags CLIFlags
	parser, err := kong.New(&flags,
		kong.Name("wsprobe"),
		kong.Description("Run every extraction strategy against one page."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating parser: %v\n", err)
		return 1
	}
	if _, err := parser.Parse(args); err != nil {
		fmt.Fprintf(stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	log.SetOutput(stderr)
	if flags.Debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(flags.Config)
	if err != nil {
		log.Error("Error loading configuration", "err", err)
		return 1
	}
	rules, err := cfg.Extract.Rules()
	if err != nil {
		log.Error("Invalid extraction rules", "err", err)
		return 1
	}
	extractor := extract.New(rules)

	if flags.File != "" {
		err = probeFile(ctx, extractor, flags.File, flags.Raw, stdout)
	} else {
		if flags.HTTP {
			cfg.Gateway.Strategy = "http"
		}
		err = probeQuery(ctx, extractor, cfg.GatewayOptions(), flags, stdout)
	}
	if err != nil {
		log.Error("Probe failed", "err", err)
		return 1
	}
	return 0
}

func probeFile(ctx context.Context, extractor *extract.Extractor, path string, raw bool, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}

	page := extract.RawPage(string(data))
	if !raw {
		if page, err = extract.RenderedPage(string(data)); err != nil {
			return err
		}
	}
	page.URL = path
	render(out, page, extractor.Explain(ctx, page))
	return nil
}

func probeQuery(ctx context.Context, extractor *extract.Extractor, opts gateway.Options, flags CLIFlags, out io.Writer) error {
	if flags.Query == "" {
		return errors.New("either --file or --query is required")
	}
	variant, ok := common.ParseVariant(flags.Variant)
	if !ok {
		return fmt.Errorf("unknown variant %q", flags.Variant)
	}

	gw, err := openGateway(opts)
	if err != nil {
		return err
	}
	defer gw.Close()

	if a, ok := gw.(gateway.Authorizer); ok {
		a.Authorize(ctx)
	}

	page, err := gw.Fetch(ctx, common.Format(flags.Query, variant))
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	render(out, page, extractor.Explain(ctx, page))
	return nil
}

func render(out io.Writer, page extract.Page, matches []extract.Match) {
	fmt.Fprintf(out, "%s page %s\n", page.Mode, page.URL)
	if page.Title != "" {
		fmt.Fprintf(out, "title: %s\n", page.Title)
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Strategy", "Frequency"})
	for _, m := range matches {
		t.AppendRow(table.Row{m.Strategy, m.Frequency.Or("-")})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
