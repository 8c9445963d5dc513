// Package config loads wordstat.yaml and its local override.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/go-scripts/wordstat/pkg/common"
	"github.com/go-scripts/wordstat/pkg/extract"
	"github.com/go-scripts/wordstat/pkg/gateway"
)

// DefaultPath is where the CLI looks for configuration.
const DefaultPath = "wordstat.yaml"

// Config is the whole tool configuration. Boolean switches default to
// false because the local override can only turn them on.
type Config struct {
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	SummaryJSON string `yaml:"summary_json"`
	History     string `yaml:"history"`
	DumpDir     string `yaml:"dump_dir"`
	Placeholder string `yaml:"placeholder"`

	Gateway Gateway `yaml:"gateway"`
	Extract Extract `yaml:"extract"`
}

type Gateway struct {
	// Strategy is auto, browser or http.
	Strategy  string `yaml:"strategy"`
	BaseURL   string `yaml:"base_url"`
	Region    string `yaml:"region"`
	View      string `yaml:"view"`
	UserAgent string `yaml:"user_agent"`

	Headless         bool          `yaml:"headless"`
	ExecPath         string        `yaml:"exec_path"`
	LocalBinaries    []string      `yaml:"local_binaries"`
	RemoteURL        string        `yaml:"remote_url"`
	ProfileDir       string        `yaml:"profile_dir"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	Countdown        time.Duration `yaml:"countdown"`
	SkipRetryPrompt  bool          `yaml:"skip_retry_prompt"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	CloudflareBypass bool          `yaml:"cloudflare_bypass"`
}

// Extract overrides parts of the extraction rules. Empty fields keep the
// built-in rules.
type Extract struct {
	Selectors         []string            `yaml:"selectors"`
	HeadingSelector   string              `yaml:"heading_selector"`
	HeadingPhrases    []string            `yaml:"heading_phrases"`
	Paths             []extract.PathQuery `yaml:"paths"`
	Patterns          []string            `yaml:"patterns"`
	RawPatterns       []string            `yaml:"raw_patterns"`
	RenderedThreshold uint64              `yaml:"rendered_threshold"`
	RawThreshold      uint64              `yaml:"raw_threshold"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	opts := gateway.DefaultOptions()
	return Config{
		Input:       "queries.txt",
		Output:      "wordstat_report.xlsx",
		Placeholder: "N/A",
		Gateway: Gateway{
			Strategy:      opts.Strategy,
			BaseURL:       common.DefaultBaseURL,
			Region:        opts.Lookup.Region,
			View:          opts.Lookup.View,
			UserAgent:     opts.UserAgent,
			LocalBinaries: opts.LocalBinaries,
			FetchTimeout:  opts.FetchTimeout,
			Countdown:     opts.Countdown,
			HTTPTimeout:   opts.HTTPTimeout,
		},
	}
}

// Load merges, in increasing priority, the defaults, path and
// <name>.local.<ext> next to it. Missing files are skipped.
func Load(path string) (Config, error) {
	cfg := Default()

	for _, p := range []string{path, localPath(path)} {
		override, found, err := readFile(p)
		if err != nil {
			return Config{}, err
		}
		if !found {
			continue
		}
		if err := mergo.Merge(&cfg, override, mergo.WithOverride); err != nil {
			return Config{}, fmt.Errorf("failed to merge %s: %w", p, err)
		}
		log.Debug("loaded config", "path", p)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func localPath(path string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+".local"+ext)
}

func readFile(path string) (Config, bool, error) {
	var out Config
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, false, nil
	}
	if err != nil {
		return out, false, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return out, true, nil
}

// Validate checks values that would only fail later in the run.
func (c Config) Validate() error {
	switch strings.ToLower(c.Gateway.Strategy) {
	case "auto", "browser", "http":
	default:
		return fmt.Errorf("gateway.strategy must be auto, browser or http, got %q", c.Gateway.Strategy)
	}
	if c.Output == "" {
		return errors.New("output path is empty")
	}
	if _, err := c.Extract.Rules(); err != nil {
		return err
	}
	return nil
}

// GatewayOptions converts the gateway section.
func (c Config) GatewayOptions() gateway.Options {
	g := c.Gateway
	lookup := common.NewLookupURL(g.BaseURL)
	if g.Region != "" {
		lookup.Region = g.Region
	}
	if g.View != "" {
		lookup.View = g.View
	}
	return gateway.Options{
		Strategy:         g.Strategy,
		Lookup:           lookup,
		UserAgent:        g.UserAgent,
		Headless:         g.Headless,
		ExecPath:         g.ExecPath,
		LocalBinaries:    g.LocalBinaries,
		RemoteURL:        g.RemoteURL,
		ProfileDir:       g.ProfileDir,
		FetchTimeout:     g.FetchTimeout,
		Countdown:        g.Countdown,
		SkipRetryPrompt:  g.SkipRetryPrompt,
		HTTPTimeout:      g.HTTPTimeout,
		CloudflareBypass: g.CloudflareBypass,
	}
}

// Lookup returns the URL builder for report links.
func (c Config) Lookup() common.LookupURL {
	return c.GatewayOptions().Lookup
}

// Rules applies the overrides to the built-in extraction rules.
func (e Extract) Rules() (extract.Rules, error) {
	rules := extract.DefaultRules()
	if len(e.Selectors) > 0 {
		rules.Selectors = e.Selectors
	}
	if e.HeadingSelector != "" {
		rules.HeadingSelector = e.HeadingSelector
	}
	if len(e.HeadingPhrases) > 0 {
		rules.HeadingPhrases = e.HeadingPhrases
	}
	if len(e.Paths) > 0 {
		rules.Paths = e.Paths
	}
	if len(e.Patterns) > 0 {
		patterns, err := extract.CompilePatterns(e.Patterns)
		if err != nil {
			return extract.Rules{}, fmt.Errorf("extract.patterns: %w", err)
		}
		rules.Patterns = patterns
	}
	if len(e.RawPatterns) > 0 {
		patterns, err := extract.CompilePatterns(e.RawPatterns)
		if err != nil {
			return extract.Rules{}, fmt.Errorf("extract.raw_patterns: %w", err)
		}
		rules.RawPatterns = patterns
	}
	if e.RenderedThreshold > 0 {
		rules.RenderedThreshold = e.RenderedThreshold
	}
	if e.RawThreshold > 0 {
		rules.RawThreshold = e.RawThreshold
	}
	return rules, nil
}
