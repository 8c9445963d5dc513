// Package runner drives one batch of lookups through a gateway.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/wordstat/internal/queue"
	"github.com/go-scripts/wordstat/pkg/common"
	"github.com/go-scripts/wordstat/pkg/extract"
	"github.com/go-scripts/wordstat/pkg/gateway"
)

// Clock paces the run.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock sleeps on the wall clock.
var RealClock Clock = realClock{}

// Progress receives one Start and one Advance per lookup.
type Progress interface {
	SetTotal(total int)
	Start(label string)
	Advance()
}

// PageDumper stores fetched pages. n counts lookups from 1.
type PageDumper interface {
	Dump(n int, job queue.Job, page extract.Page) error
}

// Runner looks up every variant of every query, one at a time.
type Runner struct {
	gw        gateway.Gateway
	extractor *extract.Extractor
	clock     Clock
	progress  Progress
	dumper    PageDumper
	logger    *log.Logger
}

type Option func(*Runner)

func WithClock(c Clock) Option { return func(r *Runner) { r.clock = c } }

func WithProgress(p Progress) Option { return func(r *Runner) { r.progress = p } }

func WithDumper(d PageDumper) Option { return func(r *Runner) { r.dumper = d } }

// New returns a runner over gw.
func New(gw gateway.Gateway, extractor *extract.Extractor, opts ...Option) *Runner {
	r := &Runner{
		gw:        gw,
		extractor: extractor,
		clock:     RealClock,
		logger:    log.WithPrefix("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run returns one result per query, in input order. Lookups that fail
// leave their cell absent and the run goes on. The table is returned in
// full even when the run stops early on cancellation or ErrUnavailable.
func (r *Runner) Run(ctx context.Context, queries []string) (common.ResultTable, error) {
	table := common.NewResultTable(queries)

	if a, ok := r.gw.(gateway.Authorizer); ok {
		if a.Authorize(ctx) {
			r.logger.Info("authorized, using short delays")
		} else {
			r.logger.Warn("not authorized, using long delays")
		}
	}
	state := r.gw.State()

	q := queue.New(queries)
	r.logger.Info("starting lookups", "queries", len(queries), "lookups", q.Total(), "delay", state.Delay, "gateway", r.gw.Kind())
	if r.progress != nil {
		r.progress.SetTotal(q.Total())
	}

	for {
		job, ok := q.Next()
		if !ok {
			break
		}
		if q.Taken() > 1 {
			if err := r.clock.Sleep(ctx, state.Delay); err != nil {
				return table, err
			}
		}
		if err := ctx.Err(); err != nil {
			return table, err
		}

		if r.progress != nil {
			r.progress.Start(fmt.Sprintf("%s (%s)", job.Query, job.Variant))
		}
		f, err := r.lookup(ctx, q.Taken(), job)
		if err != nil {
			return table, err
		}
		table[job.Position].Set(job.Variant, f)
		if r.progress != nil {
			r.progress.Advance()
		}
	}

	r.logger.Info("lookups finished", "found", table.Found(), "total", len(table)*len(common.Variants()))
	return table, nil
}

// lookup fetches and extracts one job. Only errors that end the run are
// returned.
func (r *Runner) lookup(ctx context.Context, n int, job queue.Job) (common.Frequency, error) {
	formatted := common.Format(job.Query, job.Variant)

	page, err := r.gw.Fetch(ctx, formatted)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return common.None(), err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return common.None(), ctxErr
		}
		r.logger.Error("lookup failed", "query", job.Query, "variant", job.Variant, "stage", "fetch", "err", err)
		return common.None(), nil
	}

	if r.dumper != nil {
		if err := r.dumper.Dump(n, job, page); err != nil {
			r.logger.Warn("failed to dump page", "query", job.Query, "variant", job.Variant, "err", err)
		}
	}

	m := r.extractor.Extract(ctx, page)
	if !m.Frequency.Found() {
		r.logger.Error("lookup failed", "query", job.Query, "variant", job.Variant, "stage", "extract", "err", "no frequency on page")
		return common.None(), nil
	}
	r.logger.Debug("lookup done", "query", job.Query, "variant", job.Variant, "value", m.Frequency, "strategy", m.Strategy)
	return m.Frequency, nil
}
