package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	authTestQuery = "тест"
	authSettle    = 3 * time.Second
)

// Snapshot is what the login check reads from a page.
type Snapshot struct {
	Title  string
	URL    string
	Markup string
}

// QuickCheck reports whether the first load already shows the Wordstat
// interface without a login form.
func QuickCheck(snap Snapshot) bool {
	title := strings.ToLower(snap.Title)
	markup := strings.ToLower(snap.Markup)
	loginForm := strings.Contains(markup, "войти") && strings.Contains(markup, "login")
	return strings.Contains(title, "вордстат") && !loginForm
}

// Assessment counts the login indicators found on a page.
type Assessment struct {
	Positive int
	Negative int
}

// Authorized needs two positive indicators and no negative one.
func (a Assessment) Authorized() bool {
	return a.Positive >= 2 && a.Negative == 0
}

// Assess evaluates snap after the user had time to log in.
func Assess(snap Snapshot) Assessment {
	title := strings.ToLower(snap.Title)
	markup := strings.ToLower(snap.Markup)

	var a Assessment
	for _, hit := range []bool{
		strings.Contains(title, "вордстат"),
		strings.Contains(snap.URL, "wordstat"),
		strings.Contains(markup, "запросов"),
		strings.Contains(markup, "частота"),
	} {
		if hit {
			a.Positive++
		}
	}
	for _, hit := range []bool{
		strings.Contains(markup, "войти"),
		strings.Contains(markup, "login"),
		strings.Contains(markup, "авторизация"),
		strings.Contains(snap.URL, "passport.yandex"),
	} {
		if hit {
			a.Negative++
		}
	}
	return a
}

type pageProbe interface {
	Open(ctx context.Context, target string, settle time.Duration) (Snapshot, error)
	Reload(ctx context.Context, settle time.Duration) (Snapshot, error)
}

type authFlow struct {
	probe     pageProbe
	prompter  Prompter
	wait      func(ctx context.Context, d time.Duration) error
	testURL   string
	settle    time.Duration
	countdown time.Duration
	skipRetry bool
	logger    *log.Logger
}

// run repeats the login check until it succeeds or the user stops
// retrying. Any failure to load the page ends it unauthorized.
func (a *authFlow) run(ctx context.Context) bool {
	for {
		ok, err := a.attempt(ctx)
		if err != nil {
			a.logger.Error("authorization check failed", "err", err)
			return false
		}
		if ok {
			return true
		}
		a.logger.Warn("authorization failed, continuing will use longer delays")
		if a.skipRetry || ctx.Err() != nil {
			return false
		}
		if !a.prompter.Confirm("Retry authorization?") {
			return false
		}
	}
}

func (a *authFlow) attempt(ctx context.Context) (bool, error) {
	a.logger.Info("opening Wordstat", "url", a.testURL)
	snap, err := a.probe.Open(ctx, a.testURL, a.settle)
	if err != nil {
		return false, err
	}
	if QuickCheck(snap) {
		a.logger.Info("already logged in")
		return true, nil
	}

	a.logger.Warn("login required: sign in to your Yandex account in the browser window", "wait", a.countdown)
	if err := a.wait(ctx, a.countdown); err != nil {
		return false, err
	}

	snap, err = a.probe.Reload(ctx, a.settle)
	if err != nil {
		return false, err
	}
	as := Assess(snap)
	a.logger.Info("checked login", "url", snap.URL, "title", snap.Title, "positive", as.Positive, "negative", as.Negative)
	if as.Authorized() {
		a.logger.Info("authorization succeeded")
	}
	return as.Authorized(), nil
}
