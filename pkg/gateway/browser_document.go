package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/go-scripts/wordstat/pkg/extract"
)

// browserDocument queries the live DOM of the session tab. It is only valid
// until the tab navigates again.
type browserDocument struct {
	session *BrowserSession
}

// visibleText mirrors what a user sees: hidden nodes read as empty.
const visibleText = `
	const visibleText = el => {
		if (!el.getClientRects || el.getClientRects().length === 0) {
			return '';
		}
		return (el.innerText ?? el.textContent ?? '').trim();
	};
`

func (d *browserDocument) Select(ctx context.Context, selector string) ([]string, error) {
	js := fmt.Sprintf(`
	(() => {
		%s
		const texts = [];
		document.querySelectorAll(%q).forEach(el => texts.push(visibleText(el)));
		return JSON.stringify(texts);
	})()
	`, visibleText, selector)
	return d.eval(ctx, js)
}

func (d *browserDocument) SelectPath(ctx context.Context, path extract.PathQuery) ([]string, error) {
	js := fmt.Sprintf(`
	(() => {
		%s
		const snap = document.evaluate(%q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		const texts = [];
		for (let i = 0; i < snap.snapshotLength; i++) {
			texts.push(visibleText(snap.snapshotItem(i)));
		}
		return JSON.stringify(texts);
	})()
	`, visibleText, path.XPath())
	return d.eval(ctx, js)
}

func (d *browserDocument) eval(ctx context.Context, js string) ([]string, error) {
	actx, cancel := d.session.actionContext(ctx)
	defer cancel()

	var raw string
	if err := chromedp.Run(actx, chromedp.Evaluate(js, &raw)); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	var texts []string
	if err := json.Unmarshal([]byte(raw), &texts); err != nil {
		return nil, fmt.Errorf("failed to decode query result: %w", err)
	}
	return texts, nil
}
