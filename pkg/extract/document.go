package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Mode selects which strategies apply to a page.
type Mode int

const (
	// Rendered pages carry a queryable document and their source.
	Rendered Mode = iota
	// Raw pages only carry markup text.
	Raw
)

func (m Mode) String() string {
	if m == Raw {
		return "raw"
	}
	return "rendered"
}

// Document is a queryable page. Both methods return the trimmed text of
// every match in document order.
type Document interface {
	Select(ctx context.Context, selector string) ([]string, error)
	SelectPath(ctx context.Context, path PathQuery) ([]string, error)
}

// PathQuery selects elements by tag whose first direct text node contains
// every string in Contains.
type PathQuery struct {
	Tag      string   `yaml:"tag"`
	Contains []string `yaml:"contains"`
}

// XPath renders the query as an XPath 1.0 expression.
func (p PathQuery) XPath() string {
	tag := p.Tag
	if tag == "" {
		tag = "*"
	}
	if len(p.Contains) == 0 {
		return "//" + tag
	}
	conds := make([]string, len(p.Contains))
	for i, c := range p.Contains {
		conds[i] = fmt.Sprintf("contains(text(), %s)", xpathLiteral(c))
	}
	return "//" + tag + "[" + strings.Join(conds, " and ") + "]"
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// Page is one fetch result handed to the extractor.
type Page struct {
	Mode   Mode
	URL    string
	Title  string
	Doc    Document
	Markup string
}

// HTMLDocument is a Document over parsed markup.
type HTMLDocument struct {
	doc *goquery.Document
}

// NewHTMLDocument parses markup from r.
func NewHTMLDocument(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &HTMLDocument{doc: doc}, nil
}

// RenderedPage parses markup into a rendered-mode page.
func RenderedPage(markup string) (Page, error) {
	doc, err := NewHTMLDocument(strings.NewReader(markup))
	if err != nil {
		return Page{}, err
	}
	return Page{
		Mode:   Rendered,
		Title:  strings.TrimSpace(doc.doc.Find("title").First().Text()),
		Doc:    doc,
		Markup: markup,
	}, nil
}

// RawPage wraps markup without parsing it.
func RawPage(markup string) Page {
	return Page{Mode: Raw, Markup: markup}
}

func (d *HTMLDocument) Select(_ context.Context, selector string) ([]string, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	var texts []string
	d.doc.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(s.Text()))
	})
	return texts, nil
}

func (d *HTMLDocument) SelectPath(_ context.Context, path PathQuery) ([]string, error) {
	tag := path.Tag
	if tag == "" {
		tag = "*"
	}
	m, err := cascadia.Compile(tag)
	if err != nil {
		return nil, fmt.Errorf("invalid path tag %q: %w", tag, err)
	}

	var texts []string
	d.doc.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
		own := firstTextNode(s.Get(0))
		for _, c := range path.Contains {
			if !strings.Contains(own, c) {
				return
			}
		}
		texts = append(texts, strings.TrimSpace(s.Text()))
	})
	return texts, nil
}

// firstTextNode mirrors XPath's text() in a string context.
func firstTextNode(n *html.Node) string {
	if n == nil {
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			return c.Data
		}
	}
	return ""
}
