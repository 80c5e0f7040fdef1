package static

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/law-makers/scrapekit/internal/engine"
	"golang.org/x/net/html"
)

// findFirst returns the first node matching selector, evaluated as XPath or
// CSS depending on its shape.
func findFirst(doc *html.Node, selector string) (*html.Node, error) {
	if engine.IsXPath(selector) {
		nodes, err := htmlquery.QueryAll(doc, selector)
		if err != nil {
			return nil, engine.NewEngineError(engine.ErrCodeExtraction, "invalid XPath expression", err).
				WithDetail("selector", selector)
		}
		if len(nodes) == 0 {
			return nil, engine.NewEngineError(engine.ErrCodeNoMatch, "no element matches "+selector, nil)
		}
		return nodes[0], nil
	}

	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, engine.NewEngineError(engine.ErrCodeExtraction, "invalid CSS selector", err).
			WithDetail("selector", selector)
	}
	sel := goquery.NewDocumentFromNode(doc).FindMatcher(m)
	if sel.Length() == 0 {
		return nil, engine.NewEngineError(engine.ErrCodeNoMatch, "no element matches "+selector, nil)
	}
	return sel.Get(0), nil
}

func nodeText(n *html.Node) string {
	return strings.TrimSpace(htmlquery.InnerText(n))
}

func render(n *html.Node) string {
	return htmlquery.OutputHTML(n, true)
}

func isNoMatch(err error) bool {
	return errors.Is(err, engine.ErrNoMatch)
}
