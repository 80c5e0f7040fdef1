package dynamic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/law-makers/scrapekit/internal/engine"
)

// probe is what probeJS reports about the first match of a selector.
type probe struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
}

// probeJS builds an expression that locates the first node matching selector
// (XPath or CSS) and reports its text and markup. Invalid selectors throw.
func probeJS(selector string) string {
	quoted, _ := json.Marshal(selector)
	return fmt.Sprintf(`(function(sel, xpath) {
	const n = xpath
		? document.evaluate(sel, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue
		: document.querySelector(sel);
	if (!n) return {found: false, text: "", html: ""};
	const text = (typeof n.innerText === "string") ? n.innerText : n.textContent;
	const html = (n.nodeType === 1) ? n.outerHTML : (n.textContent || "");
	return {found: true, text: text || "", html: html};
})(%s, %t)`, quoted, engine.IsXPath(selector))
}

func (p probe) element(selector string) *engine.Element {
	return &engine.Element{Selector: selector, Text: strings.TrimSpace(p.Text), HTML: p.HTML}
}
