package output

import (
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/scrapekit/internal/scraper"
	urlutil "github.com/law-makers/scrapekit/internal/utils/url"
)

// SaveMarkdown writes the result as a Markdown table.
func SaveMarkdown(r *scraper.Result, pageURL, filepath string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", pageURL)
	sb.WriteString("| Selector | Value |\n|---|---|\n")
	r.Each(func(selector string, v scraper.Value) {
		fmt.Fprintf(&sb, "| `%s` | %s |\n", escapeCell(selector), escapeCell(v.String()))
	})
	return os.WriteFile(filepath, []byte(sb.String()), 0644)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// ElementMarkdown converts an element's outer HTML to Markdown, resolving
// links against baseURL.
func ElementMarkdown(htmlContent, baseURL string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			href, exists := selec.Attr("href")
			if !exists {
				return nil
			}

			resolved := urlutil.ResolveURL(baseURL, href)
			title, hasTitle := selec.Attr("title")
			var titlePart string
			if hasTitle {
				titlePart = fmt.Sprintf(" %q", title)
			}
			str := fmt.Sprintf("[%s](%s)%s", strings.TrimSpace(selec.Text()), resolved, titlePart)
			return &str
		},
	})

	cleaned, err := CleanHTML(htmlContent)
	if err != nil {
		return "", err
	}
	return converter.ConvertString(cleaned)
}
