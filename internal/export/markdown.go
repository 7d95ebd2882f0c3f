// internal/export/markdown.go
package export

import (
	"fmt"
	"os"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"

	urlutil "github.com/wpitallo/crawlee/internal/utils/url"
	"github.com/wpitallo/crawlee/pkg/models"
)

// SaveMarkdown renders records into one Markdown document at path. Each
// record becomes a section headed by its title or URL, its fields as a list,
// and its HTML capture (when present) converted to Markdown with links
// resolved against the record's URL.
func SaveMarkdown(records []models.Record, path string) error {
	var sb strings.Builder

	for i, rec := range records {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}

		sb.WriteString("# " + recordHeading(rec, i) + "\n\n")

		var keys []string
		for k := range rec {
			if k == htmlKey || k == "title" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", k, formatValue(rec[k])))
		}
		if len(keys) > 0 {
			sb.WriteString("\n")
		}

		if htmlStr, ok := rec[htmlKey].(string); ok && htmlStr != "" {
			body, err := convertHTML(htmlStr, formatValue(rec["url"]))
			if err != nil {
				return err
			}
			sb.WriteString(body + "\n")
		}
	}

	return os.WriteFile(path, []byte(sb.String()), 0644)
}

func recordHeading(rec models.Record, index int) string {
	if title, ok := rec["title"].(string); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	if u, ok := rec["url"].(string); ok && u != "" {
		return u
	}
	return fmt.Sprintf("Record %d", index+1)
}

// convertHTML converts sanitized markup to Markdown, resolving relative
// hrefs against base.
func convertHTML(htmlStr, base string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			href, exists := selec.Attr("href")
			if !exists {
				return nil
			}

			resolved := href
			if base != "" {
				resolved = urlutil.ResolveURL(base, href)
			}
			var titlePart string
			if title, ok := selec.Attr("title"); ok {
				titlePart = fmt.Sprintf(" %q", title)
			}
			str := fmt.Sprintf("[%s](%s%s)", selec.Text(), resolved, titlePart)
			return &str
		},
	})

	cleaned, err := CleanHTML(htmlStr)
	if err != nil {
		return "", err
	}

	return converter.ConvertString(cleaned)
}
