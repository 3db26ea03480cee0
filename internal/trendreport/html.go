package trendreport

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a generated Markdown report to an HTML fragment for
// in-dashboard preview.
func RenderHTML(report string) (string, error) {
	var out strings.Builder
	if err := markdown.Convert([]byte(report), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}
