package report

import (
	"fmt"
	"os"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const htmlTitle = "Sprint replication report"

// RenderHTML converts markdown to a standalone HTML page.
func RenderHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(md)

	renderer := html.NewRenderer(html.RendererOptions{
		Title: htmlTitle,
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
	})
	return markdown.Render(doc, renderer)
}

// WriteHTML renders the report as HTML and writes it to path.
func WriteHTML(r *Report, path string) error {
	out := RenderHTML([]byte(Markdown(r)))
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write html report: %w", err)
	}
	return nil
}
