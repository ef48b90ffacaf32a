// Package export renders a tree to static artifacts (an HTML page, a
// markdown outline, SVG and PNG diagrams) and serves a live preview.
package export

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/arbor/pkg/view"
)

// PageOptions configures HTML page generation.
type PageOptions struct {
	Title  string
	Config view.Config
	Path   string // Output path, only used by SaveHTMLPage
}

// WriteHTMLPage writes a standalone page holding every document root.
func WriteHTMLPage(w io.Writer, doc *view.Document, opts PageOptions) error {
	if doc == nil {
		return fmt.Errorf("no document to export")
	}
	title := opts.Title
	if title == "" {
		title = "Tree"
	}

	var body strings.Builder
	if err := doc.WriteHTML(&body); err != nil {
		return err
	}
	_, err := io.WriteString(w, generatePage(title, pageCSS(opts.Config), body.String()))
	return err
}

// SaveHTMLPage writes the page to opts.Path, adding an .html extension
// when missing, and returns the path written.
func SaveHTMLPage(doc *view.Document, opts PageOptions) (string, error) {
	outputPath := opts.Path
	if outputPath == "" {
		outputPath = "tree.html"
	}
	if !strings.HasSuffix(strings.ToLower(outputPath), ".html") {
		outputPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".html"
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create dir: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return "", err
	}
	if err := WriteHTMLPage(f, doc, opts); err != nil {
		f.Close()
		return "", err
	}
	return outputPath, f.Close()
}

// pageCSS styles the configured class names.
func pageCSS(cfg view.Config) string {
	cfg = cfg.WithDefaults()
	c := cfg.Classes
	return fmt.Sprintf(`        :root {
            --bg: #282a36;
            --fg: #f8f8f2;
            --fg-muted: #6272a4;
            --purple: #bd93f9;
            --cyan: #8be9fd;
            --green: #50fa7b;
        }
        body { background: var(--bg); color: var(--fg); font-family: 'JetBrains Mono', monospace; padding: 1.5rem; }
        ul { list-style: none; padding-left: 1.25rem; margin: 0; }
        li { margin: 0.15rem 0; }
        .%s > button { background: none; border: none; color: var(--purple); cursor: pointer; width: 1.5rem; }
        .%s { padding-left: 1.5rem; }
        .%s { cursor: pointer; padding: 0 0.3rem; border-radius: 3px; }
        .%s { background: var(--purple); color: var(--bg); }
        .%s { font: inherit; }
        .%s { background: var(--cyan); color: var(--bg); padding: 0.1rem 0.4rem; border-radius: 3px; opacity: 0.85; }
        em { color: var(--fg-muted); margin-left: 0.5rem; font-size: 0.85em; }
`, c.Edge, c.Leaf, c.Value, c.Selected, c.Editable, c.Helper)
}

func generatePage(title, css, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
%s    </style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), css, body)
}
