package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/vanderheijden86/arbor/pkg/model"
)

// GenerateMarkdown creates a nested bullet outline of the tree.
func GenerateMarkdown(items []model.Item, title string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	total, maxDepth := 0, 0
	var measure func(list []model.Item, depth int)
	measure = func(list []model.Item, depth int) {
		for _, it := range list {
			total++
			if depth > maxDepth {
				maxDepth = depth
			}
			measure(it.Children, depth+1)
		}
	}
	measure(items, 1)

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Nodes**: %d\n", total))
	sb.WriteString(fmt.Sprintf("- **Top level**: %d\n", len(items)))
	sb.WriteString(fmt.Sprintf("- **Depth**: %d\n\n", maxDepth))

	sb.WriteString("## Outline\n\n")
	var outline func(list []model.Item, indent string)
	outline = func(list []model.Item, indent string) {
		for _, it := range list {
			title := strings.ReplaceAll(it.Title, "\n", " ")
			if len(it.Children) > 0 {
				// Collapsed branches are marked so the outline mirrors the widget
				mark := "-"
				if it.State == model.StateClosed || it.State == "" {
					mark = "+"
				}
				sb.WriteString(fmt.Sprintf("%s- **%s** `%s`\n", indent, title, mark))
			} else {
				sb.WriteString(fmt.Sprintf("%s- %s\n", indent, title))
			}
			outline(it.Children, indent+"  ")
		}
	}
	outline(items, "")

	return sb.String()
}

// SaveMarkdownToFile writes the generated outline to a file.
func SaveMarkdownToFile(items []model.Item, title, filename string) error {
	return os.WriteFile(filename, []byte(GenerateMarkdown(items, title)), 0644)
}
