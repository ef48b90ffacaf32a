package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Context is the interaction mode help is shown for.
type Context string

const (
	ContextTree   Context = "tree"
	ContextEdit   Context = "edit"
	ContextMove   Context = "move"
	ContextAdd    Context = "add"
	ContextPicker Context = "picker"
)

// ContextHelpContent maps each context to its markdown help.
var ContextHelpContent = map[Context]string{
	ContextTree:   contextHelpTree,
	ContextEdit:   contextHelpEdit,
	ContextMove:   contextHelpMove,
	ContextAdd:    contextHelpAdd,
	ContextPicker: contextHelpPicker,
}

// GetContextHelp returns the help for ctx, falling back to the tree help.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpTree
}

// newHelpRenderer builds the markdown renderer for help text. A fixed
// style keeps output stable when no terminal can be queried.
func newHelpRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// RenderContextHelp renders the help body for ctx through glamour. The raw
// markdown is used if rendering fails.
func RenderContextHelp(ctx Context, renderer *glamour.TermRenderer) string {
	content := GetContextHelp(ctx)
	if renderer == nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// RenderHelpModal wraps rendered help in the bordered modal.
func RenderHelpModal(body string, theme Theme, width int) string {
	r := theme.Renderer

	modalWidth := 64
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("↑/↓ scroll │ Esc or ? to close"))

	return r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(0, 1).
		Width(modalWidth).
		Render(b.String())
}

const contextHelpTree = `## Tree

**Navigation**

| Key | Action |
|---|---|
| ↑/k ↓/j | Move the selection |
| g / G | First / last row |
| → / ← | Open, or close and jump to the parent |
| Enter, Space | Open or close the node |

**Editing**

| Key | Action |
|---|---|
| e | Rename the selected node |
| a / A | Add a child / a top-level node |
| d | Remove the node and its subtree |
| m then p | Mark a node, then move it under the selection |
| y | Copy the node id |
| o | Open another data file |

**Mouse**

Click selects, double-click renames, click the toggle to open or close,
drag a label onto another node to move it.`

const contextHelpEdit = `## Rename

| Key | Action |
|---|---|
| Enter | Save the new title |
| Esc | Keep the old title |

Clicking anywhere outside the input also saves.`

const contextHelpMove = `## Move

A node is marked for moving.

| Key | Action |
|---|---|
| p | Move it under the selected node |
| P | Move it to the top level |
| m | Mark a different node |
| Esc | Clear the mark |

A node cannot move into its own subtree.`

const contextHelpAdd = `## Add node

Type a title, pick the initial state and confirm with Enter.
Esc cancels.`

const contextHelpPicker = `## Open file

| Key | Action |
|---|---|
| ↑/↓ | Choose a file |
| type | Filter by path |
| Enter | Open the file |
| Esc | Back to the tree |`
