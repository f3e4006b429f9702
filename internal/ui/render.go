// internal/ui/render.go
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one labelled value in a panel.
type Field struct {
	Key   string
	Value string
}

func F(key, value string) Field { return Field{Key: key, Value: value} }

// Renderer formats command output.
type Renderer struct {
	styles Styles
}

func NewRenderer() *Renderer {
	return &Renderer{styles: DefaultStyles()}
}

// Panel renders a titled box with one aligned "key  value" line per field.
func (r *Renderer) Panel(title string, fields ...Field) string {
	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.Key))
	}
	keyStyle := r.styles.Key.Width(width + 2)

	lines := make([]string, 0, len(fields)+1)
	lines = append(lines, r.styles.Title.Render(title))
	for _, f := range fields {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			keyStyle.Render(f.Key),
			r.styles.Value.Render(f.Value)))
	}
	return r.styles.Panel.Render(strings.Join(lines, "\n"))
}

// Table renders rows under header with columns sized to their widest cell.
func (r *Renderer) Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	render := func(style lipgloss.Style, cells []string) string {
		out := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			out[i] = style.Width(widths[i] + 2).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	lines := []string{render(r.styles.Header, header)}
	for _, row := range rows {
		lines = append(lines, render(r.styles.Cell, row))
	}
	return strings.Join(lines, "\n")
}

// Status renders text in the success or failure color.
func (r *Renderer) Status(ok bool, text string) string {
	if ok {
		return r.styles.OK.Render(text)
	}
	return r.styles.Fail.Render(text)
}

func (r *Renderer) Warn(text string) string  { return r.styles.Warn.Render(text) }
func (r *Renderer) Muted(text string) string { return r.styles.Muted.Render(text) }
