package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestPanel(t *testing.T) {
	r := NewRenderer()
	out := r.Panel("Quote", F("amount in", "0.1 SOL"), F("out", "3521"))

	assert.Contains(t, out, "Quote")
	assert.Contains(t, out, "amount in")
	assert.Contains(t, out, "0.1 SOL")
	assert.Contains(t, out, "3521")
	assert.Equal(t, 2+3, len(strings.Split(out, "\n")), "border, title, two fields, border")
}

func TestTable_AlignsColumns(t *testing.T) {
	r := NewRenderer()
	out := r.Table([]string{"task", "status"}, [][]string{
		{"buy-one", "ok"},
		{"a", "failed"},
	})
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, lipgloss.Width(lines[0]), lipgloss.Width(lines[1]))
	assert.Equal(t, lipgloss.Width(lines[1]), lipgloss.Width(lines[2]))
	assert.Contains(t, lines[1], "buy-one")
}

func TestStatus(t *testing.T) {
	r := NewRenderer()
	assert.Contains(t, r.Status(true, "landed"), "landed")
	assert.Contains(t, r.Status(false, "failed"), "failed")
}
