package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders rows of cells under a header
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{
		writer:  w,
		headers: headers,
		noColor: noColor,
	}
}

// AddRow adds a row to the table. Missing cells render empty and extra cells
// are dropped.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render renders the table to the writer
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if t.noColor {
		bold.DisableColor()
		gray.DisableColor()
	}

	t.line(widths, t.headers, bold)

	separators := make([]string, len(widths))
	for i, width := range widths {
		separators[i] = strings.Repeat("─", width)
	}
	t.line(widths, separators, gray)

	for _, row := range t.rows {
		t.line(widths, row, nil)
	}
}

func (t *Table) line(widths []int, cells []string, c *color.Color) {
	var b strings.Builder
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if i < len(widths)-1 {
			cell = padRight(cell, width) + "  "
		}
		b.WriteString(cell)
	}
	text := strings.TrimRight(b.String(), " ")
	if c != nil {
		c.Fprintln(t.writer, text)
		return
	}
	fmt.Fprintln(t.writer, text)
}

// padRight pads a string with spaces on the right to reach the target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
