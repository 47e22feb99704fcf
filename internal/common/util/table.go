package util

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Table builds tab-aligned text with a header line followed by one line per row.
// The underlying writer is a strings.Builder, which never errors, so writes don't return errors.
type Table struct {
	sb     *strings.Builder
	writer *tabwriter.Writer
}

func NewTable(header ...string) *Table {
	sb := &strings.Builder{}
	t := &Table{
		sb:     sb,
		writer: tabwriter.NewWriter(sb, 1, 1, 2, ' ', 0),
	}
	if len(header) > 0 {
		_, _ = fmt.Fprintln(t.writer, strings.Join(header, "\t"))
	}
	return t
}

// AddRow writes one line with the given cells formatted with %v.
func (t *Table) AddRow(cells ...any) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%v", cell)
	}
	_, _ = fmt.Fprintln(t.writer, strings.Join(parts, "\t"))
}

// Writef formats according to a format specifier and writes to the table.
func (t *Table) Writef(format string, a ...any) {
	_, _ = fmt.Fprintf(t.writer, format, a...)
}

// String flushes the table and returns the accumulated text.
func (t *Table) String() string {
	_ = t.writer.Flush()
	return t.sb.String()
}
