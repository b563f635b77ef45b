// Package ui renders tables and notifications for the console.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// PrintPlainTable writes an aligned, untruncated table for non-TTY output.
func PrintPlainTable(w io.Writer, headers []string, rows [][]string) {
	if len(headers) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, val := range row {
			if i < len(widths) && runewidth.StringWidth(val) > widths[i] {
				widths[i] = runewidth.StringWidth(val)
			}
		}
	}

	writeRow(w, headers, widths)
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("-", n)
	}
	writeRow(w, sep, widths)
	for _, row := range rows {
		writeRow(w, row, widths)
	}

	if len(rows) == 1 {
		fmt.Fprintln(w, "(1 row)")
	} else {
		fmt.Fprintf(w, "(%d rows)\n", len(rows))
	}
}

func writeRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(widths))
	for i := range widths {
		val := ""
		if i < len(cells) {
			val = cells[i]
		}
		if i == len(widths)-1 {
			parts[i] = val
			continue
		}
		parts[i] = runewidth.FillRight(val, widths[i])
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}
