package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// printer renders command output as text or JSON.
type printer struct {
	out   io.Writer
	err   io.Writer
	json  bool
	quiet bool
}

// Result outputs data based on the output mode.
func (p *printer) Result(data any) {
	if p.json {
		p.encode(data)
		return
	}

	switch v := data.(type) {
	case string:
		_, _ = fmt.Fprintln(p.out, v)
	case []string:
		for _, s := range v {
			_, _ = fmt.Fprintln(p.out, s)
		}
	case fmt.Stringer:
		_, _ = fmt.Fprintln(p.out, v.String())
	default:
		p.encode(data)
	}
}

func (p *printer) encode(data any) {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

// Table outputs tabular data. In JSON mode rows become objects keyed by header.
func (p *printer) Table(headers []string, rows [][]string) {
	if p.json {
		result := make([]map[string]string, len(rows))
		for i, row := range rows {
			m := make(map[string]string)
			for j, h := range headers {
				if j < len(row) {
					m[h] = row[j]
				}
			}
			result[i] = m
		}
		p.encode(result)
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i < len(widths) {
				_, _ = fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
			}
		}
		_, _ = fmt.Fprintln(p.out, strings.TrimRight(b.String(), " "))
	}

	line(headers)
	sep := make([]string, len(headers))
	for i := range headers {
		sep[i] = strings.Repeat("-", widths[i])
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}

// Info prints a message unless quiet or in JSON mode.
func (p *printer) Info(format string, args ...any) {
	if !p.quiet && !p.json {
		_, _ = fmt.Fprintf(p.out, format, args...)
	}
}

// Error prints to the error stream.
func (p *printer) Error(format string, args ...any) {
	_, _ = fmt.Fprintf(p.err, format, args...)
}
