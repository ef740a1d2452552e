package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// ANSI styles.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

var ansiRe = regexp.MustCompile("\033\\[[0-9;]*m")

// visibleLen is the printed width of s, ignoring ANSI styles.
func visibleLen(s string) int {
	return len(ansiRe.ReplaceAllString(s, ""))
}

// Output writes command results as styled text or, with --json, as JSON.
type Output struct {
	w     io.Writer
	json  bool
	color bool
}

// NewOutput creates an Output for cmd. Color is enabled only when writing
// text to a terminal.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()
	color := false
	if f, ok := w.(*os.File); ok && !jsonMode {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Output{w: w, json: jsonMode, color: color}
}

// IsJSON reports whether --json was given.
func (o *Output) IsJSON() bool {
	return o.json
}

// JSON writes v as indented JSON regardless of mode.
func (o *Output) JSON(v interface{}) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.w, args...)
}

func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.w, format, args...)
}

func (o *Output) Success(format string, args ...interface{}) { o.line(ColorGreen, format, args...) }
func (o *Output) Error(format string, args ...interface{})   { o.line(ColorRed, format, args...) }
func (o *Output) Warning(format string, args ...interface{}) { o.line(ColorYellow, format, args...) }
func (o *Output) Bold(format string, args ...interface{})    { o.line(ColorBold, format, args...) }
func (o *Output) Dim(format string, args ...interface{})     { o.line(ColorDim, format, args...) }

func (o *Output) line(style, format string, args ...interface{}) {
	fmt.Fprintln(o.w, o.ColoredString(style, fmt.Sprintf(format, args...)))
}

// ColoredString wraps text in style when color is on.
func (o *Output) ColoredString(style, text string) string {
	if !o.color || text == "" {
		return text
	}
	return style + text + ColorReset
}

func (o *Output) Green(text string) string { return o.ColoredString(ColorGreen, text) }
func (o *Output) Red(text string) string   { return o.ColoredString(ColorRed, text) }

// Count renders n, styled only when it is non-zero.
func (o *Output) Count(n int, style string) string {
	s := fmt.Sprintf("%d", n)
	if n == 0 {
		return s
	}
	return o.ColoredString(style, s)
}

// Status renders a per-file outcome marker.
func (o *Output) Status(success, skipped bool) string {
	switch {
	case success:
		return o.Green("OK")
	case skipped:
		return o.ColoredString(ColorYellow, "SKIPPED")
	default:
		return o.Red("FAILED")
	}
}

// Table buffers rows and prints them as aligned columns.
type Table struct {
	out     *Output
	headers []string
	rows    [][]string
}

func NewTable(out *Output, headers ...string) *Table {
	return &Table{out: out, headers: headers}
}

// AddRow appends a row. Cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	t.rows = append(t.rows, cells)
}

// Render prints the header, a rule and every row.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}
	widths := make([]int, len(t.headers))
	for _, row := range append([][]string{t.headers}, t.rows...) {
		for i, cell := range row {
			if n := visibleLen(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}

	t.print(t.headers, widths, ColorBold)
	t.out.Println(t.out.ColoredString(ColorDim, strings.Join(rule, "  ")))
	for _, row := range t.rows {
		t.print(row, widths, "")
	}
}

func (t *Table) print(cells []string, widths []int, style string) {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		if style != "" {
			cell = t.out.ColoredString(style, cell)
		}
		b.WriteString(cell)
		if pad := widths[i] - visibleLen(cell); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	t.out.Println(strings.TrimRight(b.String(), " "))
}
