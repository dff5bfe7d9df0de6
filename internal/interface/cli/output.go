package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation rejected (not found, insufficient balance, ...)
	ExitCommandError = 2 // Bad usage or missing confirmation
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// usageError reports bad arguments or a missing confirmation.
func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf(format, args...)}
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ══════════════════════════════════════════════════════════════════════════════
// PRINTER
// ══════════════════════════════════════════════════════════════════════════════

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON}

// Printer writes command results as styled text or JSON. Styling is only
// applied when the output is a terminal.
type Printer struct {
	format string
	out    io.Writer
	styled bool

	title   lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	muted   lipgloss.Style
	box     lipgloss.Style
	border  lipgloss.Style
	header  lipgloss.Style
}

// NewPrinter creates a printer for out.
func NewPrinter(format string, out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		format: format,
		out:    out,
		styled: format == FormatText && isTerminal(out),

		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E8B57")),
		success: r.NewStyle().Foreground(lipgloss.Color("#2CD7C7")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#F4D03F")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6C7A89")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2E8B57")).
			Padding(0, 1),
		border: r.NewStyle().Foreground(lipgloss.Color("#16858E")),
		header: r.NewStyle().Bold(true).Padding(0, 1),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// JSONMode reports whether results are printed as JSON.
func (p *Printer) JSONMode() bool {
	return p.format == FormatJSON
}

// Result prints v as JSON in JSON mode, otherwise runs text.
func (p *Printer) Result(v any, text func()) error {
	if p.JSONMode() {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(map[string]any{"status": "ok", "data": v})
	}
	text()
	return nil
}

// Title prints a heading.
func (p *Printer) Title(format string, args ...any) {
	p.render(p.title, format, args...)
}

// Line prints plain text.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	p.render(p.success, "✓ "+format, args...)
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	p.render(p.warn, "⚠ "+format, args...)
}

// Muted prints secondary information.
func (p *Printer) Muted(format string, args ...any) {
	p.render(p.muted, format, args...)
}

// Box prints text framed on terminals and plain elsewhere.
func (p *Printer) Box(text string) {
	if !p.styled {
		fmt.Fprintln(p.out, text)
		return
	}
	fmt.Fprintln(p.out, p.box.Render(text))
}

// Table prints rows under header. Plain output is tab-aligned so it stays
// easy to grep and cut.
func (p *Printer) Table(header []string, rows [][]string) {
	if !p.styled {
		tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, row := range rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		_ = tw.Flush()
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.border).
		Headers(header...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(p.out, t.Render())
}

func (p *Printer) render(style lipgloss.Style, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if p.styled {
		text = style.Render(text)
	}
	fmt.Fprintln(p.out, text)
}
