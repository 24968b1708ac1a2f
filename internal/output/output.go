// Package output provides consistent CLI output formatting. Human mode
// prints status lines with icons; robot mode emits one JSON envelope per
// command with no icons and no ANSI sequences.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Mode selects the output dialect.
type Mode int

const (
	// ModeHuman prints icon-prefixed status lines.
	ModeHuman Mode = iota
	// ModeRobot prints a single JSON envelope and suppresses status lines.
	ModeRobot
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out  io.Writer
	mode Mode
}

// New creates a Writer. Robot mode wins over TTY detection; a human
// writer on a non-TTY still prints plain text, just without assuming a
// terminal width.
func New(out io.Writer, mode Mode) *Writer {
	return &Writer{out: out, mode: mode}
}

// Robot reports whether the writer is in robot mode.
func (w *Writer) Robot() bool {
	return w.mode == ModeRobot
}

// IsTTY checks whether the writer's destination is a terminal.
func IsTTY(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Status prints a status message with an icon. Robot mode drops status
// lines; only the final envelope reaches the consumer.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if w.mode == ModeRobot {
		return
	}
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Plain prints a line with no icon in either mode except robot.
func (w *Writer) Plain(msg string) {
	if w.mode == ModeRobot {
		return
	}
	_, _ = fmt.Fprintln(w.out, msg)
}

// Plainf prints a formatted plain line.
func (w *Writer) Plainf(format string, args ...any) {
	w.Plain(fmt.Sprintf(format, args...))
}

// Block prints multi-line content with indentation.
func (w *Writer) Block(content string) {
	if w.mode == ModeRobot {
		return
	}
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	if w.mode == ModeRobot {
		return
	}
	_, _ = fmt.Fprintln(w.out)
}

// JSON writes v as indented JSON followed by a newline. It is the only
// method that emits in robot mode; human mode also supports it for
// commands whose payload is inherently structured.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
