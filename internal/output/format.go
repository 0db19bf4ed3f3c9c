// Package output prints command results for the client CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	faint   = color.New(color.Faint)
	bold    = color.New(color.Bold)
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed, color.Bold)
	section = color.New(color.FgCyan, color.Bold)
)

// Printer writes results to Out and status lines to Err.
// With JSON set, values are printed as indented JSON instead of YAML.
type Printer struct {
	Out  io.Writer
	Err  io.Writer
	JSON bool
}

// New returns a Printer on stdout and stderr.
func New(asJSON bool) *Printer {
	return &Printer{Out: os.Stdout, Err: os.Stderr, JSON: asJSON}
}

// Value prints v as JSON or YAML.
func (p *Printer) Value(v any) error {
	if p.JSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("format json: %w", err)
		}
		_, err = fmt.Fprintln(p.Out, string(data))
		return err
	}

	// Round trip through JSON so the json tags of SDK types decide the keys.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("format yaml: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("format yaml: %w", err)
	}
	enc := yaml.NewEncoder(p.Out)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("format yaml: %w", err)
	}
	return enc.Close()
}

// Section prints a heading followed by body text.
func (p *Printer) Section(title, body string) {
	section.Fprintln(p.Out, title)
	fmt.Fprintln(p.Out, strings.TrimRight(body, "\n"))
}

// Field prints a labelled value on one line.
func (p *Printer) Field(label string, value any) {
	fmt.Fprintf(p.Out, "%s %v\n", bold.Sprint(label+":"), value)
}

// Truncated prints at most n characters of s.
func (p *Printer) Truncated(label, s string, n int) {
	if len(s) > n {
		s = s[:n] + faint.Sprint("...")
	}
	p.Field(label, s)
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...any) {
	green.Fprintf(p.Err, format+"\n", args...)
}

// Warn prints a warning.
func (p *Printer) Warn(format string, args ...any) {
	yellow.Fprintf(p.Err, format+"\n", args...)
}

// Error prints an error message.
func (p *Printer) Error(err error) {
	red.Fprint(p.Err, "Error: ")
	fmt.Fprintln(p.Err, err)
}
