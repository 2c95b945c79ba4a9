package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat selects how command results print.
type OutputFormat string

const (
	// FormatText is human-readable output, the default.
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON, for piping into other tools.
	FormatJSON OutputFormat = "json"
)

// Formatter renders a command result to a stream.
type Formatter interface {
	FormatTo(w io.Writer, v any) error
}

// NewFormatter returns the formatter for format. Anything other than
// FormatJSON falls back to text.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return jsonFormatter{indent: true}
	}
	return textFormatter{}
}

type textFormatter struct{}

func (textFormatter) FormatTo(w io.Writer, v any) error {
	if s, ok := v.(fmt.Stringer); ok {
		_, err := fmt.Fprintln(w, s.String())
		return err
	}
	_, err := fmt.Fprintf(w, "%v\n", v)
	return err
}

type jsonFormatter struct {
	indent bool
}

func (f jsonFormatter) FormatTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if f.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
