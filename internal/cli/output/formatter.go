package output

import (
	"encoding/json"
	"io"
)

// Format names an output rendering.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Formatter renders a result value to a writer.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// NewFormatter selects a formatter; anything but json gets the table.
func NewFormatter(format Format) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{}
	}
	return &TableFormatter{}
}

// JSONFormatter renders indented JSON, suitable for piping into jq.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
