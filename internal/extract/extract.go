// Package extract turns uploaded document bytes into plain text.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Format is a lower-case file extension without the leading dot.
type Format string

const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
	FormatDOC  Format = "doc"
	FormatDOCX Format = "docx"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrCorrupt           = errors.New("unreadable document")
)

// accepted lists every extension an upload may carry, whether or not an
// extractor is enabled for it.
var accepted = map[Format]struct{}{
	FormatText: {},
	FormatPDF:  {},
	FormatDOC:  {},
	FormatDOCX: {},
}

// FormatOf derives the format from a filename.
func FormatOf(filename string) Format {
	ext := strings.TrimPrefix(filepath.Ext(strings.TrimSpace(filename)), ".")
	return Format(strings.ToLower(ext))
}

// Accepted reports whether filename has an extension uploads may use.
func Accepted(filename string) bool {
	_, ok := accepted[FormatOf(filename)]
	return ok
}

// ParseFormats reads a comma separated list such as "txt,pdf".
func ParseFormats(raw string) ([]Format, error) {
	var formats []Format
	for _, part := range strings.Split(raw, ",") {
		f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(part), ".")))
		if f == "" {
			continue
		}
		if _, ok := accepted[f]; !ok {
			return nil, fmt.Errorf("unknown document format %q", part)
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// Error describes why text could not be extracted from a file. Its message is
// safe to show to the user.
type Error struct {
	Filename string
	Format   Format
	Err      error
}

func (e *Error) Error() string {
	if errors.Is(e.Err, ErrUnsupportedFormat) {
		return fmt.Sprintf("Unsupported file format: %s", e.Format)
	}
	return fmt.Sprintf("Error extracting text from %s: %v", e.Filename, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extractor converts raw bytes of one format into text.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(data []byte) (string, error)

// Extract calls f(data).
func (f ExtractorFunc) Extract(data []byte) (string, error) {
	return f(data)
}

// Registry maps formats to the extractors enabled in this process.
type Registry struct {
	extractors map[Format]Extractor
}

// NewRegistry enables the built-in extractors for the given formats. With no
// formats only plain text is enabled.
func NewRegistry(formats ...Format) *Registry {
	if len(formats) == 0 {
		formats = []Format{FormatText}
	}

	r := &Registry{extractors: make(map[Format]Extractor, len(formats))}
	for _, f := range formats {
		switch f {
		case FormatText:
			r.Register(f, ExtractorFunc(PlainText))
		case FormatPDF:
			r.Register(f, ExtractorFunc(PDF))
		case FormatDOCX:
			r.Register(f, ExtractorFunc(DOCX))
		case FormatDOC:
			r.Register(f, ExtractorFunc(DOC))
		}
	}
	return r
}

// Register installs or replaces the extractor for f.
func (r *Registry) Register(f Format, e Extractor) {
	r.extractors[f] = e
}

// Formats lists the enabled formats in sorted order.
func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.extractors))
	for f := range r.extractors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Extract picks the extractor by the filename extension. Failures are always
// returned as *Error.
func (r *Registry) Extract(filename string, data []byte) (string, error) {
	format := FormatOf(filename)
	e, ok := r.extractors[format]
	if !ok {
		return "", &Error{Filename: filename, Format: format, Err: ErrUnsupportedFormat}
	}

	text, err := e.Extract(data)
	if err != nil {
		return "", &Error{Filename: filename, Format: format, Err: err}
	}
	return text, nil
}
