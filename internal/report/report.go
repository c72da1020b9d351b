// Package report renders and saves the field catalog.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/acord-field-extractor/internal/pipeline"
)

// Format selects the report encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Title is the first line of the text report
const Title = "ACORD Form Field Names"

var rule = strings.Repeat("=", 50)

// ParseFormat parses a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q (must be text or json)", s)
	}
}

// Extension returns the file extension used for the format
func (f Format) Extension() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".txt"
}

// DefaultOutputPath replaces the extension of the input path with the one
// for format.
func DefaultOutputPath(input string, format Format) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + format.Extension()
}

// WriteText writes the plain text report for source and its sorted fields
func WriteText(w io.Writer, source string, fields []string) error {
	var b strings.Builder
	b.WriteString(Title + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Source: %s\n", source)
	fmt.Fprintf(&b, "Total Fields Found: %d\n", len(fields))
	b.WriteString(rule + "\n\n")
	for i, name := range fields {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Text returns the plain text report as a string
func Text(source string, fields []string) string {
	var b strings.Builder
	_ = WriteText(&b, source, fields)
	return b.String()
}

// jsonReport is the JSON document layout
type jsonReport struct {
	Source     string                 `json:"source"`
	TotalCount int                    `json:"total_fields"`
	Fields     []string               `json:"fields"`
	PageCount  int                    `json:"page_count,omitempty"`
	DPI        int                    `json:"dpi,omitempty"`
	Rasterizer string                 `json:"rasterizer,omitempty"`
	Pages      []pipeline.PageSummary `json:"pages,omitempty"`
	ElapsedMS  int64                  `json:"elapsed_ms,omitempty"`
}

// WriteJSON writes the result as an indented JSON document
func WriteJSON(w io.Writer, result *pipeline.Result) error {
	fields := result.Fields
	if fields == nil {
		fields = []string{}
	}
	doc := jsonReport{
		Source:     result.Source,
		TotalCount: len(fields),
		Fields:     fields,
		PageCount:  result.PageCount,
		DPI:        result.DPI,
		Rasterizer: result.Rasterizer,
		Pages:      result.Pages,
		ElapsedMS:  result.Elapsed.Milliseconds(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Write renders result in format to w
func Write(w io.Writer, result *pipeline.Result, format Format) error {
	if format == FormatJSON {
		return WriteJSON(w, result)
	}
	return WriteText(w, result.Source, result.Fields)
}

// SaveFile writes the report to path. The content goes to a temporary file in
// the same directory first and is renamed into place, so a failed run never
// leaves a partial report behind.
func SaveFile(path string, result *pipeline.Result, format Format) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, result, format); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("set report permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}
