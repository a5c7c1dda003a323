package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/multimediallc/caught-lines/internal/app"
	f "github.com/multimediallc/caught-lines/pkg/functional"
	"github.com/multimediallc/caught-lines/pkg/provenance"
	"gopkg.in/yaml.v3"
)

type OutputFormat string

const (
	FormatDefault OutputFormat = "default"
	FormatOneLine OutputFormat = "one-line"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
)

var allowedFormats = []string{string(FormatDefault), string(FormatOneLine), string(FormatJSON), string(FormatYAML)}

func validateFormat(format string) (OutputFormat, error) {
	if !slices.Contains(allowedFormats, format) {
		return "", fmt.Errorf("invalid format %s. Must be one of %s", format, strings.Join(allowedFormats, ", "))
	}
	return OutputFormat(format), nil
}

// writeStructured writes v as JSON or YAML. It reports false for the text
// formats.
func writeStructured(w io.Writer, format OutputFormat, v interface{}) (bool, error) {
	switch format {
	case FormatJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return true, err
		}
		_, err = fmt.Fprintln(w, string(data))
		return true, err
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return true, err
		}
		return true, encoder.Close()
	}
	return false, nil
}

func joinLines(lines []int) string {
	return strings.Join(f.Map(lines, func(l int) string { return fmt.Sprint(l) }), ",")
}

func printCheck(w io.Writer, output *app.OutputData, format OutputFormat) error {
	if ok, err := writeStructured(w, format, output); ok {
		return err
	}

	oneLine := format == FormatOneLine
	for _, file := range output.Files {
		status := file.Outcome
		if file.Error != "" {
			status = "error: " + file.Error
		}
		events := f.Filtered(output.Caught, func(c provenance.CaughtEvent) bool { return c.Path == file.Path })
		if oneLine {
			parts := f.Map(events, func(c provenance.CaughtEvent) string {
				return fmt.Sprintf("%s by %s", joinLines(c.Lines), c.Range.Commit)
			})
			if len(parts) > 0 {
				status += "; caught " + strings.Join(parts, "; ")
			}
			_, _ = fmt.Fprintf(w, "%s: %s\n", file.Path, status)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s: %s\n", file.Path, status)
		for _, c := range events {
			_, _ = fmt.Fprintf(w, "  lines %s overwritten by %s %q\n", joinLines(c.Lines), c.Range.Commit, c.Range.MessageHeadline)
		}
	}
	if !oneLine {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, output.Message)
	}
	return nil
}

func printList(w io.Writer, items []string, format OutputFormat) error {
	if ok, err := writeStructured(w, format, items); ok {
		return err
	}
	sep := "\n"
	if format == FormatOneLine {
		sep = " "
	}
	_, err := fmt.Fprintln(w, strings.Join(items, sep))
	return err
}
