package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/multimediallc/caught-lines/internal/app"
	"github.com/multimediallc/caught-lines/pkg/provenance"
	"gopkg.in/yaml.v3"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{
			name:    "valid default format",
			input:   "default",
			want:    FormatDefault,
			wantErr: false,
		},
		{
			name:    "valid one-line format",
			input:   "one-line",
			want:    FormatOneLine,
			wantErr: false,
		},
		{
			name:    "valid json format",
			input:   "json",
			want:    FormatJSON,
			wantErr: false,
		},
		{
			name:    "valid yaml format",
			input:   "yaml",
			want:    FormatYAML,
			wantErr: false,
		},
		{
			name:    "invalid format",
			input:   "invalid",
			want:    "",
			wantErr: true,
		},
		{
			name:    "empty format",
			input:   "",
			want:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFormat() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("validateFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func sampleOutput() *app.OutputData {
	return &app.OutputData{
		PullRequest: "acme/widgets#42",
		MergeCommit: "M",
		Files: []app.FileOutput{
			{Path: "a.go", Outcome: "classified", OwnedLines: []int{10, 11}},
			{Path: "b.go", Error: "boom"},
		},
		Caught: []provenance.CaughtEvent{
			{Path: "a.go", Lines: []int{11}, Range: provenance.BlameRange{StartingLine: 11, EndingLine: 11, Commit: "B", MessageHeadline: "tweak"}, Revision: "B"},
		},
		Success: true,
		Message: "Caught 1 overwritten ranges in 1 files",
	}
}

func TestPrintCheck(t *testing.T) {
	tests := []struct {
		name   string
		format OutputFormat
		want   []string
	}{
		{
			name:   "default",
			format: FormatDefault,
			want: []string{
				"a.go: classified",
				"  lines 11 overwritten by B \"tweak\"",
				"b.go: error: boom",
				"",
				"Caught 1 overwritten ranges in 1 files",
			},
		},
		{
			name:   "one-line",
			format: FormatOneLine,
			want: []string{
				"a.go: classified; caught 11 by B",
				"b.go: error: boom",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := printCheck(buf, sampleOutput(), tt.format); err != nil {
				t.Fatalf("printCheck() error = %v", err)
			}
			got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("printCheck() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintCheckYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := printCheck(buf, sampleOutput(), FormatYAML); err != nil {
		t.Fatalf("printCheck() error = %v", err)
	}
	var decoded app.OutputData
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode yaml: %v", err)
	}
	if decoded.PullRequest != "acme/widgets#42" || len(decoded.Caught) != 1 || decoded.Caught[0].Range.Commit != "B" {
		t.Errorf("unexpected decoded output %+v", decoded)
	}
	if !strings.Contains(buf.String(), "message_headline: tweak") {
		t.Errorf("expected snake_case keys, got %s", buf.String())
	}
}

func TestPrintList(t *testing.T) {
	tests := []struct {
		name   string
		format OutputFormat
		want   string
	}{
		{name: "default", format: FormatDefault, want: "a.go\nb.go\n"},
		{name: "one-line", format: FormatOneLine, want: "a.go b.go\n"},
		{name: "json", format: FormatJSON, want: "[\"a.go\",\"b.go\"]\n"},
		{name: "yaml", format: FormatYAML, want: "- a.go\n- b.go\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := printList(buf, []string{"a.go", "b.go"}, tt.format); err != nil {
				t.Fatalf("printList() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("printList() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
