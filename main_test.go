package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/multimediallc/caught-lines/internal/app"
)

func TestGetEnv(t *testing.T) {
	tt := []struct {
		name     string
		key      string
		fallback string
		setEnv   bool
		envValue string
		expected string
	}{
		{
			name:     "environment variable set",
			key:      "TEST_ENV",
			fallback: "fallback",
			setEnv:   true,
			envValue: "test_value",
			expected: "test_value",
		},
		{
			name:     "environment variable not set",
			key:      "TEST_ENV",
			fallback: "fallback",
			setEnv:   false,
			expected: "fallback",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setEnv {
				t.Setenv(tc.key, tc.envValue)
			}

			got := getEnv(tc.key, tc.fallback)
			if got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestIgnoreError(t *testing.T) {
	tt := []struct {
		name     string
		value    int
		err      error
		expected int
	}{
		{
			name:     "error is nil",
			value:    42,
			err:      nil,
			expected: 42,
		},
		{
			name:     "error is not nil",
			value:    42,
			err:      os.ErrNotExist,
			expected: 42,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := ignoreError(tc.value, tc.err)
			if got != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestPrintDebug(t *testing.T) {
	tt := []struct {
		name     string
		verbose  bool
		format   string
		args     []interface{}
		expected string
	}{
		{
			name:     "verbose enabled",
			verbose:  true,
			format:   "test %s %d",
			args:     []interface{}{"message", 42},
			expected: "test message 42",
		},
		{
			name:     "verbose disabled",
			verbose:  false,
			format:   "test %s %d",
			args:     []interface{}{"message", 42},
			expected: "",
		},
	}

	original := *flags.Verbose
	defer func() { *flags.Verbose = original }()

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			InfoBuffer.Reset()
			*flags.Verbose = tc.verbose

			printDebug(tc.format, tc.args...)

			got := InfoBuffer.String()
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestPrintWarning(t *testing.T) {
	WarningBuffer.Reset()

	printWarning("test %s %d", "message", 42)

	if got := WarningBuffer.String(); got != "test message 42" {
		t.Errorf("expected %q, got %q", "test message 42", got)
	}
}

func TestInitFlags(t *testing.T) {
	tokenStr := "test-token"
	prInt := 123
	repoStr := "owner/repo"
	emptyStr := ""
	zeroInt := 0
	tt := []struct {
		name        string
		flags       *Flags
		expectError bool
		missing     string
	}{
		{
			name: "all required flags set",
			flags: &Flags{
				Token: &tokenStr,
				PR:    &prInt,
				Repo:  &repoStr,
			},
			expectError: false,
		},
		{
			name: "missing token",
			flags: &Flags{
				Token: &emptyStr,
				PR:    &prInt,
				Repo:  &repoStr,
			},
			expectError: true,
			missing:     "token",
		},
		{
			name: "missing PR",
			flags: &Flags{
				Token: &tokenStr,
				PR:    &zeroInt,
				Repo:  &repoStr,
			},
			expectError: true,
			missing:     "pr",
		},
		{
			name: "missing repo",
			flags: &Flags{
				Token: &tokenStr,
				PR:    &prInt,
				Repo:  &emptyStr,
			},
			expectError: true,
			missing:     "repo",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := initFlags(tc.flags)
			if tc.expectError {
				if err == nil {
					t.Error("expected error but got none")
				} else if !strings.Contains(err.Error(), tc.missing) {
					t.Errorf("expected error to name %s, got %v", tc.missing, err)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestWriteOutput(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "github_output")
	if err := os.WriteFile(outputPath, []byte("existing=1\n"), 0644); err != nil {
		t.Fatalf("failed to seed output file: %v", err)
	}

	output := &app.OutputData{PullRequest: "acme/widgets#42", Success: true, Message: "No caught lines"}
	if err := writeOutput(outputPath, output); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 || lines[0] != "existing=1" {
		t.Fatalf("expected output to be appended, got %q", string(content))
	}
	if !strings.HasPrefix(lines[1], "data=") {
		t.Fatalf("expected data= line, got %q", lines[1])
	}
	var decoded app.OutputData
	if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data=")), &decoded); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if decoded.PullRequest != "acme/widgets#42" || !decoded.Success {
		t.Errorf("unexpected decoded output %+v", decoded)
	}
}

func TestWriteOutputNoPath(t *testing.T) {
	if err := writeOutput("", &app.OutputData{}); err != nil {
		t.Errorf("expected no error without an output path, got %v", err)
	}
}
