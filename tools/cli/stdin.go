package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	f "github.com/multimediallc/caught-lines/pkg/functional"
)

// isStdinPiped checks if stdin is being piped to the program
func isStdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// scanPaths reads one path per line, skipping blank lines and "#" comments
func scanPaths(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, strings.TrimPrefix(line, "./"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from stdin: %w", err)
	}
	return lines, nil
}

// onlyPaths keeps the listed paths. An empty list keeps everything.
func onlyPaths(paths []string) func(string) bool {
	if len(paths) == 0 {
		return func(string) bool { return true }
	}
	set := f.NewSet(paths...)
	return set.Contains
}
