package owners

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/multimediallc/caught-lines/pkg/provenance"
	"github.com/pelletier/go-toml/v2"
)

const FileName = "caught.toml"

type Config struct {
	Ignore            []string     `toml:"ignore"`
	Workers           *int         `toml:"workers"`
	Pagination        *Pagination  `toml:"pagination"`
	ReportAllOverlaps bool         `toml:"report_all_overlaps"`
	Enforcement       *Enforcement `toml:"enforcement"`
	Comment           bool         `toml:"comment"`
	SkipLabels        []string     `toml:"skip_labels"`
}

// Pagination holds page sizes per connection. Zero keeps the engine default.
type Pagination struct {
	Commits  int `toml:"commits"`
	Files    int `toml:"files"`
	History  int `toml:"history"`
	MaxPages int `toml:"max_pages"`
}

type Enforcement struct {
	FailCheck       bool `toml:"fail_check"`
	FailOnFileError bool `toml:"fail_on_file_error"`
}

func defaultConfig() *Config {
	return &Config{
		Ignore:      []string{},
		Workers:     nil,
		Pagination:  &Pagination{},
		Enforcement: &Enforcement{FailCheck: false, FailOnFileError: false},
		Comment:     false,
		SkipLabels:  []string{},
	}
}

// ReadConfig reads caught.toml from the directory at path. A missing file
// yields the defaults.
func ReadConfig(path string) (*Config, error) {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	fileName := path + FileName
	if _, err := os.Stat(fileName); errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	file, err := os.ReadFile(fileName)
	if err != nil {
		return defaultConfig(), err
	}
	config := defaultConfig()
	err = toml.Unmarshal(file, config)
	if err != nil {
		return defaultConfig(), fmt.Errorf("parsing %s: %w", fileName, err)
	}
	if config.Pagination == nil {
		config.Pagination = &Pagination{}
	}
	if config.Enforcement == nil {
		config.Enforcement = defaultConfig().Enforcement
	}
	if config.Ignore == nil {
		config.Ignore = []string{}
	}
	if config.SkipLabels == nil {
		config.SkipLabels = []string{}
	}
	return config, nil
}

// IsIgnored reports whether path matches one of the ignore patterns.
// A pattern without glob characters also ignores everything below it.
func (c *Config) IsIgnored(path string, warningBuffer io.Writer) bool {
	for _, pattern := range c.Ignore {
		if !strings.ContainsAny(pattern, "*?[{") {
			dir := strings.TrimSuffix(pattern, "/")
			if path == dir || strings.HasPrefix(path, dir+"/") {
				return true
			}
			continue
		}
		match, err := doublestar.Match(pattern, path)
		if err != nil {
			_, _ = fmt.Fprintf(warningBuffer, "WARNING: PatternError for pattern '%s': %s\n", pattern, err)
			continue
		}
		if match {
			return true
		}
	}
	return false
}

// ProvenanceOptions overlays the configured values onto base.
func (c *Config) ProvenanceOptions(base provenance.Options) provenance.Options {
	opts := base
	if c.Workers != nil && *c.Workers > 0 {
		opts.Workers = *c.Workers
	}
	if c.Pagination != nil {
		if c.Pagination.Commits > 0 {
			opts.CommitPageSize = c.Pagination.Commits
		}
		if c.Pagination.Files > 0 {
			opts.FilePageSize = c.Pagination.Files
		}
		if c.Pagination.History > 0 {
			opts.HistoryPageSize = c.Pagination.History
		}
		if c.Pagination.MaxPages > 0 {
			opts.MaxPages = c.Pagination.MaxPages
		}
	}
	if c.ReportAllOverlaps {
		opts.ReportAllOverlaps = true
	}
	return opts
}
