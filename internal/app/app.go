package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	owners "github.com/multimediallc/caught-lines/internal/config"
	gh "github.com/multimediallc/caught-lines/internal/github"
	f "github.com/multimediallc/caught-lines/pkg/functional"
	"github.com/multimediallc/caught-lines/pkg/provenance"
)

// Config holds the application configuration
type Config struct {
	Token       string
	RepoDir     string
	PR          int
	Repo        string
	Verbose     bool
	AddComments bool
	// Workers overrides the worker count from caught.toml when positive.
	Workers       int
	APIURL        string
	GraphQLURL    string
	InfoBuffer    io.Writer
	WarningBuffer io.Writer
}

// App represents the application with its dependencies
type App struct {
	Conf        *owners.Config
	config      *Config
	client      gh.Client
	source      provenance.Source
	pullRequest provenance.PullRequestRef
}

// New creates a new App instance with the given configuration
func New(ctx context.Context, cfg Config) (*App, error) {
	owner, repo, err := SplitRepo(cfg.Repo)
	if err != nil {
		return nil, err
	}
	if cfg.InfoBuffer == nil {
		cfg.InfoBuffer = io.Discard
	}
	if cfg.WarningBuffer == nil {
		cfg.WarningBuffer = io.Discard
	}
	// retries log from the workers' goroutines
	cfg.WarningBuffer = provenance.NewLockedWriter(cfg.WarningBuffer)

	transportOpts := gh.DefaultTransportOptions()
	transportOpts.WarningBuffer = cfg.WarningBuffer
	httpClient := gh.NewHTTPClient(cfg.Token, transportOpts)

	client, err := gh.NewClient(ctx, owner, repo, httpClient, cfg.APIURL)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		client.SetInfoBuffer(cfg.InfoBuffer)
	}
	client.SetWarningBuffer(cfg.WarningBuffer)

	app := &App{
		config:      &cfg,
		client:      client,
		source:      gh.NewGraphQLSource(httpClient, cfg.GraphQLURL),
		pullRequest: provenance.PullRequestRef{Owner: owner, Repo: repo, Number: cfg.PR},
	}

	return app, nil
}

// SplitRepo splits an "owner/name" repository into its parts.
func SplitRepo(fullName string) (string, string, error) {
	repoSplit := strings.Split(fullName, "/")
	if len(repoSplit) != 2 || repoSplit[0] == "" || repoSplit[1] == "" {
		return "", "", fmt.Errorf("invalid repo name: %s", fullName)
	}
	return repoSplit[0], repoSplit[1], nil
}

func (a *App) printDebug(format string, args ...interface{}) {
	if a.config.Verbose {
		_, _ = fmt.Fprintf(a.config.InfoBuffer, format, args...)
	}
}

func (a *App) printInfo(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.config.InfoBuffer, format, args...)
}

func (a *App) printWarn(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.config.WarningBuffer, format, args...)
}

// Run executes the application logic
func (a *App) Run(ctx context.Context) (*OutputData, error) {
	// Initialize PR
	if err := a.client.InitPR(a.config.PR); err != nil {
		return &OutputData{}, fmt.Errorf("InitPR Error: %v", err)
	}
	a.printDebug("PR: %d\n", a.client.PR().GetNumber())

	// Read config
	conf, err := owners.ReadConfig(a.config.RepoDir)
	if err != nil {
		a.printWarn("WARNING: Error reading %s - using default config: %v\n", owners.FileName, err)
	}
	a.Conf = conf

	skip, err := a.client.IsInLabels(conf.SkipLabels)
	if err != nil {
		return &OutputData{}, fmt.Errorf("IsInLabels Error: %v", err)
	}
	if skip {
		output := newSkippedOutputData(a.pullRequest)
		output.Message = fmt.Sprintf("Skipped: pull request has one of the labels %v", conf.SkipLabels)
		return output, nil
	}

	engine := provenance.NewEngine(a.source, a.options())
	engine.SetWarningBuffer(a.config.WarningBuffer)
	if a.config.Verbose {
		engine.SetInfoBuffer(a.config.InfoBuffer)
	}

	report, err := engine.ClassifyPullRequest(ctx, a.pullRequest, a.keep)
	if err != nil {
		return &OutputData{}, fmt.Errorf("ClassifyPullRequest Error: %w", err)
	}

	a.printReport(report)
	outputData := NewOutputData(report)
	success, message := Evaluate(report, a.Conf.Enforcement)
	outputData.UpdateOutputData(success, message)

	if a.shouldComment() {
		if err := a.addReportComment(report); err != nil {
			return outputData, fmt.Errorf("AddComment Error: %v", err)
		}
	}

	return outputData, nil
}

func (a *App) options() provenance.Options {
	opts := a.Conf.ProvenanceOptions(provenance.DefaultOptions())
	if a.config.Workers > 0 {
		opts.Workers = a.config.Workers
	}
	return opts
}

func (a *App) keep(path string) bool {
	return !a.Conf.IsIgnored(path, a.config.WarningBuffer)
}

func (a *App) shouldComment() bool {
	return a.config.AddComments || a.Conf.Comment
}

func (a *App) printReport(report *provenance.PullRequestReport) {
	a.printDebug("Merge commit: %s\n", report.MergeCommit)
	a.printDebug("Commits: %v\n", f.SortedItems(report.Commits))
	for _, file := range report.Files {
		if file.Err != nil {
			continue
		}
		switch file.Result.Outcome {
		case provenance.OutcomeHistoryNotFound:
			a.printWarn("WARNING: No history found for %s at %s\n", file.Path, report.MergeCommit)
		case provenance.OutcomeNewlyIntroduced:
			a.printInfo("%s: newly introduced by this pull request\n", file.Path)
		default:
			a.printDebug("%s: %d owned lines, %d caught\n", file.Path, file.Result.OwnedLines.Len(), len(file.Result.Caught))
			for _, event := range file.Result.Caught {
				a.printWarn("WARNING: Caught %s\n", event)
			}
		}
	}
}

// Evaluate decides the check result. File errors are always reported; they
// only fail the check when fail_on_file_error is set.
func Evaluate(report *provenance.PullRequestReport, enforcement *owners.Enforcement) (bool, string) {
	if enforcement == nil {
		enforcement = &owners.Enforcement{}
	}
	success := true
	messages := make([]string, 0, 2)

	caught := report.Caught()
	if len(caught) > 0 {
		files := f.RemoveDuplicates(f.Map(caught, func(c provenance.CaughtEvent) string { return c.Path }))
		messages = append(messages, fmt.Sprintf("Caught %d overwritten ranges in %d files", len(caught), len(files)))
		if enforcement.FailCheck {
			success = false
		}
	} else {
		messages = append(messages, "No caught lines")
	}

	var fileErrs *multierror.Error
	for _, failed := range report.Failed() {
		fileErrs = multierror.Append(fileErrs, failed.Err)
	}
	if fileErrs != nil {
		fileErrs.ErrorFormat = fileErrorFormat
		messages = append(messages, fileErrs.Error())
		if enforcement.FailOnFileError {
			success = false
		}
	}

	return success, strings.Join(messages, "\n")
}

func fileErrorFormat(errs []error) string {
	lines := f.Map(errs, func(err error) string { return " - " + err.Error() })
	return fmt.Sprintf("%d files could not be classified:\n%s", len(errs), strings.Join(lines, "\n"))
}
