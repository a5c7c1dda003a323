package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"github.com/multimediallc/caught-lines/internal/app"
	owners "github.com/multimediallc/caught-lines/internal/config"
	gh "github.com/multimediallc/caught-lines/internal/github"
	"github.com/multimediallc/caught-lines/pkg/provenance"
	"github.com/urfave/cli/v2"
)

var errCheckFailed = errors.New("check failed")

// target is the pull request a command works on plus the engine that serves it.
type target struct {
	pr     provenance.PullRequestRef
	engine *provenance.Engine
	format OutputFormat
}

func pullRequestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "repo",
			Aliases:  []string{"r"},
			Usage:    "GitHub repository as owner/name",
			EnvVars:  []string{"GITHUB_REPOSITORY"},
			Required: true,
		},
		&cli.IntFlag{
			Name:     "pr",
			Aliases:  []string{"p"},
			Usage:    "Pull request number",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "default",
			Usage:   "Output format.  Allowed values are: default, one-line, json, and yaml",
		},
		&cli.IntFlag{
			Name:  "page-size",
			Value: provenance.DefaultPageSize,
			Usage: "Items requested per page (at most 100)",
		},
	}
}

func newTarget(cCtx *cli.Context, opts provenance.Options, source provenance.Source) (*target, error) {
	format, err := validateFormat(cCtx.String("format"))
	if err != nil {
		return nil, err
	}
	owner, repo, err := app.SplitRepo(cCtx.String("repo"))
	if err != nil {
		return nil, err
	}
	if cCtx.Int("pr") <= 0 {
		return nil, fmt.Errorf("pull request number must be positive")
	}
	if cCtx.IsSet("page-size") {
		opts.CommitPageSize = cCtx.Int("page-size")
		opts.FilePageSize = cCtx.Int("page-size")
		opts.HistoryPageSize = cCtx.Int("page-size")
	}

	engine := provenance.NewEngine(source, opts)
	engine.SetWarningBuffer(cCtx.App.ErrWriter)
	if cCtx.Bool("verbose") {
		engine.SetInfoBuffer(cCtx.App.ErrWriter)
	}
	return &target{
		pr:     provenance.PullRequestRef{Owner: owner, Repo: repo, Number: cCtx.Int("pr")},
		engine: engine,
		format: format,
	}, nil
}

// graphQLSource builds the API source from the global flags.
func graphQLSource(cCtx *cli.Context) (provenance.Source, error) {
	token := cCtx.String("token")
	if token == "" {
		return nil, fmt.Errorf("a GitHub token is required (--token or GITHUB_TOKEN)")
	}
	transportOpts := gh.DefaultTransportOptions()
	transportOpts.WarningBuffer = cCtx.App.ErrWriter
	httpClient := gh.NewHTTPClient(token, transportOpts)
	return gh.NewGraphQLSource(httpClient, cCtx.String("graphql-url")), nil
}

func newApp(sourceFn func(*cli.Context) (provenance.Source, error), stdin func() ([]string, error)) *cli.App {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "Print version",
	}
	cli.VersionPrinter = func(cCtx *cli.Context) {
		fmt.Fprintln(cCtx.App.Writer, cCtx.App.Version)
	}
	return &cli.App{
		Name:        "caught-cli",
		Usage:       "Find pull request lines that were overwritten before merge",
		Version:     "v0.1.0.dev",
		Description: "Reads GITHUB_TOKEN and the other settings from the environment or a .env file.",
		Before: func(cCtx *cli.Context) error {
			// the transport's retry warnings and the engine's workers share stderr
			cCtx.App.ErrWriter = provenance.NewLockedWriter(cCtx.App.ErrWriter)
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "token",
				Aliases: []string{"t"},
				Usage:   "GitHub token",
				EnvVars: []string{"GITHUB_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "graphql-url",
				Usage:   "GitHub GraphQL endpoint for GitHub Enterprise",
				EnvVars: []string{"GITHUB_GRAPHQL_URL"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Print progress to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:        "check",
				Aliases:     []string{"c"},
				Usage:       "Classify every changed file of a pull request",
				UsageText:   "caught-cli check --repo owner/name --pr N [options]",
				Description: "Blames the history of each changed file on the merge commit and reports pull request lines that a later commit overwrote. When paths are piped on stdin, only those files are checked.",
				Flags: append(pullRequestFlags(),
					&cli.StringFlag{
						Name:  "root",
						Value: "",
						Usage: "Directory holding caught.toml",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Value:   0,
						Usage:   "Files classified at once (0 uses caught.toml)",
					},
					&cli.BoolFlag{
						Name:  "all-overlaps",
						Usage: "Report every overwritten line instead of the first per range",
					},
				),
				Action: func(cCtx *cli.Context) error {
					conf := &owners.Config{Pagination: &owners.Pagination{}, Enforcement: &owners.Enforcement{}}
					if root := cCtx.String("root"); root != "" {
						var err error
						conf, err = owners.ReadConfig(root)
						if err != nil {
							return err
						}
					}
					opts := conf.ProvenanceOptions(provenance.DefaultOptions())
					if cCtx.Int("workers") > 0 {
						opts.Workers = cCtx.Int("workers")
					}
					if cCtx.Bool("all-overlaps") {
						opts.ReportAllOverlaps = true
					}
					var paths []string
					if stdin != nil {
						var err error
						if paths, err = stdin(); err != nil {
							return err
						}
					}
					source, err := sourceFn(cCtx)
					if err != nil {
						return err
					}
					t, err := newTarget(cCtx, opts, source)
					if err != nil {
						return err
					}
					listed := onlyPaths(paths)
					keep := func(path string) bool {
						return listed(path) && !conf.IsIgnored(path, cCtx.App.ErrWriter)
					}
					return runCheck(cCtx.Context, cCtx.App.Writer, t, keep, conf.Enforcement)
				},
			},
			{
				Name:        "commits",
				Usage:       "Print the merge commit and commit set of a pull request",
				UsageText:   "caught-cli commits --repo owner/name --pr N [options]",
				Description: "The first line is the merge commit history is read from; it is marked when only a potential merge commit exists.",
				Flags:       pullRequestFlags(),
				Action: func(cCtx *cli.Context) error {
					source, err := sourceFn(cCtx)
					if err != nil {
						return err
					}
					t, err := newTarget(cCtx, provenance.DefaultOptions(), source)
					if err != nil {
						return err
					}
					return runCommits(cCtx.Context, cCtx.App.Writer, t)
				},
			},
			{
				Name:        "files",
				Usage:       "List the changed files of a pull request",
				UsageText:   "caught-cli files --repo owner/name --pr N [options]",
				Description: "Lists changed paths in the order GitHub returns them.",
				Flags:       pullRequestFlags(),
				Action: func(cCtx *cli.Context) error {
					source, err := sourceFn(cCtx)
					if err != nil {
						return err
					}
					t, err := newTarget(cCtx, provenance.DefaultOptions(), source)
					if err != nil {
						return err
					}
					return runFiles(cCtx.Context, cCtx.App.Writer, t)
				},
			},
		},
	}
}

func runCheck(ctx context.Context, w io.Writer, t *target, keep provenance.PathFilter, enforcement *owners.Enforcement) error {
	report, err := t.engine.ClassifyPullRequest(ctx, t.pr, keep)
	if err != nil {
		return err
	}
	output := app.NewOutputData(report)
	output.UpdateOutputData(app.Evaluate(report, enforcement))
	if err := printCheck(w, output, t.format); err != nil {
		return err
	}
	if !output.Success {
		return errCheckFailed
	}
	return nil
}

type commitsOutput struct {
	MergeCommit string   `json:"merge_commit" yaml:"merge_commit"`
	Speculative bool     `json:"speculative" yaml:"speculative"`
	Commits     []string `json:"commits" yaml:"commits"`
}

func runCommits(ctx context.Context, w io.Writer, t *target) error {
	commits, ref, err := t.engine.ResolveCommitSet(ctx, t.pr)
	if err != nil {
		return err
	}
	ids := make([]string, 0, commits.Len())
	for _, id := range commits.Items() {
		if id != ref.ID {
			ids = append(ids, string(id))
		}
	}
	slices.Sort(ids)
	out := commitsOutput{MergeCommit: string(ref.ID), Speculative: ref.Speculative, Commits: ids}
	if ok, err := writeStructured(w, t.format, out); ok {
		return err
	}
	return printList(w, append([]string{ref.String()}, ids...), t.format)
}

func runFiles(ctx context.Context, w io.Writer, t *target) error {
	files, err := t.engine.ChangedFiles(ctx, t.pr)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(files))
	for _, file := range files {
		paths = append(paths, string(file))
	}
	return printList(w, paths, t.format)
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	stdin := func() ([]string, error) {
		if !isStdinPiped() {
			return nil, nil
		}
		return scanPaths(os.Stdin)
	}
	cliApp := newApp(graphQLSource, stdin)
	cliApp.Writer = os.Stdout
	cliApp.ErrWriter = os.Stderr

	err := cliApp.Run(os.Args)
	if errors.Is(err, errCheckFailed) {
		os.Exit(1)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
