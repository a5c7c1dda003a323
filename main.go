package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/multimediallc/caught-lines/internal/app"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func ignoreError[V any, E error](res V, _ E) V {
	return res
}

var (
	WarningBuffer = bytes.NewBuffer([]byte{})
	InfoBuffer    = bytes.NewBuffer([]byte{})
	flags         = &Flags{
		Token:       flag.String("token", getEnv("INPUT_GITHUB-TOKEN", ""), "GitHub authentication token"),
		RepoDir:     flag.String("dir", getEnv("GITHUB_WORKSPACE", "/"), "Path to local checkout holding caught.toml"),
		PR:          flag.Int("pr", ignoreError(strconv.Atoi(getEnv("INPUT_PR", ""))), "Pull Request number"),
		Repo:        flag.String("repo", getEnv("INPUT_REPOSITORY", ""), "GitHub repo name"),
		Verbose:     flag.Bool("v", ignoreError(strconv.ParseBool(getEnv("INPUT_VERBOSE", "0"))), "Verbose output"),
		AddComments: flag.Bool("add-comment", ignoreError(strconv.ParseBool(getEnv("INPUT_ADD-COMMENT", "0"))), "Post the report as a PR comment"),
		Workers:     flag.Int("workers", ignoreError(strconv.Atoi(getEnv("INPUT_WORKERS", "0"))), "Files classified at once (0 uses caught.toml)"),
		APIURL:      flag.String("api-url", getEnv("GITHUB_API_URL", ""), "GitHub REST API URL"),
		GraphQLURL:  flag.String("graphql-url", getEnv("GITHUB_GRAPHQL_URL", ""), "GitHub GraphQL API URL"),
	}
)

type Flags struct {
	Token       *string
	RepoDir     *string
	PR          *int
	Repo        *string
	Verbose     *bool
	AddComments *bool
	Workers     *int
	APIURL      *string
	GraphQLURL  *string
}

func initFlags(flags *Flags) error {
	flag.Parse()
	badFlags := make([]string, 0, 4)
	if flags.Token == nil || *flags.Token == "" {
		badFlags = append(badFlags, "token")
	}
	if flags.PR == nil || *flags.PR == 0 {
		badFlags = append(badFlags, "pr")
	}
	if flags.Repo == nil || *flags.Repo == "" {
		badFlags = append(badFlags, "repo")
	}
	if len(badFlags) > 0 {
		return fmt.Errorf("required flags or environment variables not set: %s", badFlags)
	}
	return nil
}

func isVerbose() bool {
	return flags.Verbose != nil && *flags.Verbose
}

// shouldFail should always be true for errors that are not recoverable
func errorAndExit(shouldFail bool, format string, args ...interface{}) {
	_, err := WarningBuffer.WriteTo(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing warning buffer: %v\n", err)
	}
	// verbose-only lines are gated when written
	_, err = InfoBuffer.WriteTo(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing info buffer: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, format, args...)
	if shouldFail {
		os.Exit(1)
	} else {
		os.Exit(0)
	}
}

func printDebug(format string, args ...interface{}) {
	if isVerbose() {
		fmt.Fprintf(InfoBuffer, format, args...)
	}
}

func printWarning(format string, args ...interface{}) {
	fmt.Fprintf(WarningBuffer, format, args...)
}

// writeOutput appends the JSON encoded output to the GITHUB_OUTPUT file
// under the key "data".
func writeOutput(outputPath string, output *app.OutputData) error {
	if outputPath == "" {
		return nil
	}
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	file, err := os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()
	_, err = fmt.Fprintf(file, "data=%s\n", data)
	return err
}

func main() {
	if err := initFlags(flags); err != nil {
		errorAndExit(true, "%v\n", err)
	}

	ctx := context.Background()
	cfg := app.Config{
		Token:         *flags.Token,
		RepoDir:       *flags.RepoDir,
		PR:            *flags.PR,
		Repo:          *flags.Repo,
		Verbose:       *flags.Verbose,
		AddComments:   *flags.AddComments,
		Workers:       *flags.Workers,
		APIURL:        *flags.APIURL,
		GraphQLURL:    *flags.GraphQLURL,
		InfoBuffer:    InfoBuffer,
		WarningBuffer: WarningBuffer,
	}

	caughtApp, err := app.New(ctx, cfg)
	if err != nil {
		errorAndExit(true, "Failed to initialize app: %v\n", err)
	}

	output, err := caughtApp.Run(ctx)
	if writeErr := writeOutput(os.Getenv("GITHUB_OUTPUT"), output); writeErr != nil {
		printWarning("WARNING: Error writing GITHUB_OUTPUT: %v\n", writeErr)
	}
	if err != nil {
		errorAndExit(true, "%v\n", err)
	}
	printDebug("Checked %d files of %s\n", len(output.Files), output.PullRequest)

	if !output.Success {
		errorAndExit(true, "FAIL: %s\n", output.Message)
	}

	_, err = WarningBuffer.WriteTo(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing warning buffer: %v\n", err)
	}
	_, err = InfoBuffer.WriteTo(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing info buffer: %v\n", err)
	}
	fmt.Println(output.Message)
}
