package app

import (
	f "github.com/multimediallc/caught-lines/pkg/functional"
	"github.com/multimediallc/caught-lines/pkg/provenance"
)

// OutputData holds the data that will be written to GITHUB_OUTPUT
type OutputData struct {
	PullRequest string                   `json:"pull_request" yaml:"pull_request"`
	MergeCommit string                   `json:"merge_commit" yaml:"merge_commit"`
	Speculative bool                     `json:"speculative_merge_commit" yaml:"speculative_merge_commit"`
	Commits     []string                 `json:"commits" yaml:"commits"`
	Files       []FileOutput             `json:"files" yaml:"files"`
	Caught      []provenance.CaughtEvent `json:"caught" yaml:"caught"`
	Skipped     bool                     `json:"skipped" yaml:"skipped"`
	Success     bool                     `json:"success" yaml:"success"`
	Message     string                   `json:"message" yaml:"message"`
}

type FileOutput struct {
	Path       string `json:"path" yaml:"path"`
	Outcome    string `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	OwnedLines []int  `json:"owned_lines,omitempty" yaml:"owned_lines,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

func NewOutputData(report *provenance.PullRequestReport) *OutputData {
	commits := f.Map(f.SortedItems(report.Commits), func(c provenance.CommitID) string { return string(c) })
	files := f.Map(report.Files, func(fr provenance.FileReport) FileOutput {
		if fr.Err != nil {
			return FileOutput{Path: fr.Path, Error: fr.Err.Error()}
		}
		return FileOutput{
			Path:       fr.Path,
			Outcome:    fr.Result.Outcome.String(),
			OwnedLines: f.SortedItems(fr.Result.OwnedLines),
		}
	})
	return &OutputData{
		PullRequest: report.PullRequest.String(),
		MergeCommit: string(report.MergeCommit.ID),
		Speculative: report.MergeCommit.Speculative,
		Commits:     commits,
		Files:       files,
		Caught:      report.Caught(),
		Success:     false,
		Message:     "",
	}
}

func newSkippedOutputData(pr provenance.PullRequestRef) *OutputData {
	return &OutputData{
		PullRequest: pr.String(),
		Commits:     []string{},
		Files:       []FileOutput{},
		Caught:      []provenance.CaughtEvent{},
		Skipped:     true,
		Success:     true,
	}
}

func (od *OutputData) UpdateOutputData(success bool, message string) {
	od.Success = success
	od.Message = message
}
