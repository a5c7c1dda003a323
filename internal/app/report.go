package app

import (
	"fmt"
	"strings"

	f "github.com/multimediallc/caught-lines/pkg/functional"
	"github.com/multimediallc/caught-lines/pkg/provenance"
)

const commentPrefix = "<!-- caught-lines -->"

// ReportComment renders the pull request comment for report.
func ReportComment(report *provenance.PullRequestReport) string {
	var sb strings.Builder
	sb.WriteString(commentPrefix)
	sb.WriteString("\n")

	caught := report.Caught()
	if len(caught) == 0 {
		sb.WriteString("No lines written by this pull request were overwritten before merge.\n")
	} else {
		sb.WriteString("Lines written by this pull request were overwritten by later commits:\n\n")
		sb.WriteString("| File | Lines | Commit | Message |\n")
		sb.WriteString("| --- | --- | --- | --- |\n")
		for _, event := range caught {
			lines := strings.Join(f.Map(event.Lines, func(l int) string { return fmt.Sprint(l) }), ", ")
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", event.Path, lines, shortCommit(event.Range.Commit), escapeCell(event.Range.MessageHeadline))
		}
	}

	if failed := report.Failed(); len(failed) > 0 {
		sb.WriteString("\nThe following files could not be checked:\n")
		for _, file := range failed {
			fmt.Fprintf(&sb, "- `%s`\n", file.Path)
		}
	}

	if report.MergeCommit.Speculative {
		fmt.Fprintf(&sb, "\n_Checked against potential merge commit %s._\n", shortCommit(report.MergeCommit.ID))
	}
	return sb.String()
}

func shortCommit(id provenance.CommitID) string {
	if len(id) > 7 {
		return string(id[:7])
	}
	return string(id)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// addReportComment updates the existing report comment, or adds one when
// there is something to report.
func (a *App) addReportComment(report *provenance.PullRequestReport) error {
	comment := ReportComment(report)

	existingCommentID, found, err := a.client.FindExistingComment(commentPrefix, nil)
	if err != nil {
		return fmt.Errorf("FindExistingComment Error: %v", err)
	}

	if found {
		a.printDebug("Updating existing report comment %d\n", existingCommentID)
		return a.client.UpdateComment(existingCommentID, comment)
	}
	if len(report.Caught()) == 0 && len(report.Failed()) == 0 {
		a.printDebug("Nothing to report, not adding a comment\n")
		return nil
	}
	return a.client.AddComment(comment)
}
