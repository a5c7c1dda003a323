package provenance

import (
	"context"
	"fmt"

	f "github.com/multimediallc/caught-lines/pkg/functional"
)

// CommitID identifies a single revision. Comparison is exact.
type CommitID string

type CommitIDSet = f.Set[CommitID]

// MergeCommitRef is the commit whose file history is blamed.
type MergeCommitRef struct {
	ID          CommitID
	Speculative bool
}

func (r MergeCommitRef) String() string {
	if r.Speculative {
		return fmt.Sprintf("%s (potential merge)", r.ID)
	}
	return string(r.ID)
}

type ChangedFile string

type PullRequestRef struct {
	Owner  string
	Repo   string
	Number int
}

func (p PullRequestRef) String() string {
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repo, p.Number)
}

// BlameRange attributes the inclusive span [StartingLine, EndingLine] to Commit.
type BlameRange struct {
	StartingLine    int      `json:"starting_line" yaml:"starting_line"`
	EndingLine      int      `json:"ending_line" yaml:"ending_line"`
	Commit          CommitID `json:"commit" yaml:"commit"`
	MessageHeadline string   `json:"message_headline" yaml:"message_headline"`
}

func (b BlameRange) Contains(line int) bool {
	return line >= b.StartingLine && line <= b.EndingLine
}

func (b BlameRange) validate() error {
	if b.StartingLine < 1 || b.EndingLine < b.StartingLine {
		return &MalformedResponseError{Detail: fmt.Sprintf("invalid blame range [%d,%d] for commit %s", b.StartingLine, b.EndingLine, b.Commit)}
	}
	return nil
}

type HistoryNode struct {
	Commit CommitID
	Blame  []BlameRange
}

type PageInfo struct {
	EndCursor   string
	HasNextPage bool
}

// CommitsPage is one page of a pull request's commits. The merge commit
// fields are only meaningful on the first page.
type CommitsPage struct {
	MergeCommit          CommitID
	PotentialMergeCommit CommitID
	Commits              []CommitID
	PageInfo             PageInfo
}

type FilesPage struct {
	Paths    []string
	PageInfo PageInfo
}

type HistoryPage struct {
	Nodes    []HistoryNode
	PageInfo PageInfo
}

// Source executes the paginated queries the engine needs. An empty after
// cursor requests the first page.
type Source interface {
	CommitsPage(ctx context.Context, pr PullRequestRef, after string, first int) (*CommitsPage, error)
	FilesPage(ctx context.Context, pr PullRequestRef, after string, first int) (*FilesPage, error)
	HistoryPage(ctx context.Context, pr PullRequestRef, rev CommitID, path string, after string, first int) (*HistoryPage, error)
}

type Outcome int

const (
	OutcomeClassified Outcome = iota
	OutcomeHistoryNotFound
	OutcomeNewlyIntroduced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClassified:
		return "classified"
	case OutcomeHistoryNotFound:
		return "history_not_found"
	case OutcomeNewlyIntroduced:
		return "newly_introduced"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// CaughtEvent is a foreign blame range that overlaps lines owned by the pull request.
type CaughtEvent struct {
	Path     string     `json:"path" yaml:"path"`
	Lines    []int      `json:"lines" yaml:"lines"`
	Range    BlameRange `json:"range" yaml:"range"`
	Revision CommitID   `json:"revision" yaml:"revision"`
}

func (c CaughtEvent) String() string {
	return fmt.Sprintf("%s:%v overwritten by %s %q", c.Path, c.Lines, c.Range.Commit, c.Range.MessageHeadline)
}

type ClassificationResult struct {
	Path         string
	Outcome      Outcome
	OwnedLines   f.Set[int]
	Caught       []CaughtEvent
	HistoryNodes int
}

type FileReport struct {
	Path   string
	Result *ClassificationResult
	Err    error
}

type PullRequestReport struct {
	PullRequest PullRequestRef
	MergeCommit MergeCommitRef
	Commits     CommitIDSet
	Files       []FileReport
}

// Caught returns every caught event across files, in file order.
func (r *PullRequestReport) Caught() []CaughtEvent {
	caught := make([]CaughtEvent, 0)
	for _, file := range r.Files {
		if file.Result != nil {
			caught = append(caught, file.Result.Caught...)
		}
	}
	return caught
}

func (r *PullRequestReport) Failed() []FileReport {
	return f.Filtered(r.Files, func(fr FileReport) bool { return fr.Err != nil })
}
