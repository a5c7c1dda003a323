package provenance

import "fmt"

type NoMergeCommitError struct {
	PullRequest PullRequestRef
}

func (e NoMergeCommitError) Error() string {
	return fmt.Sprintf("pull request %s has neither a merge commit nor a potential merge commit", e.PullRequest)
}

type PaginationReason string

const (
	ReasonPageLimit      PaginationReason = "page limit reached"
	ReasonCursorRepeated PaginationReason = "cursor repeated"
	ReasonCursorMissing  PaginationReason = "next page without a cursor"
)

type PaginationError struct {
	Reason PaginationReason
	Cursor string
	Pages  int
}

func (e PaginationError) Error() string {
	return fmt.Sprintf("pagination stopped after %d pages: %s (cursor %q)", e.Pages, e.Reason, e.Cursor)
}

type MalformedResponseError struct {
	Detail string
}

func (e MalformedResponseError) Error() string {
	return "malformed response: " + e.Detail
}
