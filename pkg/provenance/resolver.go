package provenance

import (
	"context"
	"fmt"

	f "github.com/multimediallc/caught-lines/pkg/functional"
)

// ResolveCommitSet collects the pull request's own commit ids and picks the
// commit whose history is blamed. The merge commit wins over the potential
// merge commit; both are read from the first page only.
func (e *Engine) ResolveCommitSet(ctx context.Context, pr PullRequestRef) (CommitIDSet, MergeCommitRef, error) {
	commits := f.NewSet[CommitID]()
	var ref MergeCommitRef
	first := true

	err := walkCursor(ctx, e.opts.MaxPages, func(after string) (PageInfo, error) {
		page, err := e.source.CommitsPage(ctx, pr, after, e.opts.CommitPageSize)
		if err != nil {
			return PageInfo{}, err
		}
		if page == nil {
			return PageInfo{}, &MalformedResponseError{Detail: "empty commits page"}
		}
		if first {
			first = false
			ref = selectMergeCommit(page.MergeCommit, page.PotentialMergeCommit)
			if ref.ID != "" {
				commits.Add(ref.ID)
			}
		}
		for _, id := range page.Commits {
			commits.Add(id)
		}
		return page.PageInfo, nil
	})
	if err != nil {
		return nil, MergeCommitRef{}, fmt.Errorf("listing commits of %s: %w", pr, err)
	}
	if ref.ID == "" {
		return nil, MergeCommitRef{}, &NoMergeCommitError{PullRequest: pr}
	}
	e.printDebug("Resolved %d commits for %s, blaming %s\n", commits.Len(), pr, ref)
	return commits, ref, nil
}

func selectMergeCommit(merge, potential CommitID) MergeCommitRef {
	if merge != "" {
		return MergeCommitRef{ID: merge}
	}
	if potential != "" {
		return MergeCommitRef{ID: potential, Speculative: true}
	}
	return MergeCommitRef{}
}
