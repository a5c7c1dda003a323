package provenance

import (
	"context"
	"fmt"

	f "github.com/multimediallc/caught-lines/pkg/functional"
)

// Classify walks the history of path on ref, newest revision first, and
// compares each revision's blame against the pull request's commit set.
// Lines blamed on a pull request commit become owned and stay owned. A
// range blamed on any other commit that covers an owned line is caught.
func (e *Engine) Classify(ctx context.Context, pr PullRequestRef, commits CommitIDSet, ref MergeCommitRef, path string) (*ClassificationResult, error) {
	c := newClassification(path, commits, e.opts.ReportAllOverlaps)
	err := walkCursor(ctx, e.opts.MaxPages, func(after string) (PageInfo, error) {
		page, err := e.source.HistoryPage(ctx, pr, ref.ID, path, after, e.opts.HistoryPageSize)
		if err != nil {
			return PageInfo{}, err
		}
		if page == nil {
			return PageInfo{}, &MalformedResponseError{Detail: "empty history page for " + path}
		}
		for _, node := range page.Nodes {
			if err := c.observe(node); err != nil {
				return PageInfo{}, err
			}
		}
		return page.PageInfo, nil
	})
	if err != nil {
		return nil, fmt.Errorf("classifying %s on %s: %w", path, ref.ID, err)
	}
	result := c.result()
	e.printDebug("%s: %s after %d revisions, %d owned lines, %d caught\n", path, result.Outcome, result.HistoryNodes, result.OwnedLines.Len(), len(result.Caught))
	return result, nil
}

type classification struct {
	path      string
	commits   CommitIDSet
	reportAll bool

	owned             f.Set[int]
	caught            []CaughtEvent
	nodes             int
	foreignAfterOwned bool
}

func newClassification(path string, commits CommitIDSet, reportAll bool) *classification {
	return &classification{
		path:      path,
		commits:   commits,
		reportAll: reportAll,
		owned:     f.NewSet[int](),
		caught:    make([]CaughtEvent, 0),
	}
}

func (c *classification) observe(node HistoryNode) error {
	c.nodes++
	for _, r := range node.Blame {
		if err := r.validate(); err != nil {
			return err
		}
		if c.commits.Contains(r.Commit) {
			for line := r.StartingLine; line <= r.EndingLine; line++ {
				c.owned.Add(line)
			}
			continue
		}
		if c.owned.Len() == 0 {
			continue
		}
		c.foreignAfterOwned = true
		if lines := c.overlap(r); len(lines) > 0 {
			c.caught = append(c.caught, CaughtEvent{
				Path:     c.path,
				Lines:    lines,
				Range:    r,
				Revision: node.Commit,
			})
		}
	}
	return nil
}

// overlap returns the owned lines inside r in ascending order, stopping at
// the first one unless every overlap is requested.
func (c *classification) overlap(r BlameRange) []int {
	lines := make([]int, 0, 1)
	for line := r.StartingLine; line <= r.EndingLine; line++ {
		if !c.owned.Contains(line) {
			continue
		}
		lines = append(lines, line)
		if !c.reportAll {
			break
		}
	}
	return lines
}

func (c *classification) result() *ClassificationResult {
	outcome := OutcomeClassified
	switch {
	case c.nodes == 0:
		outcome = OutcomeHistoryNotFound
	case c.owned.Len() > 0 && !c.foreignAfterOwned:
		outcome = OutcomeNewlyIntroduced
	}
	return &ClassificationResult{
		Path:         c.path,
		Outcome:      outcome,
		OwnedLines:   c.owned,
		Caught:       c.caught,
		HistoryNodes: c.nodes,
	}
}
