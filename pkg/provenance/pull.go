package provenance

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// PathFilter reports whether a changed file should be classified.
type PathFilter func(path string) bool

// ClassifyPullRequest resolves the commit set and changed files of pr and
// classifies every file that passes keep. Resolver and enumerator failures
// abort the run; a failure classifying one file is recorded on its
// FileReport and the remaining files are still classified.
func (e *Engine) ClassifyPullRequest(ctx context.Context, pr PullRequestRef, keep PathFilter) (*PullRequestReport, error) {
	commits, ref, err := e.ResolveCommitSet(ctx, pr)
	if err != nil {
		return nil, err
	}
	files, err := e.ChangedFiles(ctx, pr)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		path := string(file)
		if keep != nil && !keep(path) {
			e.printDebug("Skipping ignored file %s\n", path)
			continue
		}
		paths = append(paths, path)
	}

	report := &PullRequestReport{
		PullRequest: pr,
		MergeCommit: ref,
		Commits:     commits,
		Files:       make([]FileReport, len(paths)),
	}

	memo := newResultMemo()
	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			result, err := memo.do(path, func() (*ClassificationResult, error) {
				return e.Classify(ctx, pr, commits, ref, path)
			})
			if err != nil {
				e.printWarn("WARNING: %v\n", err)
			}
			report.Files[i] = FileReport{Path: path, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return report, nil
}

// resultMemo classifies each path at most once per run, including when the
// same path is requested by two workers at the same time. Failures are not
// remembered.
type resultMemo struct {
	cache *gocache.Cache
	group singleflight.Group
}

func newResultMemo() *resultMemo {
	return &resultMemo{cache: gocache.New(gocache.NoExpiration, 0)}
}

func (m *resultMemo) do(path string, classify func() (*ClassificationResult, error)) (*ClassificationResult, error) {
	if cached, ok := m.cache.Get(path); ok {
		return cached.(*ClassificationResult), nil
	}
	v, err, _ := m.group.Do(path, func() (interface{}, error) {
		if cached, ok := m.cache.Get(path); ok {
			return cached, nil
		}
		result, err := classify()
		if err != nil {
			return nil, err
		}
		m.cache.SetDefault(path, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ClassificationResult), nil
}
