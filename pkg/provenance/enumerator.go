package provenance

import (
	"context"
	"fmt"
)

// ChangedFiles lists the paths touched by the pull request in the order the
// source returns them. Duplicates are kept.
func (e *Engine) ChangedFiles(ctx context.Context, pr PullRequestRef) ([]ChangedFile, error) {
	files := make([]ChangedFile, 0)
	err := walkCursor(ctx, e.opts.MaxPages, func(after string) (PageInfo, error) {
		page, err := e.source.FilesPage(ctx, pr, after, e.opts.FilePageSize)
		if err != nil {
			return PageInfo{}, err
		}
		if page == nil {
			return PageInfo{}, &MalformedResponseError{Detail: "empty files page"}
		}
		for _, path := range page.Paths {
			files = append(files, ChangedFile(path))
		}
		return page.PageInfo, nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing changed files of %s: %w", pr, err)
	}
	e.printDebug("Found %d changed files in %s\n", len(files), pr)
	return files, nil
}
