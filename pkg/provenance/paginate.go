package provenance

import (
	"context"

	f "github.com/multimediallc/caught-lines/pkg/functional"
)

// walkCursor calls fetch with successive cursors until the source reports
// no further page. The walk is bounded by maxPages and fails if the source
// hands back a cursor it has already returned, or none while claiming
// another page.
func walkCursor(ctx context.Context, maxPages int, fetch func(after string) (PageInfo, error)) error {
	seen := f.NewSet[string]()
	after := ""
	for pages := 0; ; pages++ {
		if pages >= maxPages {
			return &PaginationError{Reason: ReasonPageLimit, Cursor: after, Pages: pages}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		pageInfo, err := fetch(after)
		if err != nil {
			return err
		}
		if !pageInfo.HasNextPage {
			return nil
		}
		if pageInfo.EndCursor == "" {
			return &PaginationError{Reason: ReasonCursorMissing, Cursor: after, Pages: pages + 1}
		}
		if seen.Contains(pageInfo.EndCursor) {
			return &PaginationError{Reason: ReasonCursorRepeated, Cursor: pageInfo.EndCursor, Pages: pages + 1}
		}
		seen.Add(pageInfo.EndCursor)
		after = pageInfo.EndCursor
	}
}
