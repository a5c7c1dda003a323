package provenance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// fakeSource serves in-memory data in pages addressed by "cursor-<offset>".
type fakeSource struct {
	mu sync.Mutex

	mergeCommit          CommitID
	potentialMergeCommit CommitID
	commits              []CommitID
	files                []string
	history              map[string][]HistoryNode

	commitsErr error
	filesErr   error
	historyErr map[string]error

	calls map[string]int
	revs  []CommitID
}

func (s *fakeSource) record(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[key]++
}

func (s *fakeSource) callCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func page[T any](items []T, after string, first int) ([]T, PageInfo, error) {
	start := 0
	if after != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(after, "cursor-"))
		if err != nil {
			return nil, PageInfo{}, fmt.Errorf("bad cursor %q", after)
		}
		start = n
	}
	start = min(start, len(items))
	end := min(start+first, len(items))
	info := PageInfo{HasNextPage: end < len(items)}
	if end > start {
		info.EndCursor = fmt.Sprintf("cursor-%d", end)
	}
	return items[start:end], info, nil
}

func (s *fakeSource) CommitsPage(ctx context.Context, pr PullRequestRef, after string, first int) (*CommitsPage, error) {
	s.record("commits")
	if s.commitsErr != nil {
		return nil, s.commitsErr
	}
	commits, info, err := page(s.commits, after, first)
	if err != nil {
		return nil, err
	}
	result := &CommitsPage{Commits: commits, PageInfo: info}
	if after == "" {
		result.MergeCommit = s.mergeCommit
		result.PotentialMergeCommit = s.potentialMergeCommit
	}
	return result, nil
}

func (s *fakeSource) FilesPage(ctx context.Context, pr PullRequestRef, after string, first int) (*FilesPage, error) {
	s.record("files")
	if s.filesErr != nil {
		return nil, s.filesErr
	}
	paths, info, err := page(s.files, after, first)
	if err != nil {
		return nil, err
	}
	return &FilesPage{Paths: paths, PageInfo: info}, nil
}

func (s *fakeSource) HistoryPage(ctx context.Context, pr PullRequestRef, rev CommitID, path string, after string, first int) (*HistoryPage, error) {
	s.record("history:" + path)
	s.mu.Lock()
	s.revs = append(s.revs, rev)
	s.mu.Unlock()
	if err, ok := s.historyErr[path]; ok {
		return nil, err
	}
	nodes, info, err := page(s.history[path], after, first)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Nodes: nodes, PageInfo: info}, nil
}

func commitIDs(prefix string, n int) []CommitID {
	ids := make([]CommitID, n)
	for i := range ids {
		ids[i] = CommitID(fmt.Sprintf("%s%d", prefix, i+1))
	}
	return ids
}

var testPR = PullRequestRef{Owner: "acme", Repo: "widgets", Number: 42}
