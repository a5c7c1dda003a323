package gh

import (
	"context"
	"fmt"
	"net/http"

	"github.com/multimediallc/caught-lines/pkg/provenance"
	"github.com/shurcooL/githubv4"
)

type NotFoundError struct {
	What string
}

func (e NotFoundError) Error() string {
	return e.What + " not found"
}

type pageInfo struct {
	EndCursor   githubv4.String
	HasNextPage githubv4.Boolean
}

func (p pageInfo) toPageInfo() provenance.PageInfo {
	return provenance.PageInfo{EndCursor: string(p.EndCursor), HasNextPage: bool(p.HasNextPage)}
}

type commitRef struct {
	Oid githubv4.GitObjectID
}

type commitsQuery struct {
	Repository struct {
		PullRequest *struct {
			MergeCommit          *commitRef
			PotentialMergeCommit *commitRef
			Commits              struct {
				Nodes []struct {
					Commit commitRef
				}
				PageInfo pageInfo
			} `graphql:"commits(first: $first, after: $after)"`
		} `graphql:"pullRequest(number: $number)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type filesQuery struct {
	Repository struct {
		PullRequest *struct {
			Files struct {
				Nodes []struct {
					Path githubv4.String
				}
				PageInfo pageInfo
			} `graphql:"files(first: $first, after: $after)"`
		} `graphql:"pullRequest(number: $number)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type blameRange struct {
	StartingLine githubv4.Int
	EndingLine   githubv4.Int
	Commit       struct {
		Oid             githubv4.GitObjectID
		MessageHeadline githubv4.String
	}
}

type historyQuery struct {
	Repository struct {
		Object *struct {
			Commit struct {
				History struct {
					Nodes []struct {
						Oid   githubv4.GitObjectID
						Blame struct {
							Ranges []blameRange
						} `graphql:"blame(path: $path)"`
					}
					PageInfo pageInfo
				} `graphql:"history(first: $first, after: $after, path: $path)"`
			} `graphql:"... on Commit"`
		} `graphql:"object(oid: $oid)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// GraphQLSource serves the provenance engine from the GitHub GraphQL API.
type GraphQLSource struct {
	client *githubv4.Client
}

// NewGraphQLSource uses endpoint when set (GitHub Enterprise), otherwise
// api.github.com.
func NewGraphQLSource(httpClient *http.Client, endpoint string) *GraphQLSource {
	if endpoint == "" {
		return &GraphQLSource{client: githubv4.NewClient(httpClient)}
	}
	return &GraphQLSource{client: githubv4.NewEnterpriseClient(endpoint, httpClient)}
}

func cursor(after string) *githubv4.String {
	if after == "" {
		return nil
	}
	return githubv4.NewString(githubv4.String(after))
}

func pullRequestVariables(pr provenance.PullRequestRef, after string, first int) map[string]interface{} {
	return map[string]interface{}{
		"owner":  githubv4.String(pr.Owner),
		"name":   githubv4.String(pr.Repo),
		"number": githubv4.Int(pr.Number),
		"first":  githubv4.Int(first),
		"after":  cursor(after),
	}
}

func (s *GraphQLSource) CommitsPage(ctx context.Context, pr provenance.PullRequestRef, after string, first int) (*provenance.CommitsPage, error) {
	var q commitsQuery
	if err := s.client.Query(ctx, &q, pullRequestVariables(pr, after, first)); err != nil {
		return nil, err
	}
	pull := q.Repository.PullRequest
	if pull == nil {
		return nil, &NotFoundError{What: fmt.Sprintf("pull request %s", pr)}
	}
	page := &provenance.CommitsPage{
		Commits:  make([]provenance.CommitID, 0, len(pull.Commits.Nodes)),
		PageInfo: pull.Commits.PageInfo.toPageInfo(),
	}
	if pull.MergeCommit != nil {
		page.MergeCommit = provenance.CommitID(pull.MergeCommit.Oid)
	}
	if pull.PotentialMergeCommit != nil {
		page.PotentialMergeCommit = provenance.CommitID(pull.PotentialMergeCommit.Oid)
	}
	for _, node := range pull.Commits.Nodes {
		page.Commits = append(page.Commits, provenance.CommitID(node.Commit.Oid))
	}
	return page, nil
}

func (s *GraphQLSource) FilesPage(ctx context.Context, pr provenance.PullRequestRef, after string, first int) (*provenance.FilesPage, error) {
	var q filesQuery
	if err := s.client.Query(ctx, &q, pullRequestVariables(pr, after, first)); err != nil {
		return nil, err
	}
	pull := q.Repository.PullRequest
	if pull == nil {
		return nil, &NotFoundError{What: fmt.Sprintf("pull request %s", pr)}
	}
	page := &provenance.FilesPage{
		Paths:    make([]string, 0, len(pull.Files.Nodes)),
		PageInfo: pull.Files.PageInfo.toPageInfo(),
	}
	for _, node := range pull.Files.Nodes {
		page.Paths = append(page.Paths, string(node.Path))
	}
	return page, nil
}

func (s *GraphQLSource) HistoryPage(ctx context.Context, pr provenance.PullRequestRef, rev provenance.CommitID, path string, after string, first int) (*provenance.HistoryPage, error) {
	var q historyQuery
	variables := map[string]interface{}{
		"owner": githubv4.String(pr.Owner),
		"name":  githubv4.String(pr.Repo),
		"oid":   githubv4.GitObjectID(rev),
		"path":  githubv4.String(path),
		"first": githubv4.Int(first),
		"after": cursor(after),
	}
	if err := s.client.Query(ctx, &q, variables); err != nil {
		return nil, err
	}
	object := q.Repository.Object
	if object == nil {
		return nil, &NotFoundError{What: fmt.Sprintf("revision %s in %s/%s", rev, pr.Owner, pr.Repo)}
	}
	history := object.Commit.History
	page := &provenance.HistoryPage{
		Nodes:    make([]provenance.HistoryNode, 0, len(history.Nodes)),
		PageInfo: history.PageInfo.toPageInfo(),
	}
	for _, node := range history.Nodes {
		blame := make([]provenance.BlameRange, 0, len(node.Blame.Ranges))
		for _, r := range node.Blame.Ranges {
			blame = append(blame, provenance.BlameRange{
				StartingLine:    int(r.StartingLine),
				EndingLine:      int(r.EndingLine),
				Commit:          provenance.CommitID(r.Commit.Oid),
				MessageHeadline: string(r.Commit.MessageHeadline),
			})
		}
		page.Nodes = append(page.Nodes, provenance.HistoryNode{Commit: provenance.CommitID(node.Oid), Blame: blame})
	}
	return page, nil
}
