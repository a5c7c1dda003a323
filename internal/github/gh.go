package gh

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v63/github"
)

const defaultAPIURL = "https://api.github.com"

type NoPRError struct{}

func (e NoPRError) Error() string {
	return "PR not initialized"
}

type Client interface {
	SetWarningBuffer(writer io.Writer)
	SetInfoBuffer(writer io.Writer)
	InitPR(prID int) error
	PR() *github.PullRequest
	IsInLabels(labels []string) (bool, error)
	InitComments() error
	AddComment(comment string) error
	FindExistingComment(prefix string, since *time.Time) (int64, bool, error)
	UpdateComment(commentID int64, body string) error
}

type GHClient struct {
	ctx           context.Context
	owner         string
	repo          string
	client        *github.Client
	pr            *github.PullRequest
	comments      []*github.IssueComment
	warningBuffer io.Writer
	infoBuffer    io.Writer
}

// NewClient builds a REST client on httpClient. apiURL selects a GitHub
// Enterprise server and may be empty.
func NewClient(ctx context.Context, owner, repo string, httpClient *http.Client, apiURL string) (Client, error) {
	client := github.NewClient(httpClient)
	if apiURL != "" && strings.TrimSuffix(apiURL, "/") != defaultAPIURL {
		var err error
		client, err = client.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API URL %s: %w", apiURL, err)
		}
	}
	return &GHClient{
		ctx:           ctx,
		owner:         owner,
		repo:          repo,
		client:        client,
		warningBuffer: io.Discard,
		infoBuffer:    io.Discard,
	}, nil
}

func (gh *GHClient) PR() *github.PullRequest {
	return gh.pr
}

func (gh *GHClient) SetWarningBuffer(writer io.Writer) {
	gh.warningBuffer = writer
}

func (gh *GHClient) SetInfoBuffer(writer io.Writer) {
	gh.infoBuffer = writer
}

func (gh *GHClient) InitPR(prID int) error {
	pull, res, err := gh.client.PullRequests.Get(gh.ctx, gh.owner, gh.repo, prID)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	gh.pr = pull
	return nil
}

// IsInLabels checks if the PR has any of the given labels
func (gh *GHClient) IsInLabels(labels []string) (bool, error) {
	if gh.pr == nil {
		return false, &NoPRError{}
	}
	if len(labels) == 0 {
		return false, nil
	}
	for _, label := range gh.pr.Labels {
		for _, targetLabel := range labels {
			if strings.EqualFold(label.GetName(), targetLabel) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (gh *GHClient) InitComments() error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	allComments := make([]*github.IssueComment, 0)
	listComments := func(page int) (*github.Response, error) {
		listOptions := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100, Page: page}}
		comments, res, err := gh.client.Issues.ListComments(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), listOptions)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = res.Body.Close()
		}()
		allComments = append(allComments, comments...)
		return res, err
	}
	err := walkPaginatedApi(listComments)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(gh.infoBuffer, "Fetched %d comments on PR #%d\n", len(allComments), gh.pr.GetNumber())
	gh.comments = allComments
	return nil
}

func (gh *GHClient) AddComment(comment string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	createCommentOptions := &github.IssueComment{
		Body: &comment,
	}
	_, res, err := gh.client.Issues.CreateComment(gh.ctx, gh.owner, gh.repo, gh.pr.GetNumber(), createCommentOptions)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

func (gh *GHClient) FindExistingComment(prefix string, since *time.Time) (int64, bool, error) {
	if gh.pr == nil {
		return 0, false, &NoPRError{}
	}
	if err := gh.InitComments(); err != nil {
		return 0, false, err
	}

	for _, comment := range gh.comments {
		if since != nil && comment.GetCreatedAt().Before(*since) {
			continue
		}
		if strings.HasPrefix(comment.GetBody(), prefix) {
			return comment.GetID(), true, nil
		}
	}
	return 0, false, nil
}

func (gh *GHClient) UpdateComment(commentID int64, body string) error {
	if gh.pr == nil {
		return &NoPRError{}
	}
	comment := &github.IssueComment{
		Body: &body,
	}
	_, res, err := gh.client.Issues.EditComment(gh.ctx, gh.owner, gh.repo, commentID, comment)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	return nil
}

const maxRESTPages = 100

func walkPaginatedApi(apiCall func(int) (*github.Response, error)) error {
	page := 1
	for range maxRESTPages {
		res, err := apiCall(page)
		if err != nil {
			return err
		}
		if res.NextPage == 0 || res.NextPage <= page {
			return nil
		}
		page = res.NextPage
	}
	return fmt.Errorf("stopped listing after %d pages", maxRESTPages)
}
