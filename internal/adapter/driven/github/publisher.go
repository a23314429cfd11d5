// Package github implements the Publisher port using the go-github library.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Publisher = (*ContentsPublisher)(nil)

// Commit identity used for published result files.
const (
	botName  = "review-monitor-bot"
	botEmail = "review-monitor-bot@users.noreply.github.com"
)

// ContentsPublisher commits result files (history, execution log) to a
// repository via the GitHub Contents API with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
type ContentsPublisher struct {
	gh     *gh.Client
	owner  string
	repo   string
	branch string
}

// NewContentsPublisher creates a publisher for the given "owner/name"
// repository and branch.
func NewContentsPublisher(token, repoFullName, branch string) (*ContentsPublisher, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &ContentsPublisher{
		gh:     client,
		owner:  owner,
		repo:   repo,
		branch: branch,
	}, nil
}

// NewContentsPublisherWithHTTPClient creates a ContentsPublisher with a custom
// http.Client and base URL. This constructor is intended for testing, allowing
// injection of an httptest server.
func NewContentsPublisherWithHTTPClient(httpClient *http.Client, baseURL, repoFullName, branch string) (*ContentsPublisher, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(httpClient)
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &ContentsPublisher{
		gh:     client,
		owner:  owner,
		repo:   repo,
		branch: branch,
	}, nil
}

// PublishFile commits content to path on the configured branch. When the
// remote file already holds identical bytes, no commit is created and false
// is returned.
func (p *ContentsPublisher) PublishFile(ctx context.Context, path string, content []byte, message string) (bool, error) {
	existing, _, resp, err := p.gh.Repositories.GetContents(ctx, p.owner, p.repo, path, &gh.RepositoryContentGetOptions{
		Ref: p.branch,
	})

	var sha string
	switch {
	case err == nil && existing != nil:
		remote, decodeErr := existing.GetContent()
		if decodeErr == nil && remote == string(content) {
			return false, nil
		}
		sha = existing.GetSHA()
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		// First publish of this file; create it.
	case err != nil:
		return false, fmt.Errorf("get %s/%s:%s: %w", p.owner, p.repo, path, err)
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
		Branch:  gh.Ptr(p.branch),
		Committer: &gh.CommitAuthor{
			Name:  gh.Ptr(botName),
			Email: gh.Ptr(botEmail),
		},
	}
	if sha != "" {
		opts.SHA = gh.Ptr(sha)
	}

	if _, _, err := p.gh.Repositories.UpdateFile(ctx, p.owner, p.repo, path, opts); err != nil {
		return false, fmt.Errorf("commit %s/%s:%s: %w", p.owner, p.repo, path, err)
	}

	return true, nil
}

// splitRepo splits an "owner/name" repository identifier.
func splitRepo(repoFullName string) (owner, repo string, err error) {
	parts := strings.Split(repoFullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q (want owner/name)", repoFullName)
	}
	return parts[0], parts[1], nil
}
