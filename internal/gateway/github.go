// Package gateway provides gateways to the history service and to the GitHub API,
// abstracting away the underlying HTTP, REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/naka-gawa/gitgraph/internal/domain"
)

// RepoSummary holds what the chart header needs to know about a repository.
type RepoSummary struct {
	LogoURL    string
	TotalStars int
}

// Fetcher defines the behavior of a gateway for fetching star information from GitHub.
// Errors returned by a Fetcher are *domain.APIError.
type Fetcher interface {
	FetchRepoSummary(ctx context.Context, owner, name string) (*RepoSummary, error)
	FetchStargazerPageCount(ctx context.Context, owner, name string, perPage int) (int, error)
	FetchStargazers(ctx context.Context, owner, name string, page, perPage int) ([]time.Time, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	authenticated bool
	logger        *slog.Logger
}

// repoSummaryQuery fetches the star count and the owner's avatar in a single round trip.
type repoSummaryQuery struct {
	Repository struct {
		StargazerCount int
		Owner          struct {
			AvatarURL string `graphql:"avatarUrl"`
		}
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// An empty token yields an unauthenticated gateway, which only uses the REST API.
// rateLimitWait bounds how long a single secondary rate limit may be slept through.
func NewGitHubGateway(token string, rateLimitWait time.Duration, logger *slog.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(rateLimitWait, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	httpClient := &http.Client{Transport: rateLimitWaiter}
	if token != "" {
		httpClient.Transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		authenticated: token != "",
		logger:        logger,
	}, nil
}

// FetchRepoSummary returns the owner's avatar URL and the repository's star count.
// GraphQL needs a token, so unauthenticated gateways fall back to two REST calls.
func (g *GitHubGateway) FetchRepoSummary(ctx context.Context, owner, name string) (*RepoSummary, error) {
	repo := owner + "/" + name
	if g.authenticated {
		g.logger.Debug("Fetching repository summary using GraphQL API...", "repo", repo)
		var q repoSummaryQuery
		variables := map[string]interface{}{
			"owner": githubv4.String(owner),
			"name":  githubv4.String(name),
		}
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, graphqlError(err, repo)
		}
		return &RepoSummary{
			LogoURL:    q.Repository.Owner.AvatarURL,
			TotalStars: q.Repository.StargazerCount,
		}, nil
	}

	g.logger.Debug("Fetching repository summary using REST API...", "repo", repo)
	user, _, err := g.restClient.Users.Get(ctx, owner)
	if err != nil {
		return nil, restError(err, fmt.Sprintf("user %s not found", owner))
	}
	r, _, err := g.restClient.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, restError(err, fmt.Sprintf("repository %s not found", repo))
	}
	return &RepoSummary{
		LogoURL:    user.GetAvatarURL(),
		TotalStars: r.GetStargazersCount(),
	}, nil
}

// FetchStargazerPageCount returns how many stargazer pages of perPage entries the repository has.
func (g *GitHubGateway) FetchStargazerPageCount(ctx context.Context, owner, name string, perPage int) (int, error) {
	repo := owner + "/" + name
	opts := &github.ListOptions{Page: 1, PerPage: perPage}
	stargazers, resp, err := g.restClient.Activity.ListStargazers(ctx, owner, name, opts)
	if err != nil {
		return 0, restError(err, fmt.Sprintf("repository %s not found", repo))
	}
	if resp.LastPage > 0 {
		return resp.LastPage, nil
	}
	// Without a "last" link the first page is the only one.
	if len(stargazers) == 0 {
		return 0, nil
	}
	return 1, nil
}

// FetchStargazers returns the starred_at timestamps of one stargazer page.
func (g *GitHubGateway) FetchStargazers(ctx context.Context, owner, name string, page, perPage int) ([]time.Time, error) {
	repo := owner + "/" + name
	g.logger.Debug("  Fetching stargazer page...", "repo", repo, "page", page)
	opts := &github.ListOptions{Page: page, PerPage: perPage}
	stargazers, _, err := g.restClient.Activity.ListStargazers(ctx, owner, name, opts)
	if err != nil {
		return nil, restError(err, fmt.Sprintf("repository %s not found", repo))
	}
	starredAt := make([]time.Time, 0, len(stargazers))
	for _, s := range stargazers {
		if s.StarredAt == nil {
			continue
		}
		starredAt = append(starredAt, s.GetStarredAt().Time)
	}
	return starredAt, nil
}

// restError maps a go-github error onto the history service's error shape.
func restError(err error, notFound string) *domain.APIError {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return &domain.APIError{Code: http.StatusForbidden, Message: "rate limit exceeded"}
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return statusError(respErr.Response.StatusCode, respErr.Response.Status, notFound)
	}
	return &domain.APIError{Code: http.StatusInternalServerError, Message: fmt.Sprintf("failed to make request: %v", err)}
}

// graphqlError maps a githubv4 error. The client only exposes errors as text.
func graphqlError(err error, repo string) *domain.APIError {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Could not resolve to a Repository"):
		return &domain.APIError{Code: http.StatusNotFound, Message: fmt.Sprintf("repository %s not found", repo)}
	case strings.Contains(msg, "401 Unauthorized"):
		return &domain.APIError{Code: http.StatusUnauthorized, Message: "Bad credentials"}
	case strings.Contains(msg, "403 Forbidden"), strings.Contains(msg, "RATE_LIMITED"):
		return &domain.APIError{Code: http.StatusForbidden, Message: "rate limit exceeded"}
	}
	return &domain.APIError{Code: http.StatusInternalServerError, Message: fmt.Sprintf("failed to execute GraphQL query: %v", err)}
}

func statusError(code int, status, notFound string) *domain.APIError {
	switch code {
	case http.StatusUnauthorized:
		return &domain.APIError{Code: code, Message: "Bad credentials"}
	case http.StatusForbidden, http.StatusTooManyRequests:
		return &domain.APIError{Code: http.StatusForbidden, Message: "rate limit exceeded"}
	case http.StatusNotFound:
		return &domain.APIError{Code: code, Message: notFound}
	case http.StatusInternalServerError:
		return &domain.APIError{Code: code, Message: "server error"}
	}
	return &domain.APIError{Code: http.StatusInternalServerError, Message: fmt.Sprintf("unexpected error: %v", status)}
}
