package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/naka-gawa/gitgraph/internal/domain"
	"golang.org/x/oauth2"
)

// maxHistoryBody bounds how much of a history response is read.
const maxHistoryBody = 10 << 20

// HistoryFetcher retrieves the star history of a repository from the history service.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, repo, token string) (*domain.ChartData, error)
}

// HistoryClient is the HTTP client of the history service.
type HistoryClient struct {
	endpoint   *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHistoryClient creates a client for the history service rooted at baseURL.
// A nil httpClient means http.DefaultClient.
func NewHistoryClient(baseURL string, httpClient *http.Client, logger *slog.Logger) (*HistoryClient, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid history service url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid history service url %q: scheme and host are required", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HistoryClient{
		endpoint:   base.JoinPath("history"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// FetchHistory issues GET <base>/history?repo=<repo>. The repo is sent as given.
// An empty token sends no Authorization header at all.
// Every failure is returned as a *domain.RequestError.
func (c *HistoryClient) FetchHistory(ctx context.Context, repo, token string) (*domain.ChartData, error) {
	u := *c.endpoint
	u.RawQuery = url.Values{"repo": []string{repo}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &domain.RequestError{Repo: repo, Message: domain.DefaultErrorMessage, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching star history", "repo", repo, "authenticated", token != "")
	resp, err := c.clientFor(token).Do(req)
	if err != nil {
		msg := domain.DefaultErrorMessage
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "Request timed out"
		}
		return nil, &domain.RequestError{Repo: repo, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHistoryBody))
	if err != nil {
		return nil, &domain.RequestError{Repo: repo, Status: resp.StatusCode, Message: domain.DefaultErrorMessage, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.RequestError{Repo: repo, Status: resp.StatusCode, Message: errorMessage(body)}
	}

	var data domain.ChartData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &domain.RequestError{
			Repo:    repo,
			Status:  resp.StatusCode,
			Message: domain.DefaultErrorMessage,
			Err:     fmt.Errorf("failed to parse response body: %w", err),
		}
	}
	c.logger.Debug("Fetched star history", "repo", data.Name, "points", len(data.Data))
	return &data, nil
}

// clientFor returns a client that attaches the bearer token, or the plain client when there is none.
func (c *HistoryClient) clientFor(token string) *http.Client {
	if token == "" {
		return c.httpClient
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   c.httpClient.Transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
		Timeout:       c.httpClient.Timeout,
	}
}

// errorMessage extracts {"message": "..."} from an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		return domain.DefaultErrorMessage
	}
	return payload.Message
}
