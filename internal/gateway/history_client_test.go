package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/naka-gawa/gitgraph/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const golangHistory = `{"name":"golang/go","logo_url":"https://avatars.example/golang.png","total_stars":124227,"data":[{"date":"Dec 2014","stars":0},{"date":"Nov 2024","stars":124227}]}`

func TestNewHistoryClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080/x", "://bad"} {
		_, err := NewHistoryClient(raw, nil, discardLogger())
		assert.Error(t, err, raw)
	}
}

func TestHistoryClient_FetchHistory(t *testing.T) {
	testCases := []struct {
		name           string
		repo           string
		token          string
		handlerFunc    func(t *testing.T) http.HandlerFunc
		expected       *domain.ChartData
		expectedStatus int
		expectedErrMsg string
	}{
		{
			name:  "happy path with token",
			repo:  "golang/go",
			token: "ghp_secret",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, http.MethodGet, r.Method)
					assert.Equal(t, "/history", r.URL.Path)
					assert.Equal(t, "golang/go", r.URL.Query().Get("repo"))
					assert.Equal(t, "Bearer ghp_secret", r.Header.Get("Authorization"))
					fmt.Fprint(w, golangHistory)
				}
			},
			expected: &domain.ChartData{
				Name:       "golang/go",
				LogoURL:    "https://avatars.example/golang.png",
				TotalStars: 124227,
				Data: []domain.StarRecord{
					{Date: "Dec 2014", Stars: 0},
					{Date: "Nov 2024", Stars: 124227},
				},
			},
		},
		{
			name:  "absent token sends no authorization header",
			repo:  "golang/go",
			token: "",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					_, present := r.Header["Authorization"]
					assert.False(t, present, "no Authorization header expected, got %q", r.Header.Get("Authorization"))
					fmt.Fprint(w, golangHistory)
				}
			},
			expected: &domain.ChartData{
				Name:       "golang/go",
				LogoURL:    "https://avatars.example/golang.png",
				TotalStars: 124227,
				Data: []domain.StarRecord{
					{Date: "Dec 2014", Stars: 0},
					{Date: "Nov 2024", Stars: 124227},
				},
			},
		},
		{
			name: "repo is sent verbatim even when empty",
			repo: "",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					values, ok := r.URL.Query()["repo"]
					assert.True(t, ok)
					assert.Equal(t, []string{""}, values)
					w.WriteHeader(http.StatusBadRequest)
					fmt.Fprint(w, `{"message":"repository name required","code":"400"}`)
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "repository name required",
		},
		{
			name: "odd characters survive the query string",
			repo: "a b/c&d=e",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "a b/c&d=e", r.URL.Query().Get("repo"))
					w.WriteHeader(http.StatusNotFound)
					fmt.Fprint(w, `{"message":"repository a b/c&d=e not found"}`)
				}
			},
			expectedStatus: http.StatusNotFound,
			expectedErrMsg: "repository a b/c&d=e not found",
		},
		{
			name: "rate limited message is surfaced",
			repo: "golang/go",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusTooManyRequests)
					fmt.Fprint(w, `{ "message": "rate limited" }`)
				}
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedErrMsg: "rate limited",
		},
		{
			name: "error without message falls back",
			repo: "golang/go",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
					fmt.Fprint(w, `<html>oops</html>`)
				}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedErrMsg: "Something went wrong",
		},
		{
			name: "malformed success body",
			repo: "golang/go",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					fmt.Fprint(w, `{"name":`)
				}
			},
			expectedStatus: http.StatusOK,
			expectedErrMsg: "Something went wrong",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handlerFunc(t))
			defer server.Close()
			client, err := NewHistoryClient(server.URL, server.Client(), discardLogger())
			require.NoError(t, err)

			data, err := client.FetchHistory(context.Background(), tc.repo, tc.token)
			if tc.expectedErrMsg != "" {
				var reqErr *domain.RequestError
				require.ErrorAs(t, err, &reqErr)
				assert.Equal(t, tc.expectedErrMsg, reqErr.Message)
				assert.Equal(t, tc.expectedStatus, reqErr.Status)
				assert.Equal(t, tc.repo, reqErr.Repo)
				assert.Nil(t, data)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, data)
		})
	}
}

func TestHistoryClient_NetworkFailures(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client, err := NewHistoryClient(url, nil, discardLogger())
		require.NoError(t, err)
		_, err = client.FetchHistory(context.Background(), "golang/go", "tok")

		var reqErr *domain.RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, "Something went wrong", reqErr.Message)
		assert.NotNil(t, errors.Unwrap(err))
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		client, err := NewHistoryClient(server.URL, server.Client(), discardLogger())
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err = client.FetchHistory(ctx, "golang/go", "")
		var reqErr *domain.RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, "Request timed out", reqErr.Message)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestHistoryClient_BaseURLWithPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/history", r.URL.Path)
		fmt.Fprint(w, golangHistory)
	}))
	defer server.Close()

	client, err := NewHistoryClient(server.URL+"/api/", server.Client(), discardLogger())
	require.NoError(t, err)
	_, err = client.FetchHistory(context.Background(), "golang/go", "")
	assert.NoError(t, err)
}
