package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/naka-gawa/gitgraph/internal/chart"
	"github.com/naka-gawa/gitgraph/internal/domain"
	"github.com/naka-gawa/gitgraph/internal/exporter"
	"github.com/naka-gawa/gitgraph/internal/gateway"
	"github.com/naka-gawa/gitgraph/internal/notify"
	"github.com/naka-gawa/gitgraph/internal/store"
	"github.com/naka-gawa/gitgraph/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func golangData() *domain.ChartData {
	return &domain.ChartData{
		Name:       "golang/go",
		LogoURL:    "https://avatars.example/golang.png",
		TotalStars: 124227,
		Data: []domain.StarRecord{
			{Date: "Dec 2014", Stars: 0},
			{Date: "Nov 2024", Stars: 124227},
		},
	}
}

type fixture struct {
	controller *Controller
	notes      *notify.Recorder
	kv         *store.Memory
	outDir     string
}

func newFixture(t *testing.T, history gateway.HistoryFetcher, timeout time.Duration) *fixture {
	t.Helper()
	notes := &notify.Recorder{}
	kv := store.NewMemory()
	outDir := t.TempDir()
	logger := discardLogger()
	c := NewController(Deps{
		Tokens:   token.NewStore(kv, notes),
		History:  history,
		Renderer: chart.NewRenderer(chart.DefaultStyle(), nil),
		Exporter: exporter.New(exporter.FileSink{Dir: outDir}, logger),
		Notifier: notes,
		Logger:   logger,
	}, timeout)
	return &fixture{controller: c, notes: notes, kv: kv, outDir: outDir}
}

// historyServer serves a canned history service.
func historyServer(t *testing.T, handler http.HandlerFunc) gateway.HistoryFetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := gateway.NewHistoryClient(server.URL, server.Client(), discardLogger())
	require.NoError(t, err)
	return client
}

func TestController_EndToEnd(t *testing.T) {
	var gotAuth []string
	history := historyServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		assert.Equal(t, "/history", r.URL.Path)
		assert.Equal(t, "golang/go", r.URL.Query().Get("repo"))
		require.NoError(t, json.NewEncoder(w).Encode(golangData()))
	})
	f := newFixture(t, history, time.Second)
	ctx := context.Background()

	require.NoError(t, f.controller.Init(ctx))
	assert.False(t, f.controller.State().HasToken)
	assert.Equal(t, Idle, f.controller.Phase())
	assert.Empty(t, f.controller.Placeholder())

	// Exporting before anything is loaded is a no-op.
	require.NoError(t, f.controller.Export(ctx, "golang"))
	entries, err := os.ReadDir(f.outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	in := f.controller.Input()
	in.SetValue("golang/go")
	require.True(t, in.Submit(ctx))

	assert.Equal(t, Loaded, f.controller.Phase())
	assert.Equal(t, []string{""}, gotAuth)
	card := f.controller.Card()
	require.NotNil(t, card)
	assert.Equal(t, 2, card.PointCount())
	assert.Equal(t, "124,227", card.TotalStarsLabel())

	require.NoError(t, f.controller.Export(ctx, "golang"))
	raw, err := os.ReadFile(filepath.Join(f.outDir, "golang_gitgraph.png"))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG\r\n\x1a\n", string(raw[:8]))
	assert.Empty(t, f.notes.Messages())
}

func TestController_TokenFlow(t *testing.T) {
	var gotAuth []string
	history := historyServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		require.NoError(t, json.NewEncoder(w).Encode(golangData()))
	})
	f := newFixture(t, history, time.Second)
	ctx := context.Background()

	require.NoError(t, f.controller.AddToken(ctx, "ghp_secret"))
	stored, ok, err := f.kv.Get(ctx, token.Key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ghp_secret", stored)
	require.NoError(t, f.controller.Search(ctx, "golang/go"))

	require.NoError(t, f.controller.RemoveToken(ctx))
	_, ok, err = f.kv.Get(ctx, token.Key)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, f.controller.Search(ctx, "golang/go"))

	assert.Equal(t, []string{"Bearer ghp_secret", ""}, gotAuth)
	assert.Equal(t, []notify.Message{
		{Level: notify.LevelSuccess, Text: "Token added successfully"},
		{Level: notify.LevelSuccess, Text: "Token removed successfully"},
	}, f.notes.Messages())

	// A stored token is picked up by a fresh page.
	require.NoError(t, f.kv.Set(ctx, token.Key, "ghp_other"))
	require.NoError(t, f.controller.Init(ctx))
	assert.Equal(t, "ghp_other", f.controller.State().Token)
}

func TestController_FailureKeepsPreviousData(t *testing.T) {
	fail := false
	history := historyServer(t, func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"message":"rate limited"}`)
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(golangData()))
	})
	f := newFixture(t, history, time.Second)
	ctx := context.Background()

	require.NoError(t, f.controller.Search(ctx, "golang/go"))
	fail = true
	err := f.controller.Search(ctx, "golang/go")

	var reqErr *domain.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusTooManyRequests, reqErr.Status)
	last, ok := f.notes.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Message{Level: notify.LevelError, Text: "rate limited"}, last)

	state := f.controller.State()
	assert.False(t, state.Loading)
	assert.Equal(t, golangData(), state.Data)
	assert.Equal(t, Loaded, f.controller.Phase())
}

func TestController_FailureWithoutDataReturnsToIdle(t *testing.T) {
	history := historyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	f := newFixture(t, history, time.Second)

	require.Error(t, f.controller.Search(context.Background(), ""))
	assert.Equal(t, Idle, f.controller.Phase())
	last, _ := f.notes.Last()
	assert.Equal(t, domain.DefaultErrorMessage, last.Text)
}

func TestController_Timeout(t *testing.T) {
	history := historyServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	f := newFixture(t, history, 50*time.Millisecond)

	err := f.controller.Search(context.Background(), "golang/go")
	var reqErr *domain.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Request timed out", reqErr.Message)
	assert.False(t, f.controller.Loading())
}

// gatedHistory blocks requests for repos listed in gates until the gate is closed.
type gatedHistory struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
}

func (g *gatedHistory) FetchHistory(ctx context.Context, repo, _ string) (*domain.ChartData, error) {
	g.started <- repo
	g.mu.Lock()
	gate := g.gates[repo]
	g.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &domain.RequestError{Repo: repo, Message: "Request timed out", Err: ctx.Err()}
		}
	}
	return &domain.ChartData{Name: repo, TotalStars: 1, Data: []domain.StarRecord{{Date: "Jan 2024", Stars: 1}}}, nil
}

func TestController_LatestSearchWins(t *testing.T) {
	release := make(chan struct{})
	history := &gatedHistory{
		gates:   map[string]chan struct{}{"a/a": release},
		started: make(chan string, 2),
	}
	f := newFixture(t, history, 5*time.Second)
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() { slow <- f.controller.Search(ctx, "a/a") }()
	require.Equal(t, "a/a", <-history.started)
	assert.True(t, f.controller.Loading())
	assert.Equal(t, Loading, f.controller.Phase())
	assert.NotEmpty(t, f.controller.Placeholder())
	assert.False(t, f.controller.Input().Submit(ctx), "submit is refused while loading")

	require.NoError(t, f.controller.Search(ctx, "b/b"))
	<-history.started
	assert.False(t, f.controller.Loading())

	close(release)
	require.NoError(t, <-slow)

	state := f.controller.State()
	require.NotNil(t, state.Data)
	assert.Equal(t, "b/b", state.Data.Name)
	assert.Equal(t, "b/b", f.controller.Card().Name())
	assert.Equal(t, uint64(2), state.Generation)
	assert.False(t, state.Loading)
}

func TestController_ExportFailureIsNotified(t *testing.T) {
	history := historyServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(golangData()))
	})
	f := newFixture(t, history, time.Second)
	ctx := context.Background()
	require.NoError(t, f.controller.Search(ctx, "golang/go"))

	// An existing directory with the artifact's name makes the save fail.
	require.NoError(t, os.Mkdir(filepath.Join(f.outDir, "golang_gitgraph.png"), 0o755))
	err := f.controller.Export(ctx, "golang")

	var exportErr *domain.ExportError
	require.ErrorAs(t, err, &exportErr)
	last, ok := f.notes.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Message{Level: notify.LevelError, Text: "Failed to save image"}, last)
	assert.Equal(t, Loaded, f.controller.Phase())
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "rate limited", messageOf(&domain.RequestError{Message: "rate limited"}))
	assert.Equal(t, "Failed to render image", messageOf(fmt.Errorf("wrapped: %w", &domain.ExportError{Message: "Failed to render image"})))
	assert.Equal(t, domain.DefaultErrorMessage, messageOf(errors.New("boom")))
	assert.Equal(t, "loaded", Loaded.String())
}
