// Package page holds the chart page: the token, the loaded chart and the
// loading flag, and the flows between search, history client, renderer and exporter.
package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/naka-gawa/gitgraph/internal/chart"
	"github.com/naka-gawa/gitgraph/internal/domain"
	"github.com/naka-gawa/gitgraph/internal/exporter"
	"github.com/naka-gawa/gitgraph/internal/gateway"
	"github.com/naka-gawa/gitgraph/internal/notify"
	"github.com/naka-gawa/gitgraph/internal/search"
	"github.com/naka-gawa/gitgraph/internal/token"
)

// DefaultRequestTimeout bounds a single history request.
const DefaultRequestTimeout = 30 * time.Second

// skeletonWidth is the width of the loading placeholder in cells.
const skeletonWidth = 48

// Phase is the observable state of the page.
type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// State is a snapshot of the page.
type State struct {
	Token    string
	HasToken bool
	Data     *domain.ChartData
	Loading  bool
	// Generation is the id of the latest dispatched request.
	Generation uint64
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Tokens   *token.Store
	History  gateway.HistoryFetcher
	Renderer *chart.Renderer
	Exporter *exporter.Exporter
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// Controller owns the page state. It is safe for concurrent use: when searches
// overlap, the most recently dispatched one wins and older responses are dropped.
type Controller struct {
	deps    Deps
	timeout time.Duration
	input   *search.Input

	mu         sync.Mutex
	token      string
	data       *domain.ChartData
	card       *chart.Card
	generation uint64
	loading    bool
}

// NewController wires a controller. A non-positive timeout means DefaultRequestTimeout.
func NewController(deps Deps, timeout time.Duration) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard{}
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	c := &Controller{deps: deps, timeout: timeout}
	c.input = search.NewInput(func(ctx context.Context, repo string) {
		_ = c.Search(ctx, repo)
	}, c.Loading)
	return c
}

// Input is the search box bound to this page.
func (c *Controller) Input() *search.Input { return c.input }

// Init loads the stored token, if any.
func (c *Controller) Init(ctx context.Context) error {
	tok, _, err := c.deps.Tokens.Get(ctx)
	if err != nil {
		c.deps.Logger.Warn("Could not read stored token", "error", err)
		return err
	}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	return nil
}

// Search fetches the history of repo and displays it. On failure the error
// is notified, the previous chart stays in place and the error is returned.
// A response that is no longer the latest request is discarded and Search returns nil.
func (c *Controller) Search(ctx context.Context, repo string) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	tok := c.token
	c.loading = true
	c.mu.Unlock()

	c.deps.Logger.Debug("Dispatching history request", "repo", repo, "generation", gen)
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	data, err := c.deps.History.FetchHistory(reqCtx, repo, tok)
	cancel()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.deps.Logger.Debug("Discarding stale history response", "repo", repo, "generation", gen)
		return nil
	}
	c.loading = false
	if err == nil {
		c.data = data
		c.card = c.deps.Renderer.Render(data)
	}
	c.mu.Unlock()

	if err != nil {
		c.deps.Notifier.Error(messageOf(err))
		return err
	}
	return nil
}

// AddToken stores tok and uses it for the next searches.
func (c *Controller) AddToken(ctx context.Context, tok string) error {
	if err := c.deps.Tokens.Set(ctx, tok); err != nil {
		c.deps.Notifier.Error(domain.DefaultErrorMessage)
		return err
	}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	return nil
}

// RemoveToken deletes the stored token; the next searches are unauthenticated.
func (c *Controller) RemoveToken(ctx context.Context) error {
	if err := c.deps.Tokens.Remove(ctx); err != nil {
		c.deps.Notifier.Error(domain.DefaultErrorMessage)
		return err
	}
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return nil
}

// Export saves the displayed card as "<fileName>_gitgraph.png". Without a
// card it does nothing. Failures are notified and returned; the page is unchanged.
func (c *Controller) Export(ctx context.Context, fileName string) error {
	card := c.Card()
	if card == nil {
		return nil
	}
	if err := c.deps.Exporter.Export(ctx, card, fileName); err != nil {
		c.deps.Logger.Warn("Export failed", "file", fileName, "error", err)
		c.deps.Notifier.Error(messageOf(err))
		return err
	}
	return nil
}

// Card is the displayed card, or nil before the first successful search.
func (c *Controller) Card() *chart.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.card
}

// Loading reports whether the latest request is still in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// State returns a snapshot of the page state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Token:      c.token,
		HasToken:   c.token != "",
		Data:       c.data,
		Loading:    c.loading,
		Generation: c.generation,
	}
}

// Phase derives the observable phase from the state.
func (c *Controller) Phase() Phase {
	s := c.State()
	switch {
	case s.Loading:
		return Loading
	case s.Data != nil:
		return Loaded
	}
	return Idle
}

// Placeholder is the skeleton shown while loading, empty otherwise.
func (c *Controller) Placeholder() string {
	if !c.Loading() {
		return ""
	}
	return chart.Skeleton(skeletonWidth)
}

// messageOf picks the user-facing text of an error.
func messageOf(err error) string {
	var reqErr *domain.RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return reqErr.Message
	}
	var exportErr *domain.ExportError
	if errors.As(err, &exportErr) && exportErr.Message != "" {
		return exportErr.Message
	}
	return domain.DefaultErrorMessage
}
