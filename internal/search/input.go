// Package search holds the repository search box.
package search

import (
	"context"
	"sync"
)

const (
	// SearchLabel is shown on the submit control when idle.
	SearchLabel = "Search"
	// BusyLabel replaces SearchLabel while a request is in flight.
	BusyLabel = "Loading..."
	// Placeholder is the hint shown for an empty value.
	Placeholder = "owner/repo"
)

// RetrieveFunc is called with the submitted repository identifier.
type RetrieveFunc func(ctx context.Context, repo string)

// Input collects a repository identifier. The value is passed on verbatim:
// it is never trimmed or validated.
type Input struct {
	mu       sync.Mutex
	value    string
	loading  func() bool
	retrieve RetrieveFunc
}

// NewInput returns an input that calls retrieve on submit. loading reports
// whether a request is in flight; it may be nil.
func NewInput(retrieve RetrieveFunc, loading func() bool) *Input {
	if loading == nil {
		loading = func() bool { return false }
	}
	return &Input{retrieve: retrieve, loading: loading}
}

func (i *Input) SetValue(v string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.value = v
}

func (i *Input) Value() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.value
}

// Label is the text of the submit control.
func (i *Input) Label() string {
	if i.loading() {
		return BusyLabel
	}
	return SearchLabel
}

// Submit hands the current value to the retrieval callback. It is refused,
// returning false, while a request is loading.
func (i *Input) Submit(ctx context.Context) bool {
	if i.loading() {
		return false
	}
	i.retrieve(ctx, i.Value())
	return true
}
