// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/naka-gawa/gitgraph/internal/domain"
	"github.com/naka-gawa/gitgraph/internal/gateway"
	"golang.org/x/sync/errgroup"
)

// MonthLayout is the period label of a star record.
const MonthLayout = "Jan 2006"

// Defaults for Options.
const (
	DefaultMaxPages    = 15
	DefaultPerPage     = 30
	DefaultConcurrency = 8
)

// Options tune how many stargazer pages are sampled.
type Options struct {
	MaxPages    int
	PerPage     int
	Concurrency int
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.PerPage <= 0 {
		o.PerPage = DefaultPerPage
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Aggregator builds the star history of a repository.
// It orchestrates the fetching of sampled stargazer pages and combines them into chart data.
type Aggregator struct {
	fetcher gateway.Fetcher
	opts    Options
	logger  *slog.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, opts Options, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		opts:    opts.withDefaults(),
		logger:  logger,
	}
}

// Aggregate performs the main business logic for repo ("owner/name").
// Errors are *domain.APIError so they can be written back to clients unchanged.
func (a *Aggregator) Aggregate(ctx context.Context, repo string) (*domain.ChartData, error) {
	a.logger.Debug("Usecase: Starting star history aggregation...", "repo", repo)

	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, &domain.APIError{Code: http.StatusNotFound, Message: fmt.Sprintf("repository %s not found", repo)}
	}

	summary, err := a.fetcher.FetchRepoSummary(ctx, owner, name)
	if err != nil {
		return nil, asAPIError(err)
	}
	if summary.TotalStars == 0 {
		return nil, &domain.APIError{Code: http.StatusNotFound, Message: fmt.Sprintf("repository %s does not have any stars", repo)}
	}

	pageCount, err := a.fetcher.FetchStargazerPageCount(ctx, owner, name, a.opts.PerPage)
	if err != nil {
		return nil, asAPIError(err)
	}
	pages := requestPages(a.opts.MaxPages, pageCount)

	// Use an errgroup to fetch all sampled pages concurrently.
	results := make([][]time.Time, len(pages))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.opts.Concurrency)
	for i, page := range pages {
		eg.Go(func() error {
			starredAt, err := a.fetcher.FetchStargazers(egCtx, owner, name, page, a.opts.PerPage)
			if err != nil {
				return err
			}
			results[i] = starredAt
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, asAPIError(err)
	}
	a.logger.Debug("Usecase: All stargazer pages fetched successfully.", "pages", len(pages))

	records := aggregateStars(results, pages, a.opts, summary.TotalStars)

	a.logger.Debug("Usecase: Aggregation complete.", "points", len(records))
	return &domain.ChartData{
		Name:       repo,
		LogoURL:    summary.LogoURL,
		TotalStars: summary.TotalStars,
		Data:       records,
	}, nil
}

// requestPages picks the stargazer pages to fetch: all of them when there are
// fewer than maxPages, otherwise maxPages evenly spread pages starting at 1.
func requestPages(maxPages, totalPages int) []int {
	pages := make([]int, 0, maxPages)
	if totalPages < maxPages {
		for p := 1; p <= totalPages; p++ {
			pages = append(pages, p)
		}
		return pages
	}
	for v := 1; v <= maxPages; v++ {
		pages = append(pages, v*totalPages/maxPages-1)
	}
	pages[0] = 1
	return pages
}

// aggregateStars turns sampled stargazer timestamps into cumulative monthly records.
func aggregateStars(results [][]time.Time, pages []int, opts Options, totalStars int) []domain.StarRecord {
	buckets := make(map[time.Time]int)

	if len(pages) < opts.MaxPages {
		// Every stargazer is known: sample about MaxPages of them by index.
		var all []time.Time
		for _, r := range results {
			all = append(all, r...)
		}
		step := len(all) / opts.MaxPages
		if step == 0 {
			step = 1
		}
		for i := 0; i < len(all); i += step {
			buckets[monthOf(all[i])] = i + 1
		}
	} else {
		// Only the first stargazer of each sampled page is placed, at its page offset.
		for idx, r := range results {
			if len(r) > 0 {
				buckets[monthOf(r[0])] = opts.PerPage * (pages[idx] - 1)
			}
		}
	}
	buckets[monthOf(opts.Now())] = totalStars

	months := make([]time.Time, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool {
		si, sj := buckets[months[i]], buckets[months[j]]
		if si != sj {
			return si < sj
		}
		return months[i].Before(months[j])
	})

	records := make([]domain.StarRecord, 0, len(months))
	for _, m := range months {
		records = append(records, domain.StarRecord{Date: m.Format(MonthLayout), Stars: buckets[m]})
	}
	return records
}

func monthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func asAPIError(err error) *domain.APIError {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.APIError{Code: http.StatusGatewayTimeout, Message: "request to GitHub timed out"}
	}
	return &domain.APIError{Code: http.StatusInternalServerError, Message: fmt.Sprintf("error occurred: %v", err)}
}
