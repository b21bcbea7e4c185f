package cmd

import (
	"fmt"
	"io"

	"github.com/naka-gawa/gitgraph/internal/chart"
	"github.com/naka-gawa/gitgraph/internal/exporter"
	"github.com/naka-gawa/gitgraph/internal/gateway"
	"github.com/naka-gawa/gitgraph/internal/notify"
	"github.com/naka-gawa/gitgraph/internal/page"
	"github.com/naka-gawa/gitgraph/internal/store"
	"github.com/naka-gawa/gitgraph/internal/token"
)

// app is the page and everything it depends on, wired from the loaded config.
type app struct {
	page   *page.Controller
	tokens *token.Store
	sink   exporter.FileSink
	db     *store.SQLite
}

func newApp(out io.Writer) (*app, error) {
	db, err := store.OpenSQLite(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}
	notifier := notify.NewTerminal(out)
	tokens := token.NewStore(db, notifier)

	history, err := gateway.NewHistoryClient(cfg.HistoryURL, nil, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	images := gateway.NewAssetClient(gateway.AssetOptions{Timeout: cfg.RequestTimeout, Retry: 2}, logger)

	sink := exporter.FileSink{Dir: cfg.OutputDir}
	controller := page.NewController(page.Deps{
		Tokens:   tokens,
		History:  history,
		Renderer: chart.NewRenderer(cfg.ChartStyle(), images),
		Exporter: exporter.New(sink, logger),
		Notifier: notifier,
		Logger:   logger,
	}, cfg.RequestTimeout)

	return &app{page: controller, tokens: tokens, sink: sink, db: db}, nil
}

func (a *app) Close() error { return a.db.Close() }
