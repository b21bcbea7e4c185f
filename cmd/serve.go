package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/naka-gawa/gitgraph/internal/chart"
	"github.com/naka-gawa/gitgraph/internal/gateway"
	"github.com/naka-gawa/gitgraph/internal/server"
	"github.com/naka-gawa/gitgraph/internal/usecase"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the history service",
	Long: `Runs the history service: GET /history?repo=<owner>/<name> builds the star
history of a repository from the GitHub API, GET /card.png returns the rendered card.
Requests without an Authorization header use server.github_token (default $GITHUB_TOKEN).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sc := cfg.Server
		if sc.GitHubToken == "" {
			logger.Warn("No GitHub token configured; anonymous requests are limited to 60 per hour")
		}

		// Inject dependencies and run the service.
		newFetcher := func(token string) (gateway.Fetcher, error) {
			return gateway.NewGitHubGateway(token, sc.RateLimitWait, logger)
		}
		images := gateway.NewAssetClient(gateway.AssetOptions{Timeout: cfg.RequestTimeout, Retry: 2}, logger)
		srv := server.New(server.Options{
			Addr:        sc.Addr,
			GitHubToken: sc.GitHubToken,
			Aggregator: usecase.Options{
				MaxPages: sc.MaxPages,
				PerPage:  sc.PerPage,
			},
			RequestsPerMinute: sc.RequestsPerMinute,
			AllowedOrigins:    sc.AllowedOrigins,
		}, newFetcher, chart.NewRenderer(cfg.ChartStyle(), images), logger)

		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default :8080)")
}
