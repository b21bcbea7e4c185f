// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"log/slog"
	"os"

	"github.com/naka-gawa/gitgraph/internal/config"
	"github.com/naka-gawa/gitgraph/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "gitgraph",
	Short: "A CLI tool to chart the star history of GitHub repositories.",
	Long: `gitgraph fetches the star history of a GitHub repository from a history
service, shows it as a chart card and exports the card as a PNG image.
It can also run the history service itself (gitgraph serve).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		// Logs go to standard error so they never mix with command output.
		logger = logging.New(os.Stderr, cfg.Verbose, cfg.LogFormat)
		logger.Debug("Configuration loaded", "history_url", cfg.HistoryURL, "state_path", cfg.StatePath)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./"+config.DefaultConfigFile+")")
	// Add a persistent flag for verbose output, available to all commands.
	flags.BoolP("verbose", "v", false, "Enable verbose/debug logging")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("history-url", "", "Base URL of the history service")
	flags.String("state", "", "Path of the local state database")
	flags.Duration("timeout", 0, "Timeout of a single history request")
}
