package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/naka-gawa/gitgraph/internal/domain"
	"github.com/naka-gawa/gitgraph/internal/exporter"
	"github.com/naka-gawa/gitgraph/internal/usecase"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var historyCmd = &cobra.Command{
	Use:   "history <owner/repo>",
	Short: "Shows the star history of a repository",
	Long: `Fetches the star history of a repository from the history service using the
stored token, if any. The card can be exported as <name>_gitgraph.png with --export.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		exportName, _ := cmd.Flags().GetString("export")
		format, _ := cmd.Flags().GetString("format")
		withSummary, _ := cmd.Flags().GetBool("summary")

		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.page.Init(ctx); err != nil {
			return err
		}
		if err := a.page.Search(ctx, args[0]); err != nil {
			// Already reported by the notifier.
			cmd.SilenceErrors = true
			return err
		}
		data := a.page.State().Data

		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(data); err != nil {
				return fmt.Errorf("failed to marshal results to JSON: %w", err)
			}
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(data); err != nil {
				return fmt.Errorf("failed to marshal results to YAML: %w", err)
			}
			_ = enc.Close()
		case "table":
			renderHistoryTable(out, data)
		case "card", "":
			card := a.page.Card()
			fmt.Fprintf(out, "%s  ★ %s  (%d points)\n", card.Name(), card.TotalStarsLabel(), card.PointCount())
		default:
			return fmt.Errorf("unknown format %q: use card, table, json or yaml", format)
		}

		if withSummary {
			summary, err := usecase.Summarize(data)
			if err != nil {
				return err
			}
			renderSummary(out, summary)
		}

		if exportName != "" {
			if err := a.page.Export(ctx, exportName); err != nil {
				cmd.SilenceErrors = true
				return err
			}
			fmt.Fprintf(out, "Saved %s\n", a.sink.Path(exporter.FileName(exportName)))
		}
		return nil
	},
}

func renderHistoryTable(w io.Writer, data *domain.ChartData) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s ★ %s", data.Name, humanize.Comma(int64(data.TotalStars))))
	t.AppendHeader(table.Row{"Date", "Stars"})
	for _, r := range data.Data {
		t.AppendRow(table.Row{r.Date, humanize.Comma(int64(r.Stars))})
	}
	t.Render()
}

func renderSummary(w io.Writer, s usecase.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Points", s.Points},
		{"Period", s.First + " - " + s.Last},
		{"Mean gain", humanize.CommafWithDigits(s.MeanGain, 1)},
		{"Median gain", humanize.CommafWithDigits(s.MedianGain, 1)},
		{"Max gain", humanize.CommafWithDigits(s.MaxGain, 1)},
	})
	t.Render()
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("export", "", "Export the card as <name>_gitgraph.png")
	historyCmd.Flags().String("output-dir", "", "Directory exported images are written to")
	historyCmd.Flags().String("line-color", "", "Line color of the chart, e.g. #47c98f")
	historyCmd.Flags().StringP("format", "f", "card", "Output format: card, table, json or yaml")
	historyCmd.Flags().Bool("summary", false, "Print star gain statistics")
}
