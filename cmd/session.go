package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/naka-gawa/gitgraph/internal/exporter"
	"github.com/naka-gawa/gitgraph/internal/page"
	"github.com/spf13/cobra"
)

const sessionHelp = `Commands:
  <owner/repo>          search (same as "search <owner/repo>")
  search <owner/repo>   fetch and show the star history
  show                  show the current chart, or the placeholder while loading
  hover <0..1>          show the point nearest to a horizontal position
  export <name>         save the chart as <name>_gitgraph.png
  token add <token>     store a token
  token remove          delete the stored token
  help                  show this help
  quit                  leave the session`

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Starts an interactive chart session",
	Long: `Starts an interactive session that keeps one chart page open. Searches run in
the background; a new search is refused while one is still loading.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "gitgraph> ",
			HistoryFile:     filepath.Join(filepath.Dir(cfg.StatePath), "session_history"),
			AutoComplete:    sessionCompleter(),
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
		})
		if err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		defer func() { _ = rl.Close() }()

		out := rl.Stdout()
		a, err := newApp(out)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.page.Init(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "gitgraph session (history service: %s)\n", cfg.HistoryURL)
		fmt.Fprintln(out, `Type "help" for commands, "quit" to exit`)

		var wg sync.WaitGroup
		defer wg.Wait()
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "quit" || line == "exit" {
				break
			}
			runSessionLine(ctx, out, a, &wg, line)
			rl.SetPrompt(sessionPrompt(a.page))
		}
		cancel()
		return nil
	},
}

func runSessionLine(ctx context.Context, out io.Writer, a *app, wg *sync.WaitGroup, line string) {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "help":
		fmt.Fprintln(out, sessionHelp)
	case "show":
		showPage(out, a.page)
	case "hover":
		card := a.page.Card()
		if card == nil {
			fmt.Fprintln(out, "Nothing loaded yet")
			return
		}
		fraction, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			fmt.Fprintf(out, "hover expects a number between 0 and 1, got %q\n", rest)
			return
		}
		fmt.Fprintln(out, card.Tooltip(fraction))
	case "export":
		if rest == "" {
			fmt.Fprintln(out, "export expects a file name")
			return
		}
		if a.page.Card() == nil {
			fmt.Fprintln(out, "Nothing loaded yet")
			return
		}
		if err := a.page.Export(ctx, rest); err == nil {
			fmt.Fprintf(out, "Saved %s\n", a.sink.Path(exporter.FileName(rest)))
		}
	case "token":
		sub, tok, _ := strings.Cut(rest, " ")
		switch sub {
		case "add":
			_ = a.page.AddToken(ctx, strings.TrimSpace(tok))
		case "remove", "rm":
			_ = a.page.RemoveToken(ctx)
		default:
			fmt.Fprintln(out, "usage: token add <token> | token remove")
		}
	default:
		repo := line
		if verb == "search" {
			repo = rest
		}
		input := a.page.Input()
		input.SetValue(repo)
		// The search runs in the background so the prompt stays usable.
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !input.Submit(ctx) {
				fmt.Fprintln(out, "A search is already running")
				return
			}
			showPage(out, a.page)
		}()
	}
}

func showPage(out io.Writer, p *page.Controller) {
	if placeholder := p.Placeholder(); placeholder != "" {
		fmt.Fprintln(out, placeholder)
		return
	}
	card := p.Card()
	if card == nil {
		fmt.Fprintln(out, "Nothing loaded yet")
		return
	}
	renderHistoryTable(out, p.State().Data)
}

func sessionPrompt(p *page.Controller) string {
	return fmt.Sprintf("gitgraph [%s]> ", p.Input().Label())
}

func sessionCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("search"),
		readline.PcItem("show"),
		readline.PcItem("hover"),
		readline.PcItem("export"),
		readline.PcItem("token", readline.PcItem("add"), readline.PcItem("remove")),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.Flags().String("output-dir", "", "Directory exported images are written to")
}
