package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manages the stored GitHub personal access token",
	Long: `The token is kept in the local state database and sent to the history
service as a bearer token. It is stored verbatim and never validated.`,
}

var tokenAddCmd = &cobra.Command{
	Use:   "add <token>",
	Short: "Stores a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.Close()
		return a.page.AddToken(cmd.Context(), args[0])
	},
}

var tokenRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm"},
	Short:   "Deletes the stored token",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.Close()
		return a.page.RemoveToken(cmd.Context())
	},
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Shows whether a token is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		tok, ok, err := a.tokens.Get(cmd.Context())
		if err != nil {
			return err
		}
		if !ok || tok == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No token stored")
			return nil
		}
		reveal, _ := cmd.Flags().GetBool("reveal")
		if !reveal {
			tok = maskToken(tok)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

// maskToken keeps the first and last four characters of long tokens.
func maskToken(tok string) string {
	if len(tok) <= 8 {
		return strings.Repeat("*", len(tok))
	}
	return tok[:4] + strings.Repeat("*", len(tok)-8) + tok[len(tok)-4:]
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenAddCmd, tokenRemoveCmd, tokenShowCmd)
	tokenShowCmd.Flags().Bool("reveal", false, "Print the token in full")
}
