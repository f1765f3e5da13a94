package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/cognates/pkg/db"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <prefix>",
	Short: "Suggest dictionary words starting with prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		words, err := a.suggester.Suggest(ctx, args[0])
		if err != nil {
			return err
		}
		for _, w := range words {
			fmt.Fprintln(cmd.OutOrStdout(), w)
		}
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := db.RecentSearches(a.conn, historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, r := range records {
			fmt.Fprintf(out, "%s  %s %s→%s  %d edges  (%d×)\n",
				r.LastSearchedAt.Format("2006-01-02 15:04"), r.Word, r.SrcLang, r.TrgLang, r.EdgeCount, r.SearchCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of searches to list")
}
