package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"mspro-labs/phone-advisor/internal/db"
	"mspro-labs/phone-advisor/internal/searcher"
)

var (
	searchTop      int
	searchMinScore float32
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over the stored phones",
	Example: `  phone-advisor search "compact phone with a great camera"
  phone-advisor search history
  phone-advisor search clear all`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newAIClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		conn, err := openDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		query := strings.Join(args, " ")
		results, err := searcher.Perform(ctx, conn, client, query, searcher.Options{TopN: searchTop, MinScore: searchMinScore})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No phones matched %q. Run \"phone-advisor embed\" if phones were scraped recently.\n", query)
			return nil
		}
		renderSearchResults(cmd.OutOrStdout(), results)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List cached search queries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		entries, err := db.ListSearchHistory(cmd.Context(), conn)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Search history is empty.")
			return nil
		}
		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Query", "Cached"})
		for _, e := range entries {
			t.AppendRow(table.Row{e.QueryText, e.CreatedAt.Local().Format(time.DateTime)})
		}
		t.Render()
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <query|all>",
	Short: "Remove a cached query, or all of them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		target := strings.Join(args, " ")
		var n int64
		if target == "all" {
			n, err = db.ClearAllSearchHistory(cmd.Context(), conn)
		} else {
			n, err = db.ClearSearchHistory(cmd.Context(), conn, target)
		}
		if err != nil {
			return err
		}
		if n == 0 && target != "all" {
			return fmt.Errorf("no cached query named %q", target)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached queries.\n", n)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchTop, "top", "n", searcher.DefaultTopN, "number of results")
	searchCmd.Flags().Float32Var(&searchMinScore, "min-score", searcher.DefaultMinScore, "minimum cosine similarity")
	searchCmd.AddCommand(historyCmd, clearCmd)
	rootCmd.AddCommand(searchCmd)
}
