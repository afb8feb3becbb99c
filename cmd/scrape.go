package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/catalog"
	"mspro-labs/phone-advisor/internal/embedder"
	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/scraper"
)

const (
	defaultScrapeQuery = "smartphone"
	defaultScrapeMax   = 15
	embedDelay         = time.Second
)

var (
	scrapeMax    int
	scrapeMaxAge time.Duration
	scrapeForce  bool
	scrapeFresh  bool
	scrapeEmbed  bool
	importFresh  bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [query]",
	Short: "Scrape phone listings into the database",
	Long: `Scrape searches the configured site for the query (default "smartphone"),
extracts specs for each product and stores them. A query scraped within
--max-age is served from the database unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := defaultScrapeQuery
		if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
			query = args[0]
		}

		conn, err := openDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		client := optionalAI(ctx)
		if client != nil {
			defer client.Close()
		}
		s, closeScraper, err := newScraper(client)
		if err != nil {
			return err
		}
		defer closeScraper()

		res, err := catalog.New(conn, generator(client), log).Refresh(ctx, s, query, catalog.RefreshOptions{
			Max:    scrapeMax,
			MaxAge: scrapeMaxAge,
			Force:  scrapeForce,
			Fresh:  scrapeFresh,
		})
		if err != nil {
			return fmt.Errorf("scrape %q: %w", query, err)
		}

		out := cmd.OutOrStdout()
		if res.Cached {
			fmt.Fprintf(out, "%q was scraped at %s; showing stored phones (use --force to rescrape).\n",
				query, res.At.Local().Format(time.DateTime))
		} else {
			fmt.Fprintf(out, "Scraped %d phones for %q (%d saved).\n", len(res.Phones), query, res.Saved)
		}
		renderPhones(out, res.Phones)

		if scrapeEmbed && client != nil && !res.Cached {
			return embedAll(cmd, client)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <raw.json>",
	Short: "Structure and store a raw product dump",
	Long:  "Import reads a raw dump written by the scraper (raw_dump_path), extracts specs and stores the phones.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		raw, err := scraper.LoadRaw(args[0])
		if err != nil {
			return err
		}

		conn, err := openDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		client := optionalAI(ctx)
		if client != nil {
			defer client.Close()
		}
		s := scraper.New(siteCfg, nil, scraper.NewSpecExtractor(generator(client), log), log)
		phones := s.Structure(ctx, raw)

		saved, err := catalog.New(conn, generator(client), log).Ingest(ctx, phones, importFresh)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d products (%d saved).\n", len(phones), len(raw), saved)
		renderPhones(cmd.OutOrStdout(), phones)
		return nil
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate embeddings for phones that have none",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAIClient(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()
		return embedAll(cmd, client)
	},
}

var embedWait time.Duration

func embedAll(cmd *cobra.Command, emb ai.Embedder) error {
	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	n, err := embedder.Run(cmd.Context(), conn, emb, log, embedWait)
	if err != nil {
		return err
	}
	log.Info("Embedding finished", logger.Int("embedded", n))
	fmt.Fprintf(cmd.OutOrStdout(), "Embedded %d phones.\n", n)
	return nil
}

func init() {
	scrapeCmd.Flags().IntVarP(&scrapeMax, "max", "n", defaultScrapeMax, "maximum products to scrape")
	scrapeCmd.Flags().DurationVar(&scrapeMaxAge, "max-age", 24*time.Hour, "reuse a scrape of the same query younger than this")
	scrapeCmd.Flags().BoolVar(&scrapeForce, "force", false, "scrape even when a recent run exists")
	scrapeCmd.Flags().BoolVar(&scrapeFresh, "fresh", false, "deactivate phones missing from this scrape")
	scrapeCmd.Flags().BoolVar(&scrapeEmbed, "embed", true, "embed new phones when Gemini is configured")
	scrapeCmd.Flags().DurationVar(&embedWait, "embed-delay", embedDelay, "pause between embedding calls")

	importCmd.Flags().BoolVar(&importFresh, "fresh", false, "deactivate phones missing from the dump")

	embedCmd.Flags().DurationVar(&embedWait, "delay", embedDelay, "pause between embedding calls")

	rootCmd.AddCommand(scrapeCmd, importCmd, embedCmd)
}
