package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"mspro-labs/phone-advisor/internal/catalog"
	"mspro-labs/phone-advisor/internal/logger"
	"mspro-labs/phone-advisor/internal/recommender"
	"mspro-labs/phone-advisor/internal/web"
)

var (
	servePort     int
	serveNoScrape bool
	serveMaxAge   time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, err := openDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		client, aiErr := optionalAIWithErr(ctx)
		if client != nil {
			defer client.Close()
		}

		deps := web.Deps{
			DB:          conn,
			Catalog:     catalog.New(conn, generator(client), log),
			Recommender: recommender.New(generator(client), log),
			Generator:   generator(client),
			Embedder:    embedderOf(client),
			AIErr:       aiErr,
			Refresh:     catalog.RefreshOptions{Max: defaultScrapeMax, MaxAge: serveMaxAge},
			Log:         log,
			Debug:       appCfg.Debug,
		}
		if !serveNoScrape {
			s, closeScraper, err := newScraper(client)
			if err != nil {
				log.Warn("Scraping disabled", logger.Error(err))
			} else {
				defer closeScraper()
				deps.Scraper = s
			}
		}

		srv, err := web.NewServer(deps)
		if err != nil {
			return err
		}
		addr := appCfg.Addr()
		if cmd.Flags().Changed("port") {
			appCfg.Port = servePort
			addr = appCfg.Addr()
		}
		return srv.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveNoScrape, "no-scrape", false, "disable scraping from the web UI")
	serveCmd.Flags().DurationVar(&serveMaxAge, "max-age", 24*time.Hour, "reuse a scrape of the same query younger than this")
	rootCmd.AddCommand(serveCmd)
}
