package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"mspro-labs/phone-advisor/internal/ai"
	"mspro-labs/phone-advisor/internal/db"
)

const pingTimeout = 30 * time.Second

var verifyPing bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check configuration, database and the Gemini key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Check", "Status", "Detail"})
		failed := 0
		check := func(name string, err error, detail string) {
			status := "ok"
			if err != nil {
				status = "FAIL"
				detail = err.Error()
				failed++
			}
			t.AppendRow(table.Row{name, status, detail})
		}

		check("site config", nil, fmt.Sprintf("%s (%s fetcher) from %s", siteCfg.Name, siteCfg.Fetcher, appCfg.ConfigPath))

		keyErr := ai.ValidateAPIKey(appCfg.GeminiAPIKey)
		check("gemini key", keyErr, ai.MaskAPIKey(appCfg.GeminiAPIKey))

		conn, err := openDB()
		if err == nil {
			defer conn.Close()
			var n int
			n, err = db.CountActivePhones(ctx, conn)
			check("database", err, fmt.Sprintf("%s, %d active phones", appCfg.DBPath, n))
			var pending map[string]string
			pending, err = db.GetUnembeddedPhones(ctx, conn)
			check("embeddings", err, fmt.Sprintf("%d phones waiting for embeddings", len(pending)))
		} else {
			check("database", err, "")
		}

		if verifyPing && keyErr == nil {
			check("gemini ping", ping(ctx), appCfg.GeminiModel)
		}

		t.Render()
		if failed > 0 {
			return fmt.Errorf("%d checks failed", failed)
		}
		return nil
	},
}

// ping makes one tiny generation call.
func ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	client, err := newAIClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	_, err = client.Generate(ctx, ai.Request{Prompt: "Reply with OK.", MaxTokens: 8})
	return err
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyPing, "ping", false, "also make a test call to Gemini")
	rootCmd.AddCommand(verifyCmd)
}
