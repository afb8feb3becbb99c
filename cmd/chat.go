package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mspro-labs/phone-advisor/internal/advisor"
	"mspro-labs/phone-advisor/internal/catalog"
	"mspro-labs/phone-advisor/internal/models"
	"mspro-labs/phone-advisor/internal/recommender"
)

var chatPriority string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask the advisor about the top recommendations",
	Long: `Chat starts an interactive session about the top phones for --priority.

Commands:
  /gaming /photography /battery /student /professional   quick answers
  /clear                                                  forget the conversation
  /quit                                                   leave`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		priority, err := matchPriority(chatPriority)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		conn, err := openDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		phones, err := catalog.New(conn, nil, log).Phones(ctx)
		if err != nil {
			return err
		}
		recs := recommender.Phones(recommender.Recommend(phones, priority, 5))

		client := optionalAI(ctx)
		if client != nil {
			defer client.Close()
		}
		adv := advisor.New(generator(client), log)
		return chatLoop(cmd, adv, recs)
	},
}

func chatLoop(cmd *cobra.Command, adv *advisor.Advisor, recs []models.Phone) error {
	out := cmd.OutOrStdout()
	if adv.AIEnabled() {
		fmt.Fprintln(out, "AI Advisor ready. Ask anything about these phones (/quit to leave).")
	} else {
		fmt.Fprintln(out, "Gemini is not configured; answers are rule based (/quit to leave).")
	}
	for i, p := range recs {
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, p.FullName, models.FormatINR(p.Price))
	}

	ctx := cmd.Context()
	lines, readErr := readLines(ctx, cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\nyou> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return <-readErr
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/clear":
			adv.ClearHistory()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		case strings.HasPrefix(line, "/"):
			fmt.Fprintln(out, advisor.UseCase(strings.TrimPrefix(line, "/"), recs))
			continue
		}

		fmt.Fprint(out, "advisor> ")
		_, err := adv.Stream(ctx, line, recs, func(chunk string) error {
			_, err := io.WriteString(out, chunk)
			return err
		})
		fmt.Fprintln(out)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLines scans r on its own goroutine so the prompt can give up on ctx.
// readErr receives the scanner error once lines is closed.
func readLines(ctx context.Context, r io.Reader) (lines <-chan string, readErr <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		in := bufio.NewScanner(r)
		for in.Scan() {
			select {
			case out <- in.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- in.Err()
	}()
	return out, errc
}

func init() {
	chatCmd.Flags().StringVarP(&chatPriority, "priority", "p", recommender.ValueForMoney, "priority used to pick the phones under discussion")
	rootCmd.AddCommand(chatCmd)
}
