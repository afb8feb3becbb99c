package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mspro-labs/phone-advisor/internal/advisor"
	"mspro-labs/phone-advisor/internal/catalog"
	"mspro-labs/phone-advisor/internal/db"
	"mspro-labs/phone-advisor/internal/recommender"
)

var (
	recPriority string
	recTop      int
	recReasons  bool
	recCriteria catalog.Criteria
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank the stored phones for a priority",
	Example: `  phone-advisor recommend --priority Camera --max-price 30000
  phone-advisor recommend --priority Performance --min-ram 8 --brand Samsung --brand POCO --reasons`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		priority, err := matchPriority(recPriority)
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
		if len(phones) == 0 {
			return errors.New(`no phones stored yet; run "phone-advisor scrape" first`)
		}

		out := cmd.OutOrStdout()
		matched := catalog.FilterBySpecs(phones, recCriteria)
		if len(matched) == 0 {
			fmt.Fprintln(out, "No phones match your exact specifications. Showing the best overall matches instead.")
			matched = phones
		}

		recs := recommender.Recommend(matched, priority, recTop)
		fmt.Fprintf(out, "Top %d for %s: %s\n", len(recs), priority, recommender.Explain(priority))

		var reasons []string
		if recReasons {
			client := optionalAI(ctx)
			if client != nil {
				defer client.Close()
			}
			r := recommender.New(generator(client), log)
			reasons = make([]string, len(recs))
			for i, rec := range recs {
				reasons[i] = strings.TrimSpace(r.Reason(ctx, rec.Phone, priority))
			}
		}
		renderRecommendations(out, recs, reasons)
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <phone> <phone>",
	Short: "Compare two stored phones",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if args[0] == args[1] {
			return errors.New("please select two different phones to compare")
		}
		conn, err := openDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		cat := catalog.New(conn, nil, log)
		a, errA := cat.Phone(ctx, args[0])
		b, errB := cat.Phone(ctx, args[1])
		if err := errors.Join(notFound(args[0], errA), notFound(args[1], errB)); err != nil {
			return err
		}

		client := optionalAI(ctx)
		if client != nil {
			defer client.Close()
		}
		verdicts := recommender.New(generator(client), log).Compare(ctx, a, b)
		renderComparison(cmd.OutOrStdout(), a, b, verdicts)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <phone>",
	Short: "Show one phone with a market insight and a review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, err := openDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		client := optionalAI(ctx)
		if client != nil {
			defer client.Close()
		}
		cat := catalog.New(conn, generator(client), log)
		p, err := cat.Phone(ctx, args[0])
		if err := notFound(args[0], err); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, advisor.FormatDetails(p))
		fmt.Fprintln(out)
		fmt.Fprintln(out, cat.Insight(ctx, p))
		if client != nil {
			fmt.Fprintln(out)
			fmt.Fprintln(out, advisor.New(client, log).PhoneDetails(ctx, p))
		}
		return nil
	},
}

// matchPriority accepts any letter case, e.g. "camera" for Camera.
func matchPriority(s string) (string, error) {
	for _, p := range recommender.Priorities {
		if strings.EqualFold(strings.TrimSpace(s), p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q; use one of: %s", s, strings.Join(recommender.Priorities, ", "))
}

func notFound(name string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("phone %q not found", name)
	}
	return err
}

func init() {
	f := recommendCmd.Flags()
	f.StringVarP(&recPriority, "priority", "p", recommender.ValueForMoney,
		"one of: "+strings.Join(recommender.Priorities, ", "))
	f.IntVarP(&recTop, "top", "n", 5, "number of recommendations")
	f.BoolVar(&recReasons, "reasons", false, "add a reason for each pick (uses Gemini when configured)")
	f.IntVar(&recCriteria.MinPrice, "min-price", 0, "minimum price in rupees")
	f.IntVar(&recCriteria.MaxPrice, "max-price", 0, "maximum price in rupees")
	f.IntVar(&recCriteria.MinRAM, "min-ram", 0, "minimum RAM in GB")
	f.IntVar(&recCriteria.MinStorage, "min-storage", 0, "minimum storage in GB")
	f.IntVar(&recCriteria.MinCamera, "min-camera", 0, "minimum main camera in MP")
	f.IntVar(&recCriteria.MinBattery, "min-battery", 0, "minimum battery in mAh")
	f.Float64Var(&recCriteria.MinDisplay, "min-display", 0, "minimum display size in inches")
	f.StringSliceVar(&recCriteria.Brands, "brand", nil, "limit to these brands")

	rootCmd.AddCommand(recommendCmd, compareCmd, showCmd)
}
