package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-somas/internal/ledger"
	"github.com/alnah/go-somas/internal/prompt"
)

// defaultHistoryLimit is the number of analyses shown by default.
const defaultHistoryLimit = 10

// HistoryCmd creates the history command.
// The env parameter provides injectable dependencies for testing.
func HistoryCmd(env *Env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent analyses and their chosen modules",
		Long: `Show the most recent analyses recorded in the ledger, newest first.

The module column shows the fifth section the model chose; "-" means no
module heading was found in the completion. When the last analyses all
chose the same module, the next prompt asks for a different one.

CHARS shows the completion length against the preset budget, marked with
"!" when over it. RESP is the response time and RATING the z-rating given
with "somas rate". The ID column is accepted by "somas rate".`,
		Example: `  somas history
  somas history -n 25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), env, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of analyses to show")

	return cmd
}

// runHistory prints the ledger table and the anti-monotony state.
func runHistory(ctx context.Context, env *Env, limit int) error {
	if limit < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidLimit, limit)
	}

	cfg := loadConfig(env)
	led, err := openLedger(ctx, env)
	if err != nil {
		return err
	}
	defer func() { _ = led.Close() }()

	records, err := led.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(env.Stdout, "No analyses recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tPRESET\tPERSPECTIVE\tMODULE\tPROVIDER\tMODEL\tTOKENS\tCHARS\tRESP\tRATING")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ledger.ShortID(rec.ID),
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			rec.PresetID,
			rec.Perspective,
			orDash(rec.ChosenModule.String()),
			orDash(rec.ProviderID),
			orDash(rec.ModelID),
			orDash(tokens(rec.TokensUsed)),
			orDash(chars(rec)),
			orDash(responseTime(rec.ResponseTime)),
			orDash(modelRating(rec)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lookback := prompt.DefaultLookback
	if cfg.Lookback > 0 {
		lookback = cfg.Lookback
	}
	recent, err := led.RecentModules(ctx, lookback)
	if err != nil {
		return err
	}
	if m, ok := prompt.Monotonous(recent, lookback); ok {
		fmt.Fprintf(env.Stdout, "\nThe last %d analyses chose %s; the next prompt asks for another module.\n", lookback, m)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// chars renders the result length, "1834/1500!" when over the budget.
func chars(rec ledger.Record) string {
	if rec.ResultChars <= 0 {
		return ""
	}
	if rec.MaxChars <= 0 {
		return strconv.Itoa(rec.ResultChars)
	}
	s := fmt.Sprintf("%d/%d", rec.ResultChars, rec.MaxChars)
	if rec.OverLimit() {
		s += "!"
	}
	return s
}

func responseTime(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func modelRating(rec ledger.Record) string {
	if !rec.Rated {
		return ""
	}
	return signed(rec.ModelRating)
}

func tokens(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
