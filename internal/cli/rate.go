package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alnah/go-somas/internal/ledger"
)

// RateCmd creates the rate command.
// The env parameter provides injectable dependencies for testing.
func RateCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate <id|last> <rating>",
		Short: "Rate the model output of an analysis",
		Long: `Rate how useful the model output of a recorded analysis was.

The rating uses a z-scale from -2 (useless) over 0 (as expected) to +2
(excellent). The analysis is given by the short ID shown in "somas history",
a full ID, or "last". Rating again replaces the previous value.`,
		Example: `  somas rate last +1
  somas rate 5d1c9a0e -2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRate(cmd.Context(), env, args[0], args[1])
		},
	}
	// Keep "-2" a positional argument instead of a shorthand flag.
	cmd.Flags().SetInterspersed(false)

	return cmd
}

// runRate resolves ref and stores the rating.
func runRate(ctx context.Context, env *Env, ref, value string) error {
	z, err := parseRating(value)
	if err != nil {
		return err
	}

	led, err := openLedger(ctx, env)
	if err != nil {
		return err
	}
	defer func() { _ = led.Close() }()

	id, err := led.ResolveID(ctx, ref)
	if err != nil {
		return err
	}
	if err := led.RateModel(ctx, id, z); err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "Rated %s: %s\n", ledger.ShortID(id), signed(z))
	return nil
}

// parseRating parses a z-scale value such as "-2", "0" or "+1".
func parseRating(s string) (int, error) {
	z, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("rating %q is not a number: %w", s, ledger.ErrInvalidRating)
	}
	if err := ledger.ValidateRating(z); err != nil {
		return 0, err
	}
	return z, nil
}

// signed formats a z-scale value with an explicit sign.
func signed(z int) string {
	return fmt.Sprintf("%+d", z)
}

// openLedger loads the preset catalog and opens the ledger with its
// vocabulary. The caller must close the ledger.
func openLedger(ctx context.Context, env *Env) (Ledger, error) {
	catalog, err := env.Catalogs.LoadCatalog()
	if err != nil {
		return nil, err
	}
	return env.LedgerOpener.OpenLedger(ctx, catalog.Vocabulary(), env.Logger)
}
