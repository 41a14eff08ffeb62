package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/ledger"
)

// ChannelCmd creates the channel command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ChannelCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Rate and list source channels",
		Long: `Keep a manual assessment of the channels you analyse.

Factual quality and argument quality use the z-scale from -2 to +2. Bias is
a free-form direction with a strength from 0 (none) to 3 (strong). Tags
describe the channel's mode, for example "erklaerend" or "meinung".`,
		Example: `  somas channel rate "Finanzfluss" --factual 2 --argument 1
  somas channel show "Finanzfluss"
  somas channel list`,
	}

	cmd.AddCommand(channelRateCmd(env))
	cmd.AddCommand(channelShowCmd(env))
	cmd.AddCommand(channelListCmd(env))

	return cmd
}

// channelRateFlags holds the "channel rate" flags.
type channelRateFlags struct {
	factual       int
	argument      int
	biasDirection string
	biasStrength  int
	tags          []string
	notes         string
}

// channelRateCmd creates the "channel rate" subcommand.
func channelRateCmd(env *Env) *cobra.Command {
	var f channelRateFlags

	cmd := &cobra.Command{
		Use:   "rate <channel>",
		Short: "Create or update a channel rating",
		Long: `Create or update the rating of a channel.

Only the given flags change; the rest of an existing rating is kept.`,
		Example: `  somas channel rate "Finanzfluss" --factual 2 --argument 1 --tags erklaerend,finanzen
  somas channel rate "Kanal X" --bias-direction links --bias-strength 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelRate(cmd, env, args[0], f)
		},
	}

	cmd.Flags().IntVar(&f.factual, "factual", 0, "Factual quality, -2 to +2")
	cmd.Flags().IntVar(&f.argument, "argument", 0, "Argument quality, -2 to +2")
	cmd.Flags().StringVar(&f.biasDirection, "bias-direction", "", "Direction of the channel's bias")
	cmd.Flags().IntVar(&f.biasStrength, "bias-strength", 0, "Bias strength, 0 to 3")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "Comma-separated mode tags")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Free-form notes")

	return cmd
}

// channelShowCmd creates the "channel show" subcommand.
func channelShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "show <channel>",
		Short:   "Show a channel rating",
		Example: `  somas channel show "Finanzfluss"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelShow(cmd.Context(), env, args[0])
		},
	}
}

// channelListCmd creates the "channel list" subcommand.
func channelListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List rated channels",
		Example: `  somas channel list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelList(cmd.Context(), env)
		},
	}
}

// runChannelRate merges the changed flags into the stored rating.
func runChannelRate(cmd *cobra.Command, env *Env, channel string, f channelRateFlags) error {
	ctx := cmd.Context()
	channel = strings.TrimSpace(channel)

	led, err := openLedger(ctx, env)
	if err != nil {
		return err
	}
	defer func() { _ = led.Close() }()

	rating, err := led.ChannelRating(ctx, channel)
	switch {
	case errors.Is(err, ledger.ErrUnrated):
		rating = ledger.ChannelRating{Channel: channel}
	case err != nil:
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("factual") {
		rating.Factual = f.factual
	}
	if flags.Changed("argument") {
		rating.Argument = f.argument
	}
	if flags.Changed("bias-direction") {
		rating.BiasDirection = f.biasDirection
	}
	if flags.Changed("bias-strength") {
		rating.BiasStrength = f.biasStrength
	}
	if flags.Changed("tags") {
		rating.Tags = f.tags
	}
	if flags.Changed("notes") {
		rating.Notes = f.notes
	}
	rating.UpdatedAt = env.Now()

	if err := led.SaveChannelRating(ctx, rating); err != nil {
		return err
	}
	env.Logger.Debug("channel rating saved", zap.String("channel", rating.Channel))

	fmt.Fprintf(env.Stdout, "Rated %s: factual %s, argument %s\n",
		rating.Channel, signed(rating.Factual), signed(rating.Argument))
	return nil
}

// runChannelShow prints one channel rating.
func runChannelShow(ctx context.Context, env *Env, channel string) error {
	led, err := openLedger(ctx, env)
	if err != nil {
		return err
	}
	defer func() { _ = led.Close() }()

	c, err := led.ChannelRating(ctx, strings.TrimSpace(channel))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Channel:\t%s\n", c.Channel)
	fmt.Fprintf(tw, "Factual:\t%s\n", signed(c.Factual))
	fmt.Fprintf(tw, "Argument:\t%s\n", signed(c.Argument))
	fmt.Fprintf(tw, "Bias:\t%s\n", bias(c))
	fmt.Fprintf(tw, "Tags:\t%s\n", orDash(strings.Join(c.Tags, ", ")))
	fmt.Fprintf(tw, "Notes:\t%s\n", orDash(c.Notes))
	fmt.Fprintf(tw, "Updated:\t%s\n", c.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return tw.Flush()
}

// runChannelList prints all rated channels.
func runChannelList(ctx context.Context, env *Env) error {
	led, err := openLedger(ctx, env)
	if err != nil {
		return err
	}
	defer func() { _ = led.Close() }()

	channels, err := led.Channels(ctx)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		fmt.Fprintln(env.Stdout, "No channels rated yet.")
		return nil
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tFACTUAL\tARGUMENT\tBIAS\tTAGS")
	for _, c := range channels {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.Channel,
			signed(c.Factual),
			signed(c.Argument),
			bias(c),
			orDash(strings.Join(c.Tags, ",")))
	}
	return tw.Flush()
}

// bias renders direction and strength, e.g. "links (2/3)".
func bias(c ledger.ChannelRating) string {
	if c.BiasStrength == 0 {
		return "-"
	}
	return fmt.Sprintf("%s (%d/%d)", orDash(c.BiasDirection), c.BiasStrength, ledger.MaxBiasStrength)
}
