package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-somas/internal/format"
)

// PresetsCmd creates the presets command.
// The env parameter provides injectable dependencies for testing.
func PresetsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List analysis presets and modules",
		Long: `List the analysis presets and the selectable fifth-section modules.

Presets and extra modules can be customized with a presets.yaml in the
config directory. The default preset is marked with *.`,
		Example: `  somas presets`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPresets(env)
		},
	}
}

// runPresets prints the preset table and the module vocabulary.
func runPresets(env *Env) error {
	catalog, err := env.Catalogs.LoadCatalog()
	if err != nil {
		return err
	}
	defaultID := catalog.Default().ID

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tNAME\tDEPTH\tLENGTH\tREADING\tPERSPECTIVE\tWEB")
	for _, p := range catalog.All() {
		marker := " "
		if p.ID == defaultID {
			marker = "*"
		}
		reading := "-"
		if p.ReadingTimeSeconds > 0 {
			reading = format.DurationHuman(time.Duration(p.ReadingTimeSeconds) * time.Second)
		}
		web := "no"
		if p.RequiresWebSearch {
			web = "yes"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			marker, p.ID, p.Name, p.Depth, format.Chars(p.MaxChars), reading,
			p.DefaultPerspective().OrDefault(), web)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(env.Stdout, "\nModules:")
	for _, spec := range catalog.Vocabulary().Specs() {
		fmt.Fprintf(env.Stdout, "  %s  %s\n", spec.Module, spec.Criterion)
	}
	return nil
}
