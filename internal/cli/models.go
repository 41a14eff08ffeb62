package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-somas/internal/provider"
)

// maxConcurrentListings bounds parallel model listings for --all.
const maxConcurrentListings = 4

// providerModels is the listing result of one provider.
type providerModels struct {
	def    provider.Definition
	models []provider.Model
	// static is true when no key was available and the built-in table is shown.
	static bool
}

// ModelsCmd creates the models command.
// The env parameter provides injectable dependencies for testing.
func ModelsCmd(env *Env) *cobra.Command {
	var (
		providerID string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models of a provider",
		Long: `List the models a provider offers.

Providers with a models endpoint are queried live; on failure, or without
an API key, the built-in model table is shown instead. The default model
is marked with *.`,
		Example: `  somas models
  somas models --provider openrouter
  somas models --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd.Context(), env, providerID, all)
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "Provider ID (default from config, else perplexity)")
	cmd.Flags().BoolVar(&all, "all", false, "List the models of every provider")
	cmd.MarkFlagsMutuallyExclusive("provider", "all")

	return cmd
}

// runModels resolves the providers and prints their models.
func runModels(ctx context.Context, env *Env, providerID string, all bool) error {
	var defs []provider.Definition
	if all {
		loaded, err := env.Definitions.LoadDefinitions()
		if err != nil {
			return err
		}
		defs = loaded.All()
	} else {
		def, err := resolveDefinition(env, loadConfig(env), providerID)
		if err != nil {
			return err
		}
		defs = []provider.Definition{def}
	}

	results := make([]providerModels, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentListings)
	for i, def := range defs {
		g.Go(func() error {
			res, err := listModels(gctx, env, def)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		header := res.def.Name
		if res.static {
			header += " (built-in list, no API key)"
		}
		fmt.Fprintf(tw, "%s\n", header)
		for _, m := range res.models {
			marker := " "
			if m.ID == res.def.DefaultModel {
				marker = "*"
			}
			name := m.DisplayName
			if name == "" {
				name = m.ID
			}
			fmt.Fprintf(tw, "%s %s\t%s\t%s\n", marker, m.ID, name, m.Description)
		}
	}
	return tw.Flush()
}

// listModels queries one provider, or returns its static table when no key
// is configured.
func listModels(ctx context.Context, env *Env, def provider.Definition) (providerModels, error) {
	apiKey, err := resolveAPIKey(env, def)
	if errors.Is(err, ErrAPIKeyMissing) {
		return providerModels{def: def, models: def.Models, static: true}, nil
	}
	if err != nil {
		return providerModels{}, err
	}

	client, err := env.ProviderFactory.NewClient(def, apiKey, provider.WithLogger(env.Logger))
	if err != nil {
		return providerModels{}, err
	}
	return providerModels{def: def, models: client.ListModels(ctx)}, nil
}
