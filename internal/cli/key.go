package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alnah/go-somas/internal/provider"
	"github.com/alnah/go-somas/internal/secret"
)

// KeyCmd creates the key command with subcommands.
// The env parameter provides injectable dependencies for testing.
func KeyCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage provider API keys",
		Long: `Manage provider API keys in the system keyring.

Keys are looked up in the keyring first, then in the provider's environment
variable (PERPLEXITY_API_KEY, OPENROUTER_API_KEY, DEEPSEEK_API_KEY,
OPENAI_API_KEY). Keys are never written to the config file.`,
		Example: `  echo "$PERPLEXITY_API_KEY" | somas key set perplexity
  somas key list
  somas key delete openai`,
	}

	cmd.AddCommand(keySetCmd(env))
	cmd.AddCommand(keyDeleteCmd(env))
	cmd.AddCommand(keyListCmd(env))

	return cmd
}

// keySetCmd creates the "key set" subcommand.
func keySetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key",
		Long: `Store the API key of a provider in the system keyring.

The key is read from the first line of stdin.`,
		Example: `  somas key set perplexity
  pbpaste | somas key set openrouter`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeySet(env, args[0])
		},
	}
}

// keyDeleteCmd creates the "key delete" subcommand.
func keyDeleteCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <provider>",
		Short:   "Remove an API key",
		Example: `  somas key delete openai`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyDelete(env, args[0])
		},
	}
}

// keyListCmd creates the "key list" subcommand.
func keyListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "Show which providers have a key",
		Example: `  somas key list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(env)
		},
	}
}

// lookupDefinition returns the definition of a provider named on the command line.
func lookupDefinition(env *Env, id string) (provider.Definition, error) {
	defs, err := env.Definitions.LoadDefinitions()
	if err != nil {
		return provider.Definition{}, err
	}
	return defs.Get(id)
}

// runKeySet handles the "key set" command.
func runKeySet(env *Env, id string) error {
	def, err := lookupDefinition(env, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "API key for %s: ", def.Name)
	line, err := bufio.NewReader(env.Stdin).ReadString('\n')
	fmt.Fprintln(env.Stderr)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read key: %w", err)
	}

	key := strings.TrimSpace(line)
	if key == "" {
		return fmt.Errorf("%s: %w", def.ID, secret.ErrEmptySecret)
	}
	if err := env.Secrets.Set(secret.KeyName(def.ID), key); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Stored key for %s (%s)\n", def.Name, secret.Mask(key))
	return nil
}

// runKeyDelete handles the "key delete" command.
func runKeyDelete(env *Env, id string) error {
	def, err := lookupDefinition(env, id)
	if err != nil {
		return err
	}

	if err := env.Secrets.Delete(secret.KeyName(def.ID)); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Deleted key for %s\n", def.Name)
	return nil
}

// runKeyList handles the "key list" command.
func runKeyList(env *Env) error {
	defs, err := env.Definitions.LoadDefinitions()
	if err != nil {
		return err
	}

	resolver := secret.NewResolver(env.Secrets, env.Getenv)
	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	for _, def := range defs.All() {
		key, origin, err := resolver.APIKey(def.ID, def.KeyEnv)
		switch {
		case errors.Is(err, secret.ErrNotFound):
			fmt.Fprintf(tw, "%s\tnot set\t(%s)\n", def.ID, def.KeyEnv)
		case err != nil:
			return err
		default:
			fmt.Fprintf(tw, "%s\t%s\t(%s)\n", def.ID, secret.Mask(key), origin)
		}
	}
	return tw.Flush()
}
