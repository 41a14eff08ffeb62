package cli

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/alnah/go-somas/internal/config"
)

// PromptCmd creates the prompt command (build a prompt without sending it).
// The env parameter provides injectable dependencies for testing.
func PromptCmd(env *Env) *cobra.Command {
	var (
		flags  promptFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "prompt [url]",
		Short: "Build an analysis prompt",
		Long: `Build a SOMAS analysis prompt for a video or a manual transcript.

The prompt is printed to stdout, ready to paste into any chat interface.
Metadata and captions are fetched with yt-dlp unless --no-fetch or
--transcript-file is given. Without captions the prompt falls back to
title, channel and URL only.

When the recent analyses all chose the same module, the prompt asks the
model to prefer another one.`,
		Example: `  somas prompt https://youtu.be/dQw4w9WgXcQ
  somas prompt https://youtu.be/dQw4w9WgXcQ -p quick --perspective critical
  somas prompt https://youtu.be/dQw4w9WgXcQ --start 5:00 --end 12:30
  somas prompt -f talk.txt --title "Keynote" --author "Jane Doe" -o prompt.md
  pbpaste | somas prompt -f - --title "Notes"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrompt(cmd, env, firstArg(args), flags, output)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the prompt to a file instead of stdout")

	return cmd
}

// runPrompt builds the prompt and writes it to stdout or a file.
func runPrompt(cmd *cobra.Command, env *Env, url string, flags promptFlags, output string) error {
	cfg := loadConfig(env)
	prepared, err := preparePrompt(cmd.Context(), env, cfg, url, flags)
	if err != nil {
		return err
	}
	defer prepared.close()

	fmt.Fprintf(env.Stderr, "Preset: %s, perspective: %s, %d characters\n",
		prepared.preset.ID, prepared.perspective, utf8.RuneCountInString(prepared.text))

	if output == "" {
		_, err := fmt.Fprintln(env.Stdout, prepared.text)
		return err
	}

	path := config.ResolveOutputPath(output, cfg.OutputDir, output)
	warnNonMarkdownExtension(env.Stderr, path)
	if err := writeFileAtomic(path, prepared.text); err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Done: %s\n", path)
	return nil
}

// firstArg returns args[0], or "" when args is empty.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
