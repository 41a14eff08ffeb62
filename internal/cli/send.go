package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alnah/go-somas/internal/analysis"
	"github.com/alnah/go-somas/internal/config"
	"github.com/alnah/go-somas/internal/dispatch"
	"github.com/alnah/go-somas/internal/ledger"
	"github.com/alnah/go-somas/internal/provider"
)

// sendOptions holds the provider-side flags of the send command.
type sendOptions struct {
	provider string
	model    string
	output   string
}

// SendCmd creates the send command (build a prompt and send it to a provider).
// The env parameter provides injectable dependencies for testing.
func SendCmd(env *Env) *cobra.Command {
	var (
		flags promptFlags
		opts  sendOptions
	)

	cmd := &cobra.Command{
		Use:   "send [url]",
		Short: "Build an analysis prompt and send it to a provider",
		Long: `Build a SOMAS analysis prompt and send it to an LLM provider.

The completion is written to a Markdown file named after the video title
(in output-dir when configured), or to stdout with -o -. Citations returned
by the provider are appended as a source list.

The module chosen by the model is recorded in the local ledger so later
prompts can steer away from repeating it.

Providers: perplexity (default), openrouter, deepseek, openai, plus any
defined in providers.yaml. API keys come from the system keyring
('somas key set <provider>') or the provider's environment variable.`,
		Example: `  somas send https://youtu.be/dQw4w9WgXcQ
  somas send https://youtu.be/dQw4w9WgXcQ --provider openrouter --model anthropic/claude-sonnet-4
  somas send https://youtu.be/dQw4w9WgXcQ -p research -o analysis.md
  somas send -f talk.txt --title "Keynote" -o -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, env, firstArg(args), flags, opts)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Provider ID (default from config, else perplexity)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model ID (default from config, else the provider default)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path, '-' for stdout (default: analyse_<timestamp>_<title>.md)")

	return cmd
}

// runSend executes the send command.
func runSend(cmd *cobra.Command, env *Env, url string, flags promptFlags, opts sendOptions) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	cfg := loadConfig(env)

	def, err := resolveDefinition(env, cfg, opts.provider)
	if err != nil {
		return err
	}
	model := resolveModel(def, cfg, opts.model)

	apiKey, err := resolveAPIKey(env, def)
	if err != nil {
		return err
	}

	// === BUILD PROMPT ===

	prepared, err := preparePrompt(ctx, env, cfg, url, flags)
	if err != nil {
		return err
	}
	defer prepared.close()

	if prepared.preset.RequiresWebSearch && !def.WebSearch {
		fmt.Fprintf(env.Stderr, "Warning: preset %s needs web search, which %s does not provide\n",
			prepared.preset.ID, def.Name)
	}
	if !prepared.preset.Recommends(model) {
		hint := prepared.preset.ModelHint
		if hint == "" {
			hint = fmt.Sprintf("model %s is not recommended for preset %s", model, prepared.preset.ID)
		}
		fmt.Fprintf(env.Stderr, "Warning: %s\n", hint)
	}

	// === SEND ===

	client, err := env.ProviderFactory.NewClient(def, apiKey, provider.WithLogger(env.Logger))
	if err != nil {
		return err
	}

	d := dispatch.New(dispatch.WithPolicy(dispatch.PolicyReject), dispatch.WithLogger(env.Logger))
	started := env.Now()
	job, err := d.Dispatch(ctx, client, prepared.text, model)
	if err != nil {
		return err
	}

	resp, err := awaitJob(ctx, env.Stderr, job, def.Name, model)
	if err != nil {
		return err
	}
	if !resp.OK() {
		if resp.Err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDispatchFailed, resp.ErrorMessage, resp.Err)
		}
		return fmt.Errorf("%w: %s", ErrDispatchFailed, resp.ErrorMessage)
	}

	// === RECORD ===

	if prepared.ledger != nil {
		recordAnalysis(ctx, env, prepared, resp, env.Now().Sub(started))
	}

	if opts.provider != "" || opts.model != "" {
		rememberSelection(env, cfg, def.ID, model)
	}

	// === WRITE OUTPUT ===

	content := renderCompletion(resp)
	if opts.output == "-" {
		_, err := fmt.Fprint(env.Stdout, content)
		return err
	}

	defaultName := defaultAnalysisFilename(env.Now(), prepared.source.Headline())
	output := config.ResolveOutputPath(opts.output, cfg.OutputDir, defaultName)
	warnNonMarkdownExtension(env.Stderr, output)
	if err := writeFileAtomic(output, content); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Done: %s\n", output)
	return nil
}

// awaitJob prints the job's progress until it finishes. Interrupting ctx
// abandons the job and returns ctx.Err().
func awaitJob(ctx context.Context, w io.Writer, job *dispatch.Job, providerName, model string) (provider.Response, error) {
	events := job.Events()
	for events != nil {
		select {
		case status, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch status {
			case provider.StatusSending:
				fmt.Fprintf(w, "Sending prompt to %s (%s)...\n", providerName, model)
			case provider.StatusProcessing:
				fmt.Fprintln(w, "  Waiting for response...")
			case provider.StatusReceived:
				fmt.Fprintln(w, "  Response received")
			}
		case <-ctx.Done():
			job.Abandon()
			return provider.Response{}, ctx.Err()
		}
	}

	resp, ok := job.Wait()
	if !ok {
		return provider.Response{}, context.Canceled
	}
	return resp, nil
}

// rememberSelection persists an explicitly chosen provider and model as the
// new defaults.
func rememberSelection(env *Env, cfg config.Config, providerID, model string) {
	if cfg.Provider == providerID && cfg.Model == model {
		return
	}
	for _, kv := range [][2]string{{config.KeyProvider, providerID}, {config.KeyModel, model}} {
		if err := env.ConfigLoader.Save(kv[0], kv[1]); err != nil {
			env.Logger.Warn("cannot remember selection", zap.String("key", kv[0]), zap.Error(err))
			return
		}
	}
	env.Logger.Debug("selection remembered", zap.String("provider", providerID), zap.String("model", model))
}

// recordAnalysis stores the analysis, its metrics and the module the model
// chose. Ledger failures never fail the command.
func recordAnalysis(ctx context.Context, env *Env, prepared *preparedPrompt, resp provider.Response, elapsed time.Duration) {
	rec := analysisRecord(prepared, resp)
	rec.Timestamp = env.Now()
	if elapsed > 0 {
		rec.ResponseTime = elapsed
	}

	id, err := prepared.ledger.Record(ctx, rec)
	if err != nil {
		env.Logger.Warn("cannot record analysis", zap.Error(err))
		return
	}
	env.Logger.Debug("analysis recorded",
		zap.String("id", id),
		zap.Int("result_chars", rec.ResultChars),
		zap.Duration("response_time", rec.ResponseTime),
		zap.Bool("over_limit", rec.OverLimit()))
	if rec.OverLimit() {
		fmt.Fprintf(env.Stderr, "Note: %d characters, preset %s allows %d\n",
			rec.ResultChars, rec.PresetID, rec.MaxChars)
	}

	module, ok := ledger.DetectModule(resp.Content, prepared.vocabulary)
	if !ok {
		env.Logger.Warn("no module heading found in completion", zap.String("id", id))
		return
	}
	if err := prepared.ledger.SetChosenModule(ctx, id, module); err != nil {
		if errors.Is(err, ledger.ErrIntegrity) {
			env.Logger.Warn("chosen module rejected", zap.String("id", id), zap.Error(err))
			return
		}
		env.Logger.Warn("cannot record chosen module", zap.Error(err))
		return
	}
	env.Logger.Info("chosen module recorded", zap.String("module", module.String()))
}

// analysisRecord derives the ledger row of a completed analysis. The result
// length counts characters of the completion alone, without the appended
// sources and model line.
func analysisRecord(prepared *preparedPrompt, resp provider.Response) ledger.Record {
	src := prepared.source
	mode := ledger.InputFetched
	if _, manual := src.(analysis.Manual); manual {
		mode = ledger.InputManual
	}
	return ledger.Record{
		PresetID:      prepared.preset.ID,
		Perspective:   prepared.perspective.String(),
		ProviderID:    resp.ProviderUsed,
		ModelID:       resp.ModelUsed,
		TokensUsed:    resp.TokensUsed,
		Title:         src.Headline(),
		Channel:       src.Creator(),
		URL:           src.Link(),
		InputMode:     mode,
		HadTranscript: strings.TrimSpace(src.Text()) != "",
		HadTimeRange:  prepared.timeRange != nil,
		HadQuestions:  prepared.questions != "",
		MaxChars:      prepared.preset.MaxChars,
		ResultChars:   utf8.RuneCountInString(strings.TrimSpace(resp.Content)),
	}
}
