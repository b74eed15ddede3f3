package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"trident/pkg/agent"
	"trident/pkg/bus"
	"trident/pkg/config"
	"trident/pkg/deliberation"
	"trident/pkg/logger"
	"trident/pkg/provider"
	providertypes "trident/pkg/provider/types"
	"trident/pkg/ui/progress"
)

type askOptions struct {
	rounds     int
	model      string
	preset     string
	verbose    bool
	jsonOutput bool
	noProgress bool
}

var askOpts askOptions

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the judges a question and print their verdict",
	Long:  "Runs one deliberation session: an independent round, then (with --rounds 3) a deliberation round and a final vote.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		question, err := resolveQuestion(args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runAsk(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), question, askOpts)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVarP(&askOpts.rounds, "rounds", "r", 0, "number of rounds: 1 (independent only) or 3 (full deliberation)")
	askCmd.Flags().StringVarP(&askOpts.model, "model", "m", "", "send every judge to one model, e.g. gpt-4o or anthropic/claude-3-5-haiku-latest")
	askCmd.Flags().StringVarP(&askOpts.preset, "preset", "p", "", "named provider preset (balanced, premium, openai, or one from config)")
	askCmd.Flags().BoolVarP(&askOpts.verbose, "verbose", "v", false, "show full reasoning and debug logs")
	askCmd.Flags().BoolVar(&askOpts.jsonOutput, "json", false, "print the session result as JSON")
	askCmd.Flags().BoolVar(&askOpts.noProgress, "no-progress", false, "disable the live progress view")
}

func resolveQuestion(args []string) (string, error) {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return "", errors.New("a question is required, e.g. trident ask \"Should we migrate to Postgres?\"")
	}

	return question, nil
}

// applyFlags layers command-line choices over the loaded configuration.
func applyFlags(cfg *config.Config, opts askOptions) error {
	if opts.rounds != 0 {
		cfg.Session.Rounds = opts.rounds
	}
	if model := strings.TrimSpace(opts.model); model != "" {
		cfg.Session.Model = model
	}
	if preset := strings.TrimSpace(opts.preset); preset != "" {
		cfg.Session.Preset = preset
		if strings.TrimSpace(opts.model) == "" {
			cfg.Session.Model = ""
		}
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}

	return cfg.Validate()
}

func runAsk(ctx context.Context, stdout, stderr io.Writer, question string, opts askOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cfg, opts); err != nil {
		return err
	}

	appLogger, err := logger.NewWithWriter(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(appLogger)

	agents, err := agent.Defaults()
	if err != nil {
		return err
	}

	client, err := provider.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize providers: %w", err)
	}

	events := bus.New()
	defer events.Close()

	orchestrator, err := deliberation.New(client, agents,
		deliberation.WithRounds(cfg.Session.Rounds),
		deliberation.WithEvents(events),
	)
	if err != nil {
		return err
	}

	target := provider.TargetFromConfig(cfg.Session)
	slog.Default().With("component", "cmd.ask").Debug("Session configured", "target", target.String(), "rounds", cfg.Session.Rounds)

	var result *deliberation.Result
	session := func(ctx context.Context) error {
		r, err := orchestrator.Deliberate(ctx, question, target)
		result = r
		return err
	}

	if showProgress(opts, stderr) {
		err = progress.Run(ctx, events, agents, question, cfg.Session.Rounds, stderr, session)
	} else {
		err = session(ctx)
	}
	if err != nil {
		return withHint(err)
	}

	if opts.jsonOutput {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	_, err = io.WriteString(stdout, renderResult(result, opts.verbose))
	return err
}

// showProgress reports whether the live view should draw on w.
func showProgress(opts askOptions, w io.Writer) bool {
	if opts.noProgress || opts.jsonOutput || opts.verbose {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd())
}

// withHint adds a remediation line to configuration failures.
func withHint(err error) error {
	if providertypes.KindOf(err) != providertypes.KindConfiguration {
		return err
	}

	return fmt.Errorf("%w\nhint: set the missing API key, or choose routing that avoids that backend (for example --preset openai or --model gpt-4o-mini)", err)
}
