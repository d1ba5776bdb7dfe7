package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"aria/internal/confidence"
	"aria/internal/config"
	"aria/internal/domain"
	"aria/internal/extraction"
	"aria/internal/logger"
	"aria/internal/port"
	"aria/internal/schema"
	"aria/internal/understanding"
	"aria/internal/understanding/providers"
)

// runOptions holds the flags of the run command
type runOptions struct {
	file          string
	evidence      string
	priorType     string
	referenceDate string
	verbose       bool
}

var runOpts runOptions

func init() {
	runCmd.Flags().StringVarP(&runOpts.file, "file", "f", "", "conversation transcript file, or - for stdin (required)")
	runCmd.Flags().StringVar(&runOpts.evidence, "evidence", "", "recorded model response to replay instead of calling a provider")
	runCmd.Flags().StringVar(&runOpts.priorType, "prior-type", "", "transaction type inferred by an earlier pass")
	runCmd.Flags().StringVar(&runOpts.referenceDate, "reference-date", "", "date relative expressions resolve against (YYYY-MM-DD, default today)")
	runCmd.Flags().BoolVarP(&runOpts.verbose, "verbose", "v", false, "log provider activity to stderr")
	_ = runCmd.MarkFlagRequired("file")
}

// runCmd runs one extraction pass
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract a transaction record from a conversation",
	Long: `Run one extraction pass over a conversation transcript and print the record.

Examples:
  # Extract using the providers configured in the environment
  aria-extract run --file chat.txt

  # Replay a recorded model response offline
  aria-extract run --file chat.txt --evidence response.json --reference-date 2025-05-01 -o yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := zerolog.Nop()
		if runOpts.verbose {
			log = logger.New(config.LogConfig{Level: "debug"}).Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
		}
		return runExtraction(cmd.Context(), runOpts, cmd.InOrStdin(), cmd.OutOrStdout(), log)
	},
}

func runExtraction(ctx context.Context, opts runOptions, stdin io.Reader, stdout io.Writer, log zerolog.Logger) error {
	conversation, err := readInput(opts.file, stdin)
	if err != nil {
		return err
	}

	in := extraction.Input{Conversation: string(conversation)}
	if opts.priorType != "" {
		t, err := domain.ParseTransactionType(opts.priorType)
		if err != nil {
			return fmt.Errorf("--prior-type: %w", err)
		}
		in.PriorType = &t
	}
	if opts.referenceDate != "" {
		ref, err := time.Parse("2006-01-02", opts.referenceDate)
		if err != nil {
			return fmt.Errorf("--reference-date must be YYYY-MM-DD: %w", err)
		}
		in.ReferenceTime = ref
	}

	registry := schema.Default()
	understander, calibrator, timeout, err := buildPipeline(opts, registry, log)
	if err != nil {
		return err
	}

	coordinator := extraction.NewCoordinator(registry, understander,
		extraction.WithCalibrator(calibrator),
		extraction.WithTimeout(timeout),
		extraction.WithLogger(log),
	)
	rec, err := coordinator.Extract(ctx, in)
	if err != nil {
		return err
	}
	return writeOutput(stdout, outputFormat, rec)
}

// buildPipeline returns the replaying understander for --evidence, or the configured providers.
func buildPipeline(opts runOptions, registry *schema.Registry, log zerolog.Logger) (port.Understander, *confidence.Calibrator, time.Duration, error) {
	if opts.evidence != "" {
		data, err := os.ReadFile(opts.evidence)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("reading evidence: %w", err)
		}
		cal, err := confidence.NewCalibrator(confidence.DefaultBands())
		if err != nil {
			return nil, nil, 0, err
		}
		return understanding.NewStaticUnderstander(data), cal, extraction.DefaultTimeout, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("loading config: %w", err)
	}
	cal, err := confidence.NewCalibrator(confidence.BandsFromConfig(cfg.Confidence))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("invalid confidence configuration: %w", err)
	}
	providers.RegisterAll()
	u, err := understanding.Build(&cfg.Understanding, registry, log)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("building providers: %w", err)
	}
	return u, cal, cfg.Understanding.Timeout(), nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading conversation: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, domain.ErrInvalidConversation
	}
	return data, nil
}
