package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alias1177/ChartPredictor/internal/analysis/prediction"
	"github.com/Alias1177/ChartPredictor/internal/analyze"
	"github.com/Alias1177/ChartPredictor/internal/app"
	"github.com/Alias1177/ChartPredictor/internal/auth"
	"github.com/Alias1177/ChartPredictor/internal/config"
	"github.com/Alias1177/ChartPredictor/models"
	"github.com/spf13/cobra"
)

var (
	symbolFlag    string
	timeframeFlag string
	tokenTTLFlag  time.Duration
)

// rootCmd is the chartctl entry point
var rootCmd = &cobra.Command{
	Use:           "chartctl",
	Short:         "Analyze trading chart screenshots from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// reconcileCmd validates a raw model answer
var reconcileCmd = &cobra.Command{
	Use:   "reconcile [file|-]",
	Short: "Validate a raw LLM answer and print the trusted result",
	Long: `Read a raw model answer from a file, or from stdin when the argument is "-"
or missing, and print the reconciled prediction as JSON.

Text around the JSON object (markdown fences, prose) is ignored. Invalid fields
fall back to the safe defaults.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReconcile,
}

// analyzeCmd runs a full chart analysis
var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Send a chart image to the configured LLM and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

// defaultsCmd prints the safe default prediction
var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the safe default prediction",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeJSON(cmd.OutOrStdout(), prediction.DefaultResult())
	},
}

// tokenCmd issues API bearer tokens
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a bearer token for the HTTP API",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	analyzeCmd.Flags().StringVar(&symbolFlag, "symbol", "", "symbol shown on the chart, e.g. EUR/USD")
	analyzeCmd.Flags().StringVar(&timeframeFlag, "timeframe", "", "chart timeframe, e.g. 4h")
	tokenCmd.Flags().DurationVar(&tokenTTLFlag, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(reconcileCmd, analyzeCmd, defaultsCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening answer: %w", err)
		}
		defer f.Close()
		in = f
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading answer: %w", err)
	}

	result := prediction.Reconcile(prediction.ParseCandidate(string(raw)), prediction.DefaultResult())
	return writeJSON(cmd.OutOrStdout(), result)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	config.SetupLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{WithCache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	analysis, err := a.Service.Analyze(ctx, analyze.Request{
		Image: image,
		Hints: models.ChartHints{Symbol: symbolFlag, Timeframe: timeframeFlag},
	})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), analysis)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is not set")
	}

	token, err := auth.NewManager(cfg.JWTSecret).NewToken(args[0], tokenTTLFlag)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
