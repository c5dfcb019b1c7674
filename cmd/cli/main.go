package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ideaforge/adapters/excel"
	"ideaforge/adapters/llm"
	"ideaforge/adapters/memory"
	"ideaforge/adapters/postgres"
	"ideaforge/app"
	"ideaforge/domain/brainstorm"
	"ideaforge/domain/run"
	"ideaforge/internal"
	"ideaforge/internal/config"
	"ideaforge/ports"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ideaforge-cli",
		Short: "IdeaForge CLI for running brainstorm pipelines from a terminal",
	}

	rootCmd.AddCommand(
		newBrainstormCmd(),
		newInteractiveCmd(),
		newOutcomeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newBrainstormCmd() *cobra.Command {
	var userID string
	var count int
	var export bool
	var reportDir string

	cmd := &cobra.Command{
		Use:   "brainstorm [topic]",
		Short: "Run one brainstorm and print the ranked plans",
		Long: `Run the full pipeline (generate, refine, evaluate, rank) for a topic.

Provider keys are read from the environment (or a .env file):
DOUBAO_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, plus optional
GENERATOR_PROVIDER / REFINER_PROVIDER / EVALUATOR_PROVIDER overrides.

Example: ideaforge-cli brainstorm "sustainable urban farming" --user alice --count 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupEnv()
			if err != nil {
				return err
			}
			defer env.cleanup()
			if reportDir != "" {
				env.reportDir = reportDir
			}
			return runBrainstorm(cmd.Context(), env, args[0], userID, count, export)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID for personalized ranking")
	cmd.Flags().IntVar(&count, "count", 0, "Ideas to generate (default from DEFAULT_IDEA_COUNT)")
	cmd.Flags().BoolVar(&export, "export", false, "Write an xlsx report for the run")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Directory for exported reports")

	return cmd
}

func newInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Prompt for topics in a loop and brainstorm each one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setupEnv()
			if err != nil {
				return err
			}
			defer env.cleanup()
			return runInteractive(cmd.Context(), env)
		},
	}
}

func newOutcomeCmd() *cobra.Command {
	var rejected bool

	cmd := &cobra.Command{
		Use:   "outcome [user-id] [idea-summary]",
		Short: "Record that a user accepted or rejected an idea",
		Long: `Record an idea outcome so future rankings reflect it.

Example: ideaforge-cli outcome alice "rooftop hydroponics kit" `,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupEnv()
			if err != nil {
				return err
			}
			defer env.cleanup()
			if err := env.store.RecordOutcome(cmd.Context(), args[0], args[1], !rejected); err != nil {
				return fmt.Errorf("record outcome: %w", err)
			}
			fmt.Println("outcome recorded")
			return nil
		},
	}

	cmd.Flags().BoolVar(&rejected, "rejected", false, "Record a rejection instead of an acceptance")

	return cmd
}

// cliEnv bundles the wired dependencies one command invocation needs.
type cliEnv struct {
	cfg       *config.Config
	pipeline  *app.Pipeline
	store     ports.ProfileStore
	reports   *excel.ReportWriter
	reportDir string
	cleanup   func()
}

func setupEnv() (*cliEnv, error) {
	logger := internal.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	var (
		store   ports.ProfileStore
		cleanup = func() {}
	)
	if cfg.Database.URL != "" {
		repo, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect profile store: %w", err)
		}
		store = repo
		cleanup = func() { repo.Close() }
	} else {
		store = memory.NewProfileStore()
	}

	bindings, err := buildBindings(cfg)
	if err != nil {
		cleanup()
		return nil, err
	}

	pipeline := app.NewPipeline(bindings, store, app.PipelineConfig{
		RunTimeout:  cfg.Pipeline.RunTimeout,
		MaxInFlight: cfg.Pipeline.MaxInFlight,
		Policy:      cfg.Pipeline.Retry,
	}, logger)

	return &cliEnv{
		cfg:       cfg,
		pipeline:  pipeline,
		store:     store,
		reports:   excel.NewReportWriter(),
		reportDir: cfg.Pipeline.ReportDir,
		cleanup:   cleanup,
	}, nil
}

func buildBindings(cfg *config.Config) (app.Bindings, error) {
	makeBinding := func(role ports.Role, rb config.RoleBinding) (app.RoleBinding, error) {
		pc, ok := cfg.ProviderConfig(rb.Provider)
		if !ok {
			return app.RoleBinding{}, fmt.Errorf("role %s: unknown provider %q", role, rb.Provider)
		}
		primary, err := llm.NewModelPort(pc)
		if err != nil {
			return app.RoleBinding{}, fmt.Errorf("role %s: %w", role, err)
		}
		binding := app.RoleBinding{Primary: primary}
		if rb.Fallback != "" {
			fc, ok := cfg.ProviderConfig(rb.Fallback)
			if !ok {
				return app.RoleBinding{}, fmt.Errorf("role %s: unknown fallback provider %q", role, rb.Fallback)
			}
			fallback, err := llm.NewModelPort(fc)
			if err != nil {
				return app.RoleBinding{}, fmt.Errorf("role %s fallback: %w", role, err)
			}
			binding.Fallback = fallback
		}
		return binding, nil
	}

	var (
		b   app.Bindings
		err error
	)
	if b.Generator, err = makeBinding(ports.RoleGenerator, cfg.Roles.Generator); err != nil {
		return b, err
	}
	if b.Refiner, err = makeBinding(ports.RoleRefiner, cfg.Roles.Refiner); err != nil {
		return b, err
	}
	if b.Evaluator, err = makeBinding(ports.RoleEvaluator, cfg.Roles.Evaluator); err != nil {
		return b, err
	}
	return b, nil
}

func runBrainstorm(ctx context.Context, env *cliEnv, topic, userID string, count int, export bool) error {
	if count <= 0 {
		count = env.cfg.Pipeline.DefaultIdeaCount
	}
	if count > env.cfg.Pipeline.MaxIdeaCount {
		return fmt.Errorf("count %d exceeds maximum %d", count, env.cfg.Pipeline.MaxIdeaCount)
	}

	fmt.Printf("Brainstorming %d ideas for %q...\n", count, topic)
	result, md, err := env.pipeline.Run(ctx, brainstorm.Topic(topic), userID, count)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	printResult(result, md)

	if export {
		path, err := env.reports.WriteRunReport(env.reportDir, result, md)
		if err != nil {
			return fmt.Errorf("export report: %w", err)
		}
		fmt.Printf("\nReport written to %s\n", path)
	}
	return nil
}

func runInteractive(ctx context.Context, env *cliEnv) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("IdeaForge interactive mode. Empty topic or 'quit' exits.")

	for {
		fmt.Print("\nTopic: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		topic := strings.TrimSpace(scanner.Text())
		if topic == "" || topic == "quit" || topic == "exit" {
			fmt.Println("Bye.")
			return nil
		}

		fmt.Print("User ID (optional): ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		userID := strings.TrimSpace(scanner.Text())

		fmt.Printf("Idea count [%d]: ", env.cfg.Pipeline.DefaultIdeaCount)
		if !scanner.Scan() {
			return scanner.Err()
		}
		count := env.cfg.Pipeline.DefaultIdeaCount
		if raw := strings.TrimSpace(scanner.Text()); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > env.cfg.Pipeline.MaxIdeaCount {
				fmt.Printf("Invalid count, using %d\n", count)
			} else {
				count = n
			}
		}

		if err := runBrainstorm(ctx, env, topic, userID, count, false); err != nil {
			fmt.Printf("Run failed: %v\n", err)
		}
	}
}

func printResult(result *brainstorm.RankedResult, md run.Metadata) {
	fmt.Printf("\n=== RANKED IDEAS (run %s) ===\n", result.RunID)
	for i, entry := range result.Entries {
		fmt.Printf("\n%d. %s (composite %.3f)\n", i+1, entry.Plan.Idea, entry.Composite)
		fmt.Printf("   relevance %.0f | user fit %.0f | feasibility %.0f | originality %.0f\n",
			entry.Scorecard.Relevance, entry.Scorecard.UserFit,
			entry.Scorecard.Feasibility, entry.Scorecard.Originality)
		if entry.Plan.Summary != "" {
			fmt.Printf("   %s\n", entry.Plan.Summary)
		}
		if entry.Scorecard.Justification != "" {
			fmt.Printf("   Why: %s\n", entry.Scorecard.Justification)
		}
	}

	fmt.Printf("\n=== RUN METADATA ===\n")
	fmt.Printf("Status: %s\n", md.Status)
	fmt.Printf("Retries: %d | Dropped: %d | Fallback used: %t\n",
		md.TotalRetries(), md.DropCount(), md.UsedFallback())
	for _, stage := range run.Stages {
		if s, ok := md.StageStats[stage]; ok {
			fmt.Printf("%-12s %v (%d calls)\n", stage, s.Latency, s.Calls)
		}
	}
	if md.ScoreSummary != nil {
		fmt.Printf("Scores: mean %.3f median %.3f stddev %.3f\n",
			md.ScoreSummary.Mean, md.ScoreSummary.Median, md.ScoreSummary.StdDev)
	}
}
