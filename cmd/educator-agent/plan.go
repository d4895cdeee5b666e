package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/polisai/educator-agent/pkg/agent"
	"github.com/polisai/educator-agent/pkg/domain"
	"github.com/polisai/educator-agent/pkg/llm"
	"github.com/polisai/educator-agent/pkg/notes"
	"github.com/polisai/educator-agent/pkg/oer"
	"github.com/polisai/educator-agent/pkg/planner"
	"github.com/polisai/educator-agent/pkg/policy/sanitize"
)

type planFlags struct {
	grade       string
	subject     string
	baseline    string
	duration    string
	constraints string
	model       string
	notes       bool
	oer         int
	out         string
	jsonOnly    bool
}

func newPlanCmd(a *app) *cobra.Command {
	f := &planFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a sanitized curriculum plan",
		Long: `Generates a curriculum plan for the given grade and subject. Without an
OpenAI API key a built-in demo plan is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPlan(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.grade, "grade", "g", "", "Grade level, e.g. \"8th Grade\"")
	flags.StringVarP(&f.subject, "subject", "s", "", "Lesson subject")
	flags.StringVar(&f.baseline, "baseline", "", "What the audience already knows")
	flags.StringVar(&f.duration, "duration", "", "Lesson duration (default \"45 minutes\")")
	flags.StringVar(&f.constraints, "constraints", "", "Comma-separated constraints")
	flags.StringVarP(&f.model, "model", "m", "", "Model name (overrides config)")
	flags.BoolVar(&f.notes, "notes", false, "Also generate speaker notes")
	flags.IntVar(&f.oer, "oer", -1, "Number of OER resources to suggest (0 disables, -1 uses config)")
	flags.StringVarP(&f.out, "out", "o", "", "Output directory (overrides config)")
	flags.BoolVar(&f.jsonOnly, "json-only", false, "Print only the JSON result")
	_ = cmd.MarkFlagRequired("grade")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func (a *app) runPlan(cmd *cobra.Command, f *planFlags) error {
	cfg := a.cfg
	logger := a.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer a.startTelemetry(ctx)()

	patterns, err := cfg.Sanitizer.PatternSet()
	if err != nil {
		return err
	}

	var client llm.Client
	if cfg.LLM.APIKey != "" {
		client = llm.NewOpenAI(cfg.LLM, logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set, running in demo mode")
	}

	model := cfg.Model
	if f.model != "" {
		model = f.model
	}
	req := domain.PlanRequest{
		GradeLevel:       f.grade,
		Subject:          f.subject,
		AudienceBaseline: f.baseline,
		Duration:         f.duration,
		Constraints:      domain.ParseConstraints(f.constraints),
		Model:            model,
	}

	opts := agent.Options{
		Request:   req,
		Planner:   planner.New(planner.Options{Client: client, Patterns: patterns, Logger: logger}),
		OutputDir: cfg.OutputDir,
		Logger:    logger,
	}
	if f.out != "" {
		opts.OutputDir = f.out
	}
	if f.notes {
		notesModel := cfg.Notes.Model
		if notesModel == "" {
			notesModel = model
		}
		opts.Notes = notes.NewGenerator(notes.Options{
			Client:      client,
			Patterns:    patterns,
			Logger:      logger,
			Model:       notesModel,
			Concurrency: cfg.Notes.Concurrency,
		})
	}
	opts.OERCount = cfg.OER.Count
	if f.oer >= 0 {
		opts.OERCount = f.oer
	}
	if opts.OERCount > 0 {
		opts.OER = oer.NewFinder(cfg.OER.Config, logger)
	}

	res, err := agent.Run(ctx, opts)
	out := cmd.OutOrStdout()
	if err != nil {
		if f.jsonOnly {
			if werr := writeJSON(out, errorResponse(err, "")); werr != nil {
				logger.Error("failed to write error response", "error", werr)
			}
		}
		return err
	}

	if f.jsonOnly {
		return writeJSON(out, res)
	}

	plan, err := sanitize.EncodeJSON(sanitize.PlanValue(res.Plan), "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n\n", plan)
	fmt.Fprintf(out, "Run:   %s\n", res.RunID)
	fmt.Fprintf(out, "Plan:  %s\n", res.PlanPath)
	if res.NotesPath != "" {
		fmt.Fprintf(out, "Notes: %s\n", res.NotesPath)
	}
	if len(res.Resources) > 0 {
		fmt.Fprintln(out, "Resources:")
		for _, r := range res.Resources {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return nil
}
