// Package agent runs one lesson-preparation job: plan, resources, speaker notes
// and the files that carry them.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/polisai/educator-agent/pkg/domain"
	"github.com/polisai/educator-agent/pkg/notes"
	"github.com/polisai/educator-agent/pkg/oer"
	"github.com/polisai/educator-agent/pkg/planner"
	"github.com/polisai/educator-agent/pkg/policy/sanitize"
	"github.com/polisai/educator-agent/pkg/telemetry"
)

const (
	// PlanFile holds the sanitized curriculum plan.
	PlanFile = "plan.json"
	// ResourcesFile lists suggested resource URLs, one per line.
	ResourcesFile = "resources.txt"
)

// Options describes a run. Planner is required; Notes and OER are optional steps.
type Options struct {
	Request   domain.PlanRequest
	Planner   *planner.Planner
	Notes     *notes.Generator
	OER       *oer.Finder
	OERCount  int
	OutputDir string
	// SkipWrite keeps all results in memory.
	SkipWrite bool
	Logger    *slog.Logger
}

// Result carries everything a run produced.
type Result struct {
	RunID         string                `json:"run_id"`
	Plan          domain.CurriculumPlan `json:"plan"`
	Notes         []domain.SlideNote    `json:"notes,omitempty"`
	Resources     []string              `json:"resources,omitempty"`
	OutputDir     string                `json:"output_dir,omitempty"`
	PlanPath      string                `json:"plan_path,omitempty"`
	NotesPath     string                `json:"notes_path,omitempty"`
	ResourcesPath string                `json:"resources_path,omitempty"`
}

// Run executes the job. Outputs land in OutputDir/<run id>.
func Run(ctx context.Context, opts Options) (res *Result, err error) {
	if opts.Planner == nil {
		return nil, errors.New("agent: planner is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	ctx, span := telemetry.Tracer().Start(ctx, "agent.run")
	span.SetAttributes(attribute.String("run.id", runID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger.Info("starting run")
	plan, err := opts.Planner.Plan(ctx, opts.Request)
	if err != nil {
		return nil, err
	}
	res = &Result{RunID: runID, Plan: plan}
	logger.Info("plan ready", "sections", len(plan.ContentOutline))

	if opts.OER != nil && opts.OERCount > 0 {
		resources, err := opts.OER.Suggest(ctx, opts.Request.Subject, opts.OERCount)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("resource suggestions unavailable", "error", err)
		}
		res.Resources = resources
		span.SetAttributes(attribute.Int("run.resources", len(resources)))
	}

	if opts.Notes != nil {
		slideNotes, err := opts.Notes.Generate(ctx, plan)
		if err != nil {
			return nil, err
		}
		res.Notes = slideNotes
		span.SetAttributes(attribute.Int("run.notes", len(slideNotes)))
	}

	if opts.SkipWrite {
		return res, nil
	}
	if err := write(res, opts.OutputDir, opts.Notes != nil); err != nil {
		return nil, domain.NewError(domain.CodeOutputFailed, err, "failed to write outputs")
	}
	logger.Info("run complete", "output_dir", res.OutputDir)
	return res, nil
}

func write(res *Result, baseDir string, withNotes bool) error {
	if strings.TrimSpace(baseDir) == "" {
		baseDir = "output"
	}
	dir := filepath.Join(baseDir, res.RunID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	res.OutputDir = dir

	data, err := sanitize.EncodeJSON(sanitize.PlanValue(res.Plan), "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	res.PlanPath = filepath.Join(dir, PlanFile)
	if err := os.WriteFile(res.PlanPath, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}

	if len(res.Resources) > 0 {
		res.ResourcesPath = filepath.Join(dir, ResourcesFile)
		body := strings.Join(res.Resources, "\n") + "\n"
		if err := os.WriteFile(res.ResourcesPath, []byte(body), 0o600); err != nil {
			return fmt.Errorf("write resources: %w", err)
		}
	}

	if withNotes {
		path, err := notes.Save(dir, res.Plan.LessonTitle, res.Notes, res.Resources)
		if err != nil {
			return err
		}
		res.NotesPath = path
	}
	return nil
}
