// Package planner turns a lesson request into a validated, sanitized curriculum plan.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/polisai/educator-agent/pkg/domain"
	"github.com/polisai/educator-agent/pkg/llm"
	"github.com/polisai/educator-agent/pkg/policy/sanitize"
	"github.com/polisai/educator-agent/pkg/telemetry"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1500
)

// Options configures a Planner. A nil Client makes Plan return the demo plan.
type Options struct {
	Client      llm.Client
	Patterns    *sanitize.PatternSet
	Logger      *slog.Logger
	Temperature float64
	MaxTokens   int
}

// Planner produces curriculum plans.
type Planner struct {
	client      llm.Client
	sanitizer   *sanitize.Sanitizer
	logger      *slog.Logger
	temperature float64
	maxTokens   int
}

// New builds a Planner from opts.
func New(opts Options) *Planner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Planner{
		client:      opts.Client,
		sanitizer:   sanitize.New(opts.Patterns),
		logger:      logger,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Sanitizer returns the sanitizer applied to every plan.
func (p *Planner) Sanitizer() *sanitize.Sanitizer { return p.sanitizer }

// Plan generates, validates and sanitizes a plan for req.
func (p *Planner) Plan(ctx context.Context, req domain.PlanRequest) (plan domain.CurriculumPlan, err error) {
	req.Normalize()

	ctx, span := telemetry.Tracer().Start(ctx, "planner.plan", trace.WithAttributes(
		telemetry.RedactAttributes(p.sanitizer.Patterns(), []attribute.KeyValue{
			attribute.String("lesson.grade", req.GradeLevel),
			attribute.String("lesson.subject", req.Subject),
			attribute.String("llm.model", req.Model),
		})...,
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := req.Validate(); err != nil {
		return domain.CurriculumPlan{}, domain.NewError(domain.CodeInvalidRequest, err, "plan request rejected")
	}

	var raw []byte
	if p.client == nil {
		p.logger.Info("no LLM client configured, using demo plan", "grade", req.GradeLevel)
		span.SetAttributes(attribute.Bool("planner.demo", true))
		raw, err = json.Marshal(DemoPlan())
		if err != nil {
			return domain.CurriculumPlan{}, fmt.Errorf("planner: encode demo plan: %w", err)
		}
	} else {
		raw, err = p.complete(ctx, req)
		if err != nil {
			return domain.CurriculumPlan{}, err
		}
	}

	if err := Validate(raw); err != nil {
		return domain.CurriculumPlan{}, domain.NewError(domain.CodeInvalidPlan, err, "plan rejected")
	}

	var decoded domain.CurriculumPlan
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.CurriculumPlan{}, domain.NewError(domain.CodeInvalidPlan,
			fmt.Errorf("%w: %v", domain.ErrInvalidPlan, err), "plan rejected")
	}

	summary := sanitize.Inspect(p.sanitizer.Patterns(), sanitize.PlanValue(decoded))
	plan = p.sanitizer.Plan(decoded)

	if total := summary.Total(); total > 0 {
		p.logger.Info("redacted curriculum plan", "redactions", total, "categories", summary.Counts)
		telemetry.RecordRedactions(ctx, "plan", summary.Counts)
		telemetry.RecordRedactionEvent(span, summary.Counts)
	}
	span.SetAttributes(attribute.Int("plan.sections", len(plan.ContentOutline)))

	return plan, nil
}

func (p *Planner) complete(ctx context.Context, req domain.PlanRequest) ([]byte, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, err
	}
	schema, err := SchemaMap()
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Complete(ctx, &llm.Request{
		Model:       req.Model,
		System:      SystemPrompt,
		User:        prompt,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Purpose:     "plan",
		SchemaName:  SchemaName,
		Schema:      schema,
	})
	if err != nil {
		return nil, domain.NewError(domain.CodeLLMFailed, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err), "curriculum generation failed")
	}

	return []byte(StripCodeFence(resp.Content)), nil
}

// StripCodeFence removes a surrounding Markdown code fence such as ```json ... ```.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
