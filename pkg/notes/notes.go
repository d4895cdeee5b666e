// Package notes drafts speaker notes for every slide of a curriculum plan.
package notes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/polisai/educator-agent/pkg/domain"
	"github.com/polisai/educator-agent/pkg/llm"
	"github.com/polisai/educator-agent/pkg/policy/sanitize"
	"github.com/polisai/educator-agent/pkg/telemetry"
)

// SystemPrompt is sent with every note request.
const SystemPrompt = "You are an expert educator creating engaging speaker notes. Keep notes concise, practical, and under 150 words."

const (
	defaultConcurrency = 4
	defaultMaxTokens   = 300
	defaultTemperature = 0.7
)

// Options configures a Generator. A nil Client produces fallback notes only.
type Options struct {
	Client      llm.Client
	Patterns    *sanitize.PatternSet
	Logger      *slog.Logger
	Model       string
	Concurrency int
}

// Generator produces one note per slide.
type Generator struct {
	client      llm.Client
	sanitizer   *sanitize.Sanitizer
	logger      *slog.Logger
	model       string
	concurrency int
}

// NewGenerator builds a Generator.
func NewGenerator(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := opts.Model
	if model == "" {
		model = domain.DefaultModel
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Generator{
		client:      opts.Client,
		sanitizer:   sanitize.New(opts.Patterns),
		logger:      logger,
		model:       model,
		concurrency: concurrency,
	}
}

type slide struct {
	index    int
	title    string
	prompt   string
	fallback string
}

// Generate returns notes for the title slide, each outline section and the
// assessment slide, in slide order. Notes that cannot be generated fall back to
// a fixed template. Every note is sanitized.
func (g *Generator) Generate(ctx context.Context, plan domain.CurriculumPlan) ([]domain.SlideNote, error) {
	slides := slidesFor(plan)
	out := make([]domain.SlideNote, len(slides))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(g.concurrency)
	for i, s := range slides {
		i, s := i, s
		group.Go(func() error {
			note, err := g.note(gctx, s)
			if err != nil {
				return err
			}
			out[i] = note
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	redactions := 0
	for i := range out {
		clean := g.sanitizer.Text(out[i].Markdown)
		if clean != out[i].Markdown {
			redactions++
		}
		out[i].Markdown = clean
		out[i].Title = g.sanitizer.Text(out[i].Title)
	}
	if redactions > 0 {
		g.logger.Info("redacted speaker notes", "slides", redactions)
	}
	return out, nil
}

func (g *Generator) note(ctx context.Context, s slide) (domain.SlideNote, error) {
	note := domain.SlideNote{Index: s.index, Title: s.title}

	if g.client == nil {
		note.Markdown, note.Fallback = s.fallback, true
		return note, nil
	}

	resp, err := g.client.Complete(ctx, &llm.Request{
		Model:       g.model,
		System:      SystemPrompt,
		User:        s.prompt,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		Purpose:     "notes",
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return note, ctxErr
		}
		g.logger.Warn("speaker notes generation failed, using fallback", "slide", s.index, "error", err)
		telemetry.RecordLLMCall(ctx, telemetry.LLMCall{Model: g.model, Purpose: "notes", Outcome: telemetry.OutcomeFallback})
		note.Markdown, note.Fallback = s.fallback, true
		return note, nil
	}

	note.Markdown = strings.TrimSpace(resp.Content)
	return note, nil
}

func slidesFor(plan domain.CurriculumPlan) []slide {
	slides := make([]slide, 0, plan.SlideCount())

	slides = append(slides, slide{
		index:    0,
		title:    plan.LessonTitle,
		prompt:   titlePrompt(plan),
		fallback: titleFallback(plan),
	})
	for i, section := range plan.ContentOutline {
		slides = append(slides, slide{
			index:    i + 1,
			title:    section.Title,
			prompt:   contentPrompt(i+1, section, plan.LessonTitle),
			fallback: contentFallback(section),
		})
	}
	slides = append(slides, slide{
		index:    len(plan.ContentOutline) + 1,
		title:    "Assessment",
		prompt:   assessmentPrompt(plan),
		fallback: assessmentFallback(plan),
	})
	return slides
}

func bullets(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func titlePrompt(plan domain.CurriculumPlan) string {
	return fmt.Sprintf(`For the title slide of a lesson titled %q, draft concise speaker notes of at most 150 words.

Learning Objectives:
%s

Include:
- An engaging hook or analogy to open the lesson
- Brief overview of what students will learn
- A closing question to generate interest

Format as markdown.`, plan.LessonTitle, bullets(plan.LearningObjectives))
}

func contentPrompt(index int, section domain.Section, lesson string) string {
	return fmt.Sprintf(`For slide %d titled %q, draft concise speaker notes of at most 150 words.

Slide Content: %s
Lesson Context: %s

Include:
- Engaging hook or analogy relevant to the topic
- Key explanation of the content
- Closing question to check understanding or transition

Format as markdown.`, index, section.Title, section.Description, lesson)
}

func assessmentPrompt(plan domain.CurriculumPlan) string {
	return fmt.Sprintf(`For the final assessment slide of %q, draft concise speaker notes of at most 150 words.

Suggested Assessments:
%s

Include:
- Engaging hook or analogy about the importance of assessment
- Key explanation of how these assessments work
- Closing question to wrap up the lesson

Format as markdown.`, plan.LessonTitle, bullets(plan.SuggestedAssessments))
}

func titleFallback(plan domain.CurriculumPlan) string {
	return fmt.Sprintf(`**Hook:** Welcome to %s! Each part of today's lesson builds on the one before it.

**Overview:** We will work through the key ideas one step at a time, and by the end you will be able to use them on your own.

**Transition:** What do you already know about this topic? Let's start from there.`, plan.LessonTitle)
}

func contentFallback(section domain.Section) string {
	return fmt.Sprintf(`**Hook:** Think about %s. Why might it matter outside the classroom?

**Key Content:** %s

**Check for understanding:** Can someone explain this idea in their own words? What questions do you have before we move on?`, strings.ToLower(section.Title), section.Description)
}

func assessmentFallback(plan domain.CurriculumPlan) string {
	return fmt.Sprintf(`**Hook:** Assessment is a chance to show what you have learned and to spot where to grow next.

**Assessment Overview:** These activities check your understanding of %s:
%s

**Wrap-up:** What is one thing you are taking away from today's lesson?`, plan.LessonTitle, bullets(plan.SuggestedAssessments))
}
