package planner

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/polisai/educator-agent/pkg/domain"
)

// SystemPrompt is sent with every planning request.
const SystemPrompt = "You are an expert curriculum designer. Always respond with valid JSON matching the requested schema."

var promptTemplate = template.Must(template.New("plan").Parse(`Create a detailed curriculum plan for {{.GradeLevel}} students studying {{.Subject}}.

Parameters:
- Grade Level: {{.GradeLevel}}
- Subject: {{.Subject}}
- Audience Baseline: {{.AudienceBaseline}}
- Duration: {{.Duration}}
- Constraints: {{.Constraints}}

Please respond with a JSON object containing exactly these fields:
- lesson_title: A clear, engaging title for the lesson
- learning_objectives: Array of specific, measurable learning objectives
- content_outline: Array of objects with "title" and "description" for each section
- suggested_assessments: Array of assessment methods and activities

Do not include names, contact details or other personal information.
Ensure the content is age-appropriate and educationally sound for {{.GradeLevel}} level.`))

type promptData struct {
	GradeLevel       string
	Subject          string
	AudienceBaseline string
	Duration         string
	Constraints      string
}

// BuildPrompt renders the user prompt for a normalized request.
func BuildPrompt(req domain.PlanRequest) (string, error) {
	constraints := strings.Join(req.Constraints, ", ")
	if constraints == "" {
		constraints = "None specified"
	}

	var b strings.Builder
	err := promptTemplate.Execute(&b, promptData{
		GradeLevel:       req.GradeLevel,
		Subject:          req.Subject,
		AudienceBaseline: req.AudienceBaseline,
		Duration:         req.Duration,
		Constraints:      constraints,
	})
	if err != nil {
		return "", fmt.Errorf("planner: render prompt: %w", err)
	}
	return b.String(), nil
}
