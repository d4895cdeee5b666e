package domain

import (
	"fmt"
	"strings"
)

// Defaults applied by PlanRequest.Normalize.
const (
	DefaultBaseline = "grade-appropriate prior knowledge"
	DefaultDuration = "45 minutes"
	DefaultModel    = "gpt-4o"
)

// DefaultConstraints are used when the caller supplies none.
var DefaultConstraints = []string{"age-appropriate", "privacy-protecting"}

// PlanRequest carries the teacher-supplied inputs for a lesson plan.
type PlanRequest struct {
	GradeLevel       string   `json:"grade_level" yaml:"grade_level"`
	Subject          string   `json:"subject" yaml:"subject"`
	AudienceBaseline string   `json:"audience_baseline" yaml:"audience_baseline"`
	Duration         string   `json:"duration" yaml:"duration"`
	Constraints      []string `json:"constraints" yaml:"constraints"`
	Model            string   `json:"model" yaml:"model"`
}

// Normalize trims fields and fills in defaults.
func (r *PlanRequest) Normalize() {
	r.GradeLevel = strings.TrimSpace(r.GradeLevel)
	r.Subject = strings.TrimSpace(r.Subject)
	r.AudienceBaseline = strings.TrimSpace(r.AudienceBaseline)
	r.Duration = strings.TrimSpace(r.Duration)
	r.Model = strings.TrimSpace(r.Model)

	if r.AudienceBaseline == "" {
		r.AudienceBaseline = DefaultBaseline
	}
	if r.Duration == "" {
		r.Duration = DefaultDuration
	}
	if r.Model == "" {
		r.Model = DefaultModel
	}

	constraints := make([]string, 0, len(r.Constraints))
	for _, c := range r.Constraints {
		if c = strings.TrimSpace(c); c != "" {
			constraints = append(constraints, c)
		}
	}
	if len(constraints) == 0 {
		constraints = append(constraints, DefaultConstraints...)
	}
	r.Constraints = constraints
}

// Validate reports missing required fields.
func (r PlanRequest) Validate() error {
	if strings.TrimSpace(r.GradeLevel) == "" {
		return fmt.Errorf("%w: grade level is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	}
	return nil
}

// ParseConstraints splits a comma-separated constraint list.
func ParseConstraints(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
