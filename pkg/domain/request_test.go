package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRequestNormalize(t *testing.T) {
	req := PlanRequest{
		GradeLevel:  " 5th Grade ",
		Subject:     "Environmental Science",
		Constraints: []string{" ", "hands-on "},
	}
	req.Normalize()

	assert.Equal(t, "5th Grade", req.GradeLevel)
	assert.Equal(t, DefaultBaseline, req.AudienceBaseline)
	assert.Equal(t, DefaultDuration, req.Duration)
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, []string{"hands-on"}, req.Constraints)
}

func TestPlanRequestNormalizeDefaultConstraints(t *testing.T) {
	req := PlanRequest{GradeLevel: "8", Subject: "Chemistry"}
	req.Normalize()
	assert.Equal(t, DefaultConstraints, req.Constraints)

	// The package default must not be aliased by the request.
	req.Constraints[0] = "changed"
	assert.Equal(t, "age-appropriate", DefaultConstraints[0])
}

func TestPlanRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     PlanRequest
		wantErr bool
	}{
		{name: "complete", req: PlanRequest{GradeLevel: "5", Subject: "Math"}},
		{name: "missing grade", req: PlanRequest{Subject: "Math"}, wantErr: true},
		{name: "missing subject", req: PlanRequest{GradeLevel: "5", Subject: "  "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}
}

func TestParseConstraints(t *testing.T) {
	assert.Nil(t, ParseConstraints(""))
	assert.Equal(t, []string{"age-appropriate", "privacy-protecting"}, ParseConstraints("age-appropriate, privacy-protecting,"))
}

func TestCurriculumPlanSlideCount(t *testing.T) {
	plan := CurriculumPlan{
		LessonTitle:          "Ecosystems",
		LearningObjectives:   []string{"Define an ecosystem"},
		ContentOutline:       []Section{{Title: "Intro", Description: "Local examples"}},
		SuggestedAssessments: []string{"Exit ticket"},
	}
	assert.Equal(t, 3, plan.SlideCount())
	assert.Equal(t, 2, CurriculumPlan{}.SlideCount())
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewError(CodeInvalidPlan, ErrInvalidPlan, "plan rejected")
	assert.True(t, errors.Is(err, ErrInvalidPlan))
	assert.Equal(t, "plan rejected: invalid curriculum plan", err.Error())
}
