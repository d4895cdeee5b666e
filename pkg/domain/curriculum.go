package domain

// CurriculumPlan is the structured lesson record produced by the planner.
// Field order matches the plan JSON schema and is preserved by the sanitizer.
type CurriculumPlan struct {
	LessonTitle          string    `json:"lesson_title" yaml:"lesson_title"`
	LearningObjectives   []string  `json:"learning_objectives" yaml:"learning_objectives"`
	ContentOutline       []Section `json:"content_outline" yaml:"content_outline"`
	SuggestedAssessments []string  `json:"suggested_assessments" yaml:"suggested_assessments"`
}

// Section is one entry of the content outline.
type Section struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// SlideCount is the number of slides a deck built from the plan would have:
// title, one per outline section, and assessments.
func (p CurriculumPlan) SlideCount() int {
	return len(p.ContentOutline) + 2
}

// SlideNote holds the speaker notes for a single slide.
type SlideNote struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
	Fallback bool   `json:"fallback,omitempty"`
}
