package sanitize

import "github.com/polisai/educator-agent/pkg/domain"

// PlanValue converts a plan into a Mapping with fields in schema order.
// Nil slices become null scalars so the conversion round-trips.
func PlanValue(p domain.CurriculumPlan) Mapping {
	var outline Value = Null()
	if p.ContentOutline != nil {
		seq := make(Sequence, len(p.ContentOutline))
		for i, sec := range p.ContentOutline {
			seq[i] = Mapping{
				{Key: "title", Value: String(sec.Title)},
				{Key: "description", Value: String(sec.Description)},
			}
		}
		outline = seq
	}
	return Mapping{
		{Key: "lesson_title", Value: String(p.LessonTitle)},
		{Key: "learning_objectives", Value: stringsValue(p.LearningObjectives)},
		{Key: "content_outline", Value: outline},
		{Key: "suggested_assessments", Value: stringsValue(p.SuggestedAssessments)},
	}
}

// PlanFromValue is the inverse of PlanValue. Unknown keys are ignored.
func PlanFromValue(m Mapping) domain.CurriculumPlan {
	var p domain.CurriculumPlan
	p.LessonTitle = textOf(field(m, "lesson_title"))
	p.LearningObjectives = stringsOf(field(m, "learning_objectives"))
	p.SuggestedAssessments = stringsOf(field(m, "suggested_assessments"))
	if seq, ok := field(m, "content_outline").(Sequence); ok {
		p.ContentOutline = make([]domain.Section, 0, len(seq))
		for _, item := range seq {
			sec, _ := item.(Mapping)
			p.ContentOutline = append(p.ContentOutline, domain.Section{
				Title:       textOf(field(sec, "title")),
				Description: textOf(field(sec, "description")),
			})
		}
	}
	return p
}

// SanitizePlan returns a copy of p with every text field redacted.
func SanitizePlan(ps *PatternSet, p domain.CurriculumPlan) domain.CurriculumPlan {
	out, _ := Sanitize(ps, PlanValue(p)).(Mapping)
	return PlanFromValue(out)
}

func stringsValue(in []string) Value {
	if in == nil {
		return Null()
	}
	seq := make(Sequence, len(in))
	for i, s := range in {
		seq[i] = String(s)
	}
	return seq
}

func stringsOf(v Value) []string {
	seq, ok := v.(Sequence)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(seq))
	for _, item := range seq {
		out = append(out, textOf(item))
	}
	return out
}

func field(m Mapping, key string) Value {
	v, _ := m.Get(key)
	return v
}

func textOf(v Value) string {
	if sc, ok := v.(Scalar); ok {
		if s, ok := sc.Text(); ok {
			return s
		}
	}
	return ""
}
