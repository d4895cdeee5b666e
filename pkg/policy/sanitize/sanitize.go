package sanitize

import "github.com/polisai/educator-agent/pkg/domain"

// Sanitize returns a redacted copy of v with the same shape. Text scalars are
// redacted, mapping keys are kept as-is, other scalars pass through untouched.
// The input is never modified.
func Sanitize(ps *PatternSet, v Value) Value {
	ps = orDefault(ps)
	return ps.walk(v, func(s string) string { return ps.apply(s, nil) })
}

// Inspect counts findings per category without returning any matched text.
func Inspect(ps *PatternSet, v Value) Summary {
	ps = orDefault(ps)
	sum := Summary{Counts: map[string]int{}}
	ps.walk(v, func(s string) string {
		sum.TextLeaves++
		out := ps.apply(s, func(rule, _ string) { sum.Counts[rule]++ })
		if out != s {
			sum.ChangedTexts++
		}
		return out
	})
	return sum
}

func (ps *PatternSet) walk(v Value, text func(string) string) Value {
	switch t := v.(type) {
	case Mapping:
		if t == nil {
			return Mapping(nil)
		}
		out := make(Mapping, len(t))
		for i, f := range t {
			out[i] = Field{Key: f.Key, Value: ps.walk(f.Value, text)}
		}
		return out
	case Sequence:
		if t == nil {
			return Sequence(nil)
		}
		out := make(Sequence, len(t))
		for i, item := range t {
			out[i] = ps.walk(item, text)
		}
		return out
	case Scalar:
		if s, ok := t.Text(); ok {
			return String(text(s))
		}
		return t
	default:
		return v
	}
}

// Sanitizer binds a pattern set so it can be handed to collaborators.
type Sanitizer struct {
	patterns *PatternSet
}

// New returns a Sanitizer over ps, or over Default() when ps is nil.
func New(ps *PatternSet) *Sanitizer {
	return &Sanitizer{patterns: orDefault(ps)}
}

// Patterns exposes the bound pattern set.
func (s *Sanitizer) Patterns() *PatternSet { return s.patterns }

// Text redacts one string.
func (s *Sanitizer) Text(in string) string { return Text(s.patterns, in) }

// Value redacts a nested value.
func (s *Sanitizer) Value(v Value) Value { return Sanitize(s.patterns, v) }

// Plan redacts every text field of a curriculum plan.
func (s *Sanitizer) Plan(p domain.CurriculumPlan) domain.CurriculumPlan {
	return SanitizePlan(s.patterns, p)
}

// Strings redacts each element, returning a new slice.
func (s *Sanitizer) Strings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, item := range in {
		out[i] = s.Text(item)
	}
	return out
}
