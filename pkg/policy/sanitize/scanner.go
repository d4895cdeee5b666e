package sanitize

import "context"

// Text redacts a single string. A nil set means Default().
func Text(ps *PatternSet, s string) string {
	if s == "" {
		return s
	}
	return orDefault(ps).apply(s, nil)
}

// Scan inspects the supplied text and returns the findings and redacted output.
func Scan(ctx context.Context, ps *PatternSet, text string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	var findings []Finding
	redacted := orDefault(ps).apply(text, func(rule, match string) {
		findings = append(findings, Finding{Rule: rule, Match: match})
	})

	return Report{
		Findings:          findings,
		Redacted:          redacted,
		RedactionsApplied: redacted != text,
	}, nil
}

func orDefault(ps *PatternSet) *PatternSet {
	if ps == nil {
		return Default()
	}
	return ps
}
