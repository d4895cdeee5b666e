// Package domain defines the core records shared by the Educator Agent packages.
//
// This package has ZERO external dependencies outside the Go standard library.
// The planner produces a CurriculumPlan, the sanitizer returns a new CurriculumPlan
// of identical shape, and the notes and resource collaborators consume the sanitized
// record. The dependency direction is always:
//
//	planner, sanitize, notes, oer, agent → domain (CORRECT)
//	domain → any of the above (FORBIDDEN)
package domain
