package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// Builtin categories, listed in application order.
const (
	CategoryCreditCard = "credit_card"
	CategorySSN        = "ssn"
	CategoryEmail      = "email"
	CategoryPhone      = "phone"
	CategoryFullName   = "full_name"
	CategoryProfanity  = "profanity"
)

// Builtin priorities. Lower runs first; custom rules may slot in between.
const (
	PriorityCreditCard = 100
	PrioritySSN        = 200
	PriorityEmail      = 300
	PriorityPhone      = 400
	PriorityFullName   = 500
	PriorityProfanity  = 600
)

const (
	// DefaultMarker replaces personal data.
	DefaultMarker = "[REDACTED]"
	// DefaultProfanityMask replaces profane words.
	DefaultProfanityMask = "****"
)

// Rule declares a regex redaction rule. An empty Replacement means the set's marker.
type Rule struct {
	Name        string `json:"name" yaml:"name"`
	Pattern     string `json:"pattern" yaml:"pattern"`
	Replacement string `json:"replacement,omitempty" yaml:"replacement,omitempty"`
	Priority    int    `json:"priority" yaml:"priority"`
}

// Finding captures a single match. Findings never leave the process through logs;
// only their counts do.
type Finding struct {
	Rule  string
	Match string
}

// Report summarises the outcome of scanning one string.
type Report struct {
	Findings          []Finding
	Redacted          string
	RedactionsApplied bool
}

// Summary counts findings per category across a whole value.
type Summary struct {
	Counts       map[string]int
	TextLeaves   int
	ChangedTexts int
}

// Total returns the number of findings across all categories.
func (s Summary) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// matcher finds non-overlapping spans, ordered by position.
type matcher interface {
	findAll(s string) [][]int
}

type regexMatcher struct {
	expr *regexp.Regexp
}

func (m regexMatcher) findAll(s string) [][]int {
	return m.expr.FindAllStringIndex(s, -1)
}

var (
	// digitRun is a maximal chain of digit groups joined by single separators,
	// such as "123-45-6789 4532 1234".
	digitRun   = regexp.MustCompile(`\b\d+(?:[-\s]\d+)*\b`)
	digitGroup = regexp.MustCompile(`\d+`)
)

// maxCardGroups bounds how many digit groups one card may span.
const maxCardGroups = 4

// cardMatcher finds card numbers inside runs of digit groups. Candidates are taken
// from the right end of each run, so leading groups that belong to an SSN or phone
// number ("123-45-6789 4532 1234 5678 9012") stay whole for the later rules.
// whole must match a complete candidate, from its first digit to its last.
type cardMatcher struct {
	whole *regexp.Regexp
}

func (m cardMatcher) findAll(s string) [][]int {
	var spans [][]int
	for _, run := range digitRun.FindAllStringIndex(s, -1) {
		groups := digitGroup.FindAllStringIndex(s[run[0]:run[1]], -1)
		var found [][]int
		for end := len(groups) - 1; end >= 0; {
			n := m.cardEndingAt(s, run[0], groups, end)
			if n == 0 {
				end--
				continue
			}
			start := end - n + 1
			found = append(found, []int{run[0] + groups[start][0], run[0] + groups[end][1]})
			end = start - 1
		}
		for i := len(found) - 1; i >= 0; i-- {
			spans = append(spans, found[i])
		}
	}
	return spans
}

// cardEndingAt returns how many groups, ending at groups[end], form a card, or zero.
func (m cardMatcher) cardEndingAt(s string, offset int, groups [][]int, end int) int {
	for n := 1; n <= maxCardGroups && end-n+1 >= 0; n++ {
		start := end - n + 1
		if m.whole.MatchString(s[offset+groups[start][0] : offset+groups[end][1]]) {
			return n
		}
	}
	return 0
}

// capitalisedToken is a single capitalised word such as "John".
var capitalisedToken = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// nameMatcher flags two adjacent capitalised tokens separated only by whitespace.
// Pairs where either token is a stopword ("Contact John", "Lesson Plan") are skipped,
// so a sentence-initial verb does not swallow the first name of the person after it.
type nameMatcher struct {
	stopwords map[string]struct{}
}

func (m nameMatcher) findAll(s string) [][]int {
	tokens := capitalisedToken.FindAllStringIndex(s, -1)
	var spans [][]int
	for i := 0; i+1 < len(tokens); {
		first, second := tokens[i], tokens[i+1]
		if isWhitespace(s[first[1]:second[0]]) &&
			!m.isStopword(s[first[0]:first[1]]) &&
			!m.isStopword(s[second[0]:second[1]]) {
			spans = append(spans, []int{first[0], second[1]})
			i += 2
			continue
		}
		i++
	}
	return spans
}

func (m nameMatcher) isStopword(token string) bool {
	_, ok := m.stopwords[strings.ToLower(token)]
	return ok
}

func isWhitespace(gap string) bool {
	if gap == "" {
		return false
	}
	for _, r := range gap {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// compiledRule is an internal representation of a rule ready to apply.
type compiledRule struct {
	name        string
	priority    int
	match       matcher
	replacement string
}
