package sanitize

import (
	"fmt"
	"strings"
	"sync"
)

// PatternSet is an immutable, ordered collection of redaction rules.
// It is safe for concurrent use.
type PatternSet struct {
	rules []compiledRule
	def   definition
}

// definition is the source form of a PatternSet, kept so builders can derive new sets.
type definition struct {
	rules     []Rule
	stopwords map[string]struct{}
	profanity map[string]struct{}
	disabled  map[string]struct{}
	marker    string
	mask      string
}

// Categories returns rule names in application order.
func (ps *PatternSet) Categories() []string {
	names := make([]string, len(ps.rules))
	for i, r := range ps.rules {
		names[i] = r.name
	}
	return names
}

// Marker returns the replacement used by rules that do not set their own.
func (ps *PatternSet) Marker() string { return ps.def.marker }

// ProfanityMask returns the replacement for profane words.
func (ps *PatternSet) ProfanityMask() string { return ps.def.mask }

// apply runs every rule over the progressively transformed text. Each rule replaces
// all of its non-overlapping, non-empty matches before the next rule runs.
func (ps *PatternSet) apply(text string, onMatch func(rule, match string)) string {
	out := text
	for _, rule := range ps.rules {
		spans := rule.match.findAll(out)
		if len(spans) == 0 {
			continue
		}

		var b strings.Builder
		b.Grow(len(out))
		last := 0
		replaced := false
		for _, span := range spans {
			if span[0] == span[1] || span[0] < last {
				continue
			}
			if onMatch != nil {
				onMatch(rule.name, out[span[0]:span[1]])
			}
			b.WriteString(out[last:span[0]])
			b.WriteString(rule.replacement)
			last = span[1]
			replaced = true
		}
		if !replaced {
			continue
		}
		b.WriteString(out[last:])
		out = b.String()
	}
	return out
}

var (
	defaultSet     *PatternSet
	defaultSetOnce sync.Once
)

// Default returns the process-wide builtin pattern set.
func Default() *PatternSet {
	defaultSetOnce.Do(func() {
		ps, err := NewBuilder(nil).Build()
		if err != nil {
			panic(fmt.Sprintf("sanitize: builtin pattern set: %v", err))
		}
		defaultSet = ps
	})
	return defaultSet
}

func builtinDefinition() definition {
	return definition{
		rules: []Rule{
			{
				Name:     CategoryCreditCard,
				Pattern:  `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`,
				Priority: PriorityCreditCard,
			},
			{
				Name:     CategorySSN,
				Pattern:  `\b\d{3}-?\d{2}-?\d{4}\b`,
				Priority: PrioritySSN,
			},
			{
				Name:     CategoryEmail,
				Pattern:  `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
				Priority: PriorityEmail,
			},
			{
				Name:     CategoryPhone,
				Pattern:  `(?:\+?\b1[-.\s]?)?(?:\(\d{3}\)|\b\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`,
				Priority: PriorityPhone,
			},
		},
		stopwords: toSet(builtinStopwords),
		profanity: toSet(builtinProfanity),
		disabled:  map[string]struct{}{},
		marker:    DefaultMarker,
		mask:      DefaultProfanityMask,
	}
}

func (d definition) clone() definition {
	return definition{
		rules:     append([]Rule(nil), d.rules...),
		stopwords: cloneSet(d.stopwords),
		profanity: cloneSet(d.profanity),
		disabled:  cloneSet(d.disabled),
		marker:    d.marker,
		mask:      d.mask,
	}
}

// builtinStopwords are capitalised words that commonly start a sentence or appear in
// Title Case headings of lesson material, and are not part of a personal name.
var builtinStopwords = []string{
	"a", "an", "and", "or", "but", "the", "this", "that", "these", "those",
	"our", "your", "my", "their", "his", "her", "its", "we", "you", "they",
	"what", "how", "why", "when", "where", "who", "which",
	"in", "on", "at", "to", "for", "of", "with", "by", "from", "about",
	"contact", "call", "email", "send", "submit", "meet", "ask", "visit", "write", "read",
	"please", "dear", "hello", "hi", "thanks", "welcome",
	"student", "students", "teacher", "teachers", "class", "lesson", "lessons",
	"unit", "module", "chapter", "section", "introduction", "intro", "overview",
	"lab", "quiz", "exam", "test", "review", "exit", "ticket", "activity", "worksheet",
	"science", "sciences", "environmental", "social", "studies", "history", "math", "mathematics",
	"english", "language", "arts", "art", "music", "biology", "chemistry", "physics", "geography",
	"earth", "life", "energy", "flow", "living", "non", "components", "ecosystem", "ecosystems",
	"food", "water", "cycle", "world", "basics", "key", "terms", "vocabulary", "project", "practice",
	"summary", "conclusion", "discussion", "group", "warm", "wrap", "closing", "opening",
	"objectives", "assessment", "assessments", "materials", "notes", "slide", "plan", "guided",
	"independent", "hands", "interactive", "part", "step", "grade",
	"dr", "mr", "mrs", "ms", "prof",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// builtinProfanity is a conservative classroom word list.
var builtinProfanity = []string{
	"damn", "damned", "dammit", "goddamn", "crap", "crappy",
	"shit", "shitty", "bullshit", "fuck", "fucking", "fucked", "motherfucker",
	"bitch", "bastard", "asshole", "piss", "pissed", "dick", "prick", "bollocks", "wanker",
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
