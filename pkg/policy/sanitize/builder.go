package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Builder derives a new PatternSet from a base set. The base is never modified.
type Builder struct {
	def  definition
	errs []error
}

// NewBuilder starts from base, or from the builtin rules when base is nil.
func NewBuilder(base *PatternSet) *Builder {
	if base == nil {
		return &Builder{def: builtinDefinition()}
	}
	return &Builder{def: base.def.clone()}
}

// AddRule appends a regex rule. Rules with equal priority keep insertion order.
func (b *Builder) AddRule(rule Rule) *Builder {
	rule.Name = strings.TrimSpace(rule.Name)
	if rule.Name == "" {
		b.errs = append(b.errs, errors.New("sanitize: rule name is required"))
		return b
	}
	if strings.TrimSpace(rule.Pattern) == "" {
		b.errs = append(b.errs, fmt.Errorf("sanitize: pattern is required for rule %s", rule.Name))
		return b
	}
	b.def.rules = append(b.def.rules, rule)
	return b
}

// AddRules appends several rules.
func (b *Builder) AddRules(rules ...Rule) *Builder {
	for _, r := range rules {
		b.AddRule(r)
	}
	return b
}

// AddStopwords extends the words that never count as part of a full name.
func (b *Builder) AddStopwords(words ...string) *Builder {
	for k := range toSet(words) {
		b.def.stopwords[k] = struct{}{}
	}
	return b
}

// AddProfanity extends the profanity word list.
func (b *Builder) AddProfanity(words ...string) *Builder {
	for k := range toSet(words) {
		b.def.profanity[k] = struct{}{}
	}
	return b
}

// WithMarker sets the replacement used by rules without their own.
func (b *Builder) WithMarker(marker string) *Builder {
	b.def.marker = marker
	return b
}

// WithProfanityMask sets the replacement for profane words.
func (b *Builder) WithProfanityMask(mask string) *Builder {
	b.def.mask = mask
	return b
}

// Disable turns off categories by name, builtin or custom.
func (b *Builder) Disable(categories ...string) *Builder {
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			b.def.disabled[strings.ToLower(c)] = struct{}{}
		}
	}
	return b
}

// Build compiles the rules into a new immutable PatternSet.
func (b *Builder) Build() (*PatternSet, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	def := b.def.clone()
	if strings.TrimSpace(def.marker) == "" {
		return nil, errors.New("sanitize: marker must not be blank")
	}
	if strings.TrimSpace(def.mask) == "" {
		return nil, errors.New("sanitize: profanity mask must not be blank")
	}

	seen := map[string]struct{}{
		CategoryFullName:  {},
		CategoryProfanity: {},
	}
	rules := make([]compiledRule, 0, len(def.rules)+2)
	for _, rule := range def.rules {
		key := strings.ToLower(rule.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("sanitize: duplicate rule %s", rule.Name)
		}
		seen[key] = struct{}{}
		if _, off := def.disabled[key]; off {
			continue
		}

		expr, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sanitize: invalid pattern for rule %s: %w", rule.Name, err)
		}
		if expr.MatchString("") {
			return nil, fmt.Errorf("sanitize: pattern for rule %s matches the empty string", rule.Name)
		}
		replacement := rule.Replacement
		if replacement == "" {
			replacement = def.marker
		}
		var match matcher = regexMatcher{expr: expr}
		if key == CategoryCreditCard {
			whole, err := regexp.Compile(`^(?:` + rule.Pattern + `)$`)
			if err != nil {
				return nil, fmt.Errorf("sanitize: invalid pattern for rule %s: %w", rule.Name, err)
			}
			match = cardMatcher{whole: whole}
		}
		rules = append(rules, compiledRule{
			name:        rule.Name,
			priority:    rule.Priority,
			match:       match,
			replacement: replacement,
		})
	}

	if _, off := def.disabled[CategoryFullName]; !off {
		rules = append(rules, compiledRule{
			name:        CategoryFullName,
			priority:    PriorityFullName,
			match:       nameMatcher{stopwords: def.stopwords},
			replacement: def.marker,
		})
	}

	if _, off := def.disabled[CategoryProfanity]; !off && len(def.profanity) > 0 {
		rules = append(rules, compiledRule{
			name:        CategoryProfanity,
			priority:    PriorityProfanity,
			match:       regexMatcher{expr: profanityExpr(def.profanity)},
			replacement: def.mask,
		})
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].priority < rules[j].priority
	})

	ps := &PatternSet{rules: rules, def: def}
	if err := ps.checkFixedPoint(); err != nil {
		return nil, err
	}
	return ps, nil
}

// checkFixedPoint rejects sets whose own replacement tokens would be redacted again,
// which would make sanitizing sanitized output change it. A replacement must also
// start and end with a non-word character so it cannot join neighbouring text
// into a new match, as "123" would next to "-45-6789".
func (ps *PatternSet) checkFixedPoint() error {
	for _, rule := range ps.rules {
		r := rule.replacement
		for _, sample := range []string{r, "a " + r + " a", r + " " + r, "0" + r + "0", "a" + r + "a"} {
			if got := ps.apply(sample, nil); got != sample {
				return fmt.Errorf("sanitize: replacement %q of rule %s is itself redacted", rule.replacement, rule.name)
			}
		}
		first, _ := utf8.DecodeRuneInString(r)
		last, _ := utf8.DecodeLastRuneInString(r)
		if isWordRune(first) || isWordRune(last) {
			return fmt.Errorf("sanitize: replacement %q of rule %s must start and end with a non-word character", rule.replacement, rule.name)
		}
	}
	return nil
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// profanityExpr matches any listed word, case-insensitively, on word boundaries.
// Longer words come first so "shitty" is not cut short by "shit".
func profanityExpr(words map[string]struct{}) *regexp.Regexp {
	list := make([]string, 0, len(words))
	for w := range words {
		list = append(list, w)
	}
	sort.Slice(list, func(i, j int) bool {
		if len(list[i]) != len(list[j]) {
			return len(list[i]) > len(list[j])
		}
		return list[i] < list[j]
	})
	quoted := make([]string, len(list))
	for i, w := range list {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
