package resolver

import (
	"regexp"
	"strings"
)

// MatcherKind selects how a single exclusion matcher compares a value.
type MatcherKind int

const (
	// MatchExact reports a hit when the value equals the matcher text,
	// ignoring case.
	MatchExact MatcherKind = iota
	// MatchNegated vetoes the whole rule when the value equals the matcher
	// text, ignoring case.
	MatchNegated
	// MatchPattern reports a hit when the compiled expression matches the
	// value anywhere.
	MatchPattern
)

// Matcher is one comparison inside a value rule.
type Matcher struct {
	Kind    MatcherKind
	Text    string
	Pattern *regexp.Regexp
}

// ExactMatcher builds a case-insensitive equality matcher.
func ExactMatcher(text string) Matcher {
	return Matcher{Kind: MatchExact, Text: text}
}

// NegatedMatcher builds a veto matcher: equality means the rule must not
// fire for this value.
func NegatedMatcher(text string) Matcher {
	return Matcher{Kind: MatchNegated, Text: text}
}

// PatternMatcher builds a regular-expression matcher.
func PatternMatcher(pattern *regexp.Regexp) Matcher {
	return Matcher{Kind: MatchPattern, Pattern: pattern}
}

// ValueRule excludes specific values for a property. A property of "*"
// applies the rule to every property. Matchers are evaluated in order.
type ValueRule struct {
	Property string
	Matchers []Matcher
}

// appliesTo reports whether the rule covers the given property name.
func (r ValueRule) appliesTo(property string) bool {
	return r.Property == "*" || strings.EqualFold(r.Property, property)
}

// ruleOutcome is the three-way result of evaluating one rule: the value is
// excluded, explicitly vetoed, or the rule has nothing to say.
type ruleOutcome int

const (
	ruleNoMatch ruleOutcome = iota
	ruleExcluded
	ruleVetoed
)

// evaluate runs the rule's matchers in order against a value. A negated
// matcher hit vetoes, otherwise the first exact or pattern hit excludes.
func (r ValueRule) evaluate(value string) ruleOutcome {
	for _, m := range r.Matchers {
		switch m.Kind {
		case MatchNegated:
			if strings.EqualFold(value, m.Text) {
				return ruleVetoed
			}
		case MatchExact:
			if strings.EqualFold(value, m.Text) {
				return ruleExcluded
			}
		case MatchPattern:
			if m.Pattern != nil && m.Pattern.MatchString(value) {
				return ruleExcluded
			}
		}
	}
	return ruleNoMatch
}

// Resolver evaluates declarations against the configured token table,
// tracked-property set and exclusion rules.
type Resolver struct {
	tokenKeys []string
	tracked   map[string]bool
	rules     []ValueRule
}

// New builds a Resolver. Token keys keep their configured order; tracked
// properties are matched by exact name.
func New(tokenKeys []string, trackedProperties []string, rules []ValueRule) *Resolver {
	tracked := make(map[string]bool, len(trackedProperties))
	for _, p := range trackedProperties {
		tracked[p] = true
	}
	return &Resolver{
		tokenKeys: append([]string(nil), tokenKeys...),
		tracked:   tracked,
		rules:     rules,
	}
}

// TokenKeys returns the configured token names in their original order.
func (r *Resolver) TokenKeys() []string {
	return r.tokenKeys
}

// IsCustomProperty reports whether a property name declares a CSS custom
// property.
func IsCustomProperty(name string) bool {
	return strings.HasPrefix(name, "--")
}

// IsScopeSelector reports whether a selector list targets the root scope
// that publishes custom properties, i.e. any of its comma-separated parts
// is :root or :host.
func IsScopeSelector(selector string) bool {
	for _, part := range strings.Split(selector, ",") {
		trimmed := strings.TrimSpace(part)
		if strings.EqualFold(trimmed, ":root") || strings.EqualFold(trimmed, ":host") {
			return true
		}
	}
	return false
}

// IsTrackedProperty reports whether declarations of this property count
// toward propagation scoring.
func (r *Resolver) IsTrackedProperty(property string) bool {
	return r.tracked[property]
}

// ValueReferencesToken reports whether the text contains any configured
// token key as a substring.
func (r *Resolver) ValueReferencesToken(value string) bool {
	for _, key := range r.tokenKeys {
		if strings.Contains(value, key) {
			return true
		}
	}
	return false
}

// IsExcludedValue reports whether the ordered rule list excludes the value
// for the given property. The first applicable rule that decides wins, and a
// negated-matcher hit vetoes every later rule, not just its own.
func (r *Resolver) IsExcludedValue(property, value string) bool {
	for _, rule := range r.rules {
		if !rule.appliesTo(property) {
			continue
		}
		switch rule.evaluate(value) {
		case ruleExcluded:
			return true
		case ruleVetoed:
			return false
		}
	}
	return false
}
