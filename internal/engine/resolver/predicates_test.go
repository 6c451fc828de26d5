package resolver

import (
	"regexp"
	"testing"
)

func TestIsCustomProperty(t *testing.T) {
	tests := []struct {
		property string
		want     bool
	}{
		{"--primary-color", true},
		{"--x", true},
		{"color", false},
		{"-webkit-transform", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsCustomProperty(tt.property); got != tt.want {
			t.Errorf("IsCustomProperty(%q) = %v, want %v", tt.property, got, tt.want)
		}
	}
}

func TestIsScopeSelector(t *testing.T) {
	tests := []struct {
		selector string
		want     bool
	}{
		{":root", true},
		{":ROOT", true},
		{":host", true},
		{" :root ", true},
		{":root, .dark", true},
		{".light, :host", true},
		{".button", false},
		{":root .child", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsScopeSelector(tt.selector); got != tt.want {
			t.Errorf("IsScopeSelector(%q) = %v, want %v", tt.selector, got, tt.want)
		}
	}
}

func TestIsTrackedProperty(t *testing.T) {
	r := New(nil, []string{"color", "background-color"}, nil)

	if !r.IsTrackedProperty("color") {
		t.Error("expected color to be tracked")
	}
	if r.IsTrackedProperty("border-color") {
		t.Error("expected border-color to be untracked, partial names must not match")
	}
	if r.IsTrackedProperty("Color") {
		t.Error("expected membership to be exact, not case-folded")
	}
}

func TestValueReferencesToken(t *testing.T) {
	r := New([]string{"--color-", "--spacing-"}, nil, nil)

	tests := []struct {
		value string
		want  bool
	}{
		{"var(--color-primary)", true},
		{"calc(var(--spacing-md) * 2)", true},
		{"var(--border-width)", false},
		{"12px", false},
	}
	for _, tt := range tests {
		if got := r.ValueReferencesToken(tt.value); got != tt.want {
			t.Errorf("ValueReferencesToken(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestIsExcludedValue(t *testing.T) {
	rules := []ValueRule{
		{Property: "color", Matchers: []Matcher{
			NegatedMatcher("currentColor"),
			ExactMatcher("transparent"),
			PatternMatcher(regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)),
		}},
		{Property: "*", Matchers: []Matcher{
			ExactMatcher("inherit"),
			ExactMatcher("unset"),
		}},
	}
	r := New(nil, nil, rules)

	tests := []struct {
		name     string
		property string
		value    string
		want     bool
	}{
		{"exact hit ignores case", "color", "TRANSPARENT", true},
		{"pattern hit", "color", "#fff", true},
		{"long hex pattern hit", "color", "#A1B2C3", true},
		{"negated value vetoes the rule", "color", "currentColor", false},
		{"negation is case-insensitive", "color", "CURRENTCOLOR", false},
		{"star rule applies to any property", "margin", "inherit", true},
		{"property rule does not leak", "margin", "transparent", false},
		{"unmatched value passes", "color", "var(--color-bg)", false},
	}
	vetoRules := []ValueRule{
		{Property: "color", Matchers: []Matcher{NegatedMatcher("currentColor")}},
		{Property: "*", Matchers: []Matcher{ExactMatcher("currentcolor")}},
	}
	vetoed := New(nil, nil, vetoRules)
	if vetoed.IsExcludedValue("color", "currentColor") {
		t.Fatal("a negated hit must veto later rules, not just its own")
	}
	if !vetoed.IsExcludedValue("margin", "currentColor") {
		t.Fatal("the veto is scoped to properties its rule applies to")
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.IsExcludedValue(tt.property, tt.value); got != tt.want {
				t.Fatalf("IsExcludedValue(%q, %q) = %v, want %v", tt.property, tt.value, got, tt.want)
			}
		})
	}
}

func TestIsExcludedValuePropertyNameCase(t *testing.T) {
	rules := []ValueRule{
		{Property: "Color", Matchers: []Matcher{ExactMatcher("red")}},
	}
	r := New(nil, nil, rules)

	if !r.IsExcludedValue("color", "red") {
		t.Error("expected rule property comparison to ignore case")
	}
}
