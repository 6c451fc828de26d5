package resolver

import (
	"regexp"
	"strings"
)

// varNamePattern captures the property name of a var() reference. It
// deliberately stops at the name so that fallback-bearing forms like
// var(--x, 1px) still surface --x.
var varNamePattern = regexp.MustCompile(`var\(\s*(--[\w-]+)`)

// ExtractVarNames returns the custom-property names referenced by a value,
// in first-appearance order and deduplicated. Fallback-bearing references
// contribute their name even though the trace builder never substitutes
// them.
func ExtractVarNames(value string) []string {
	matches := varNamePattern.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}

// BuildResolutionTrace expands var() references step by step and records
// every intermediate value, starting with the initial one. Per iteration it
// substitutes the first occurrence of each exact var(--name) call whose name
// is bound and not yet visited; fallback forms are left untouched. Every
// referenced name is marked visited the first time it is considered, whether
// or not a substitution fires, so a name seen only in fallback position is
// never expanded later. That bounds the loop even for circular bindings.
// The trace ends when an iteration substitutes nothing or leaves the value
// unchanged, so a self-referential binding yields a single-entry trace.
func BuildResolutionTrace(initialValue string, bindings BindingMap) []string {
	trace := []string{initialValue}
	current := initialValue
	visited := make(map[string]bool)

	for {
		next := current
		substituted := false
		for _, name := range ExtractVarNames(current) {
			if visited[name] {
				continue
			}
			visited[name] = true
			binding, ok := bindings[name]
			if !ok {
				continue
			}
			call := "var(" + name + ")"
			if !strings.Contains(current, call) {
				continue
			}
			next = strings.Replace(next, call, binding.Value, 1)
			substituted = true
		}
		if !substituted || next == current {
			return trace
		}
		trace = append(trace, next)
		current = next
	}
}
