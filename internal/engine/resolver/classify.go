package resolver

import (
	"sort"
	"strings"

	"tokentrace/internal/engine/parser"
)

// TraceNames returns the union of custom-property names referenced across
// all trace steps, in first-appearance order.
func TraceNames(trace []string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, step := range trace {
		for _, name := range ExtractVarNames(step) {
			if seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// AnalyzeTrace scans every trace step and reports whether any step
// references a configured token and whether any step is an excluded value
// for the given property.
func (r *Resolver) AnalyzeTrace(trace []string, property string) (containsToken, containsExcluded bool) {
	for _, step := range trace {
		if !containsToken && r.ValueReferencesToken(step) {
			containsToken = true
		}
		if !containsExcluded && r.IsExcludedValue(property, step) {
			containsExcluded = true
		}
		if containsToken && containsExcluded {
			break
		}
	}
	return containsToken, containsExcluded
}

// ClassifyResolution derives the resolution type from the origin of every
// bound name the trace references. Unbound names do not influence the
// outcome.
func ClassifyResolution(trace []string, bindings BindingMap) ResolutionType {
	var local, external bool
	for _, name := range TraceNames(trace) {
		binding, ok := bindings[name]
		if !ok {
			continue
		}
		if binding.External {
			external = true
		} else {
			local = true
		}
	}
	switch {
	case local && external:
		return ResolutionMixed
	case external:
		return ResolutionExternal
	case local:
		return ResolutionLocal
	default:
		return ResolutionDirect
	}
}

// ResolutionSources lists the source files of bindings whose value appears
// verbatim as a trace step, excluding the file under analysis. The result is
// deduplicated and sorted.
func ResolutionSources(trace []string, bindings BindingMap, currentFile string) []string {
	steps := make(map[string]bool, len(trace))
	for _, step := range trace {
		steps[step] = true
	}
	seen := make(map[string]bool)
	var sources []string
	for _, binding := range bindings {
		if binding.SourceFile == "" || binding.SourceFile == currentFile {
			continue
		}
		if !steps[binding.Value] || seen[binding.SourceFile] {
			continue
		}
		seen[binding.SourceFile] = true
		sources = append(sources, binding.SourceFile)
	}
	sort.Strings(sources)
	return sources
}

// UnresolvedVariables returns the referenced names that have no binding,
// sorted. Names that themselves contain a configured token key are treated
// as resolved by the token table and skipped.
func (r *Resolver) UnresolvedVariables(trace []string, bindings BindingMap) []string {
	var unresolved []string
	for _, name := range TraceNames(trace) {
		if _, ok := bindings[name]; ok {
			continue
		}
		if r.ValueReferencesToken(name) {
			continue
		}
		unresolved = append(unresolved, name)
	}
	sort.Strings(unresolved)
	return unresolved
}

// ResolvedVarOrigins maps each bound name whose exact var() call appears in
// some trace step to the file that defined it.
func ResolvedVarOrigins(trace []string, bindings BindingMap) map[string]string {
	origins := make(map[string]string)
	for _, step := range trace {
		for _, name := range ExtractVarNames(step) {
			binding, ok := bindings[name]
			if !ok || binding.SourceFile == "" {
				continue
			}
			if !strings.Contains(step, "var("+name+")") {
				continue
			}
			origins[name] = binding.SourceFile
		}
	}
	return origins
}

// AnalyzeDeclaration runs the full resolution pipeline for one parsed
// declaration: trace building, token and exclusion scanning, classification
// and origin attribution.
func (r *Resolver) AnalyzeDeclaration(d *parser.Declaration, bindings BindingMap, currentFile string) Declaration {
	trace := BuildResolutionTrace(d.Value, bindings)
	containsToken, containsExcluded := r.AnalyzeTrace(trace, d.Property)
	return Declaration{
		Property:              d.Property,
		Value:                 d.Value,
		Span:                  d.Span,
		ResolutionTrace:       trace,
		ContainsDesignToken:   containsToken,
		ContainsExcludedValue: containsExcluded,
		ResolutionType:        ClassifyResolution(trace, bindings),
		ResolutionSources:     ResolutionSources(trace, bindings, currentFile),
		UnresolvedVariables:   r.UnresolvedVariables(trace, bindings),
		ResolvedFrom:          ResolvedVarOrigins(trace, bindings),
	}
}
