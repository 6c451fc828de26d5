package resolver

import (
	"log/slog"

	"tokentrace/internal/engine/parser"
)

// CollectLocalBindings adds the stylesheet's root-scoped custom properties
// to the binding map. The first definition of a name wins: names already
// present, including externally seeded ones, are kept and the duplicate is
// reported and skipped.
func CollectLocalBindings(sheet *parser.Stylesheet, bindings BindingMap, currentFile string) {
	sheet.Walk(func(d *parser.Declaration) {
		if !IsCustomProperty(d.Property) || !IsScopeSelector(d.Selector) {
			return
		}
		if existing, ok := bindings[d.Property]; ok {
			slog.Warn("duplicate custom property definition skipped",
				"name", d.Property,
				"path", currentFile,
				"line", d.Span.Start.Line,
				"keptFrom", existing.SourceFile)
			return
		}
		bindings[d.Property] = Binding{
			Name:       d.Property,
			Value:      d.Value,
			External:   false,
			SourceFile: currentFile,
			Span:       d.Span,
		}
	})
}

// CollectExternalBindings returns every root-scoped custom property of an
// external stylesheet, flagged external and attributed to the given path.
func CollectExternalBindings(sheet *parser.Stylesheet, externalPath string) []Binding {
	var out []Binding
	sheet.Walk(func(d *parser.Declaration) {
		if !IsCustomProperty(d.Property) || !IsScopeSelector(d.Selector) {
			return
		}
		out = append(out, Binding{
			Name:       d.Property,
			Value:      d.Value,
			External:   true,
			SourceFile: externalPath,
			Span:       d.Span,
		})
	})
	return out
}

// MergeExternalBindings seeds the binding map with externally collected
// bindings. Later entries overwrite earlier ones, so the caller controls
// precedence through slice order.
func MergeExternalBindings(bindings BindingMap, collected []Binding) {
	for _, b := range collected {
		bindings[b.Name] = b
	}
}
