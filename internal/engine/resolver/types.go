package resolver

import (
	"tokentrace/internal/engine/parser"
)

// ResolutionType describes where a declaration's eventual value originates.
type ResolutionType string

const (
	// ResolutionDirect marks values with no custom-property references.
	ResolutionDirect ResolutionType = "direct"
	// ResolutionLocal marks values fed only by bindings from the same file.
	ResolutionLocal ResolutionType = "local"
	// ResolutionExternal marks values fed only by bindings from other files.
	ResolutionExternal ResolutionType = "external"
	// ResolutionMixed marks values fed by both local and external bindings.
	ResolutionMixed ResolutionType = "mixed"
)

// Binding is a custom-property definition visible to a file's resolution
// pass. Immutable once created.
type Binding struct {
	Name       string      `json:"name"`
	Value      string      `json:"value"`
	External   bool        `json:"isExternal"`
	SourceFile string      `json:"sourceFile,omitempty"`
	Span       parser.Span `json:"sourcePosition"`
}

// BindingMap holds the bindings in scope for one file, keyed by property
// name. Externals are seeded first and locals never overwrite them.
type BindingMap map[string]Binding

// Declaration is a tracked style declaration after trace building and
// classification.
type Declaration struct {
	Property              string            `json:"property"`
	Value                 string            `json:"value"`
	Span                  parser.Span       `json:"sourcePosition"`
	ResolutionTrace       []string          `json:"resolutionTrace"`
	ContainsDesignToken   bool              `json:"containsDesignToken"`
	ContainsExcludedValue bool              `json:"containsExcludedValue"`
	ResolutionType        ResolutionType    `json:"resolutionType"`
	ResolutionSources     []string          `json:"resolutionSources,omitempty"`
	UnresolvedVariables   []string          `json:"unresolvedVariables,omitempty"`
	ResolvedFrom          map[string]string `json:"resolvedFrom,omitempty"`
}

// UnresolvedVariable is one report entry for a name that was referenced but
// never defined anywhere in the run.
type UnresolvedVariable struct {
	VariableName string   `json:"variableName"`
	FileCount    int      `json:"fileCount"`
	Files        []string `json:"files"`
}
