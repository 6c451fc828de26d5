package parser

import "time"

// Location is a 1-based line/column position inside a stylesheet.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span marks the source extent of a declaration.
type Span struct {
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// Declaration is a single property/value pair together with the selector of
// its enclosing rule. The selector is empty for declarations that sit outside
// a rule set (keyframe steps, at-rule bodies).
type Declaration struct {
	Property string
	Value    string
	Selector string
	Span     Span
}

// Stylesheet is the flattened, position-annotated view of one parsed file.
// For HTML sources it contains the declarations of every embedded
// <style> element.
type Stylesheet struct {
	Path         string
	Language     string
	Declarations []Declaration
	Warnings     []string
	ParsedAt     time.Time
}

// Walk visits every declaration in document order.
func (s *Stylesheet) Walk(visit func(*Declaration)) {
	for i := range s.Declarations {
		visit(&s.Declarations[i])
	}
}
