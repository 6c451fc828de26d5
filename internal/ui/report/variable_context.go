package report

import (
	"bytes"
	"strings"
)

const contextRadius = 5 // ±5 lines around each occurrence

// VariableContext is the response returned by GetVariableContext.
type VariableContext struct {
	// Variable is the queried custom-property name.
	Variable string
	// File is the stylesheet that was searched.
	File string
	// Snippets are each individual occurrence found in the file.
	Snippets []Snippet
}

// Snippet represents a single occurrence of a custom property with
// surrounding context.
type Snippet struct {
	// Line is the 1-indexed line number of the occurrence.
	Line int
	// Declaration marks occurrences on the left side of a declaration
	// (`--name:`), as opposed to var() references.
	Declaration bool
	// Context is the surrounding source lines, centred on the match.
	// Each entry has the format "<linenum>: <source>".
	Context []string
}

// GetVariableContext scans stylesheet content for occurrences of a custom
// property and returns each occurrence with ±contextRadius lines of
// surrounding source. The search is plain text on ident boundaries, so
// "--brand" never matches "--brand-dark".
func GetVariableContext(variable, filePath string, content []byte) VariableContext {
	ctx := VariableContext{Variable: variable, File: filePath}
	if variable == "" || len(content) == 0 {
		return ctx
	}
	if !strings.HasPrefix(variable, "--") {
		variable = "--" + variable
		ctx.Variable = variable
	}

	lines := splitLines(content)
	for i, line := range lines {
		if !containsVariable(line, variable) {
			continue
		}
		lineNum := i + 1 // convert to 1-indexed
		ctx.Snippets = append(ctx.Snippets, Snippet{
			Line:        lineNum,
			Declaration: isDeclarationLine(line, variable),
			Context:     buildContext(lines, i, contextRadius),
		})
	}
	return ctx
}

// containsVariable returns true if line contains the property name on ident
// boundaries. Hyphens count as ident characters, which is what keeps
// prefix-sharing names apart.
func containsVariable(line, variable string) bool {
	for start := 0; ; {
		idx := strings.Index(line[start:], variable)
		if idx < 0 {
			return false
		}
		idx += start
		before := idx > 0 && isIdentChar(rune(line[idx-1]))
		afterIdx := idx + len(variable)
		after := afterIdx < len(line) && isIdentChar(rune(line[afterIdx]))
		if !before && !after {
			return true
		}
		start = idx + len(variable)
	}
}

// isDeclarationLine reports whether the first boundary match on the line is
// followed by a colon, i.e. the property is being defined rather than read.
func isDeclarationLine(line, variable string) bool {
	idx := strings.Index(line, variable)
	if idx < 0 {
		return false
	}
	rest := strings.TrimLeft(line[idx+len(variable):], " \t")
	return strings.HasPrefix(rest, ":")
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-'
}

// buildContext returns ±radius lines around the hit, formatted as
// "<linenum>: <source>".
func buildContext(lines []string, hitIdx, radius int) []string {
	start := hitIdx - radius
	if start < 0 {
		start = 0
	}
	end := hitIdx + radius + 1
	if end > len(lines) {
		end = len(lines)
	}

	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		// Use a fixed-width line number so snippets align nicely.
		out = append(out, formatContextLine(i+1, lines[i]))
	}
	return out
}

// formatContextLine returns a "<linenum>: <source>" string.
func formatContextLine(lineNum int, source string) string {
	var b strings.Builder
	b.Grow(8 + len(source))
	// Write up to 6-digit line numbers, right-aligned.
	lineStr := formatLineNum(lineNum)
	b.WriteString(lineStr)
	b.WriteString(": ")
	b.WriteString(source)
	return b.String()
}

func formatLineNum(n int) string {
	s := strings.Repeat(" ", 6)
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if len(digits) == 0 {
		digits = []byte{'0'}
	}
	pad := 6 - len(digits)
	if pad < 0 {
		pad = 0
	}
	return s[:pad] + string(digits)
}

// splitLines splits content on newlines, preserving empty lines.
func splitLines(content []byte) []string {
	raw := bytes.Split(content, []byte("\n"))
	lines := make([]string, len(raw))
	for i, b := range raw {
		lines[i] = string(b)
	}
	// Trim trailing empty line that Split adds for a final newline.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
