package coverage

import (
	"math"
	"time"

	"tokentrace/internal/engine/resolver"
)

// NotApplicable is the sentinel percentage for files whose scoring policy
// has no denominator: empty files, or files where every declaration is
// excluded without referencing a token.
const NotApplicable float64 = -1

// Score holds the per-file counters the percentage policy derives from.
type Score struct {
	TokenCount   int
	TrackedCount int
	Percentage   float64
}

// FileResult is the complete analysis outcome for one stylesheet.
type FileResult struct {
	FileIdentifier string                 `json:"fileIdentifier"`
	Language       string                 `json:"language,omitempty"`
	TokenCount     int                    `json:"tokenCount"`
	TrackedCount   int                    `json:"trackedCount"`
	Percentage     float64                `json:"percentage"`
	Declarations   []resolver.Declaration `json:"declarations,omitempty"`
	BindingMap     resolver.BindingMap    `json:"bindingMap,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
	AnalyzedAt     time.Time              `json:"analyzedAt"`
}

// ScoreDeclarations applies the percentage policy to a file's analyzed
// declarations. Declarations that hold an excluded value without referencing
// a token shrink the denominator instead of counting against the score; a
// zero denominator yields the NotApplicable sentinel.
func ScoreDeclarations(decls []resolver.Declaration) Score {
	score := Score{}
	for _, d := range decls {
		if d.ContainsDesignToken {
			score.TokenCount++
			continue
		}
		if d.ContainsExcludedValue {
			score.TrackedCount++
		}
	}

	total := len(decls)
	denominator := total - score.TrackedCount
	if total == 0 || denominator == 0 {
		score.Percentage = NotApplicable
		return score
	}
	score.Percentage = round2(100 / float64(denominator) * float64(score.TokenCount))
	return score
}

// BuildFileResult assembles the analysis outcome for one file, stamping the
// analysis time.
func BuildFileResult(fileIdentifier, language string, decls []resolver.Declaration, bindings resolver.BindingMap, warnings []string) FileResult {
	score := ScoreDeclarations(decls)
	return FileResult{
		FileIdentifier: fileIdentifier,
		Language:       language,
		TokenCount:     score.TokenCount,
		TrackedCount:   score.TrackedCount,
		Percentage:     score.Percentage,
		Declarations:   decls,
		BindingMap:     bindings,
		Warnings:       warnings,
		AnalyzedAt:     time.Now().UTC(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
