package parser

import (
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// CSSExtractor flattens a tree-sitter CSS tree into declarations annotated
// with the selector of their enclosing rule set.
type CSSExtractor struct{}

func (e *CSSExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*Stylesheet, error) {
	sheet := &Stylesheet{
		Path:     filePath,
		Language: "css",
		ParsedAt: time.Now(),
	}

	ctx := &ExtractionContext{Source: source, Sheet: sheet}
	ctx.Engine = NewExtractorEngine(map[string]NodeHandler{
		"rule_set":    e.extractRuleSet,
		"declaration": e.extractDeclaration,
	})
	ctx.Engine.Walk(ctx, root)

	return sheet, nil
}

// extractRuleSet scopes the rule's selector over its block and walks the
// block itself so nested rule sets (at-rule bodies, CSS nesting) restore the
// outer selector afterwards.
func (e *CSSExtractor) extractRuleSet(ctx *ExtractionContext, node *sitter.Node) bool {
	previous := ctx.Selector
	if selectors := ctx.ChildOfKind(node, "selectors"); selectors != nil {
		ctx.Selector = strings.TrimSpace(ctx.Text(selectors))
	}

	if block := ctx.ChildOfKind(node, "block"); block != nil {
		ctx.Engine.Walk(ctx, block)
	}

	ctx.Selector = previous
	return true
}

func (e *CSSExtractor) extractDeclaration(ctx *ExtractionContext, node *sitter.Node) bool {
	var property string
	var valueStart uint
	seenColon := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "property_name":
			if property == "" {
				property = strings.TrimSpace(ctx.Text(child))
			}
		case ":":
			if !seenColon {
				seenColon = true
				valueStart = child.EndByte()
			}
		}
	}

	if property == "" || !seenColon {
		return true
	}

	raw := string(ctx.Source[valueStart:node.EndByte()])
	value := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ";"))

	ctx.Sheet.Declarations = append(ctx.Sheet.Declarations, Declaration{
		Property: property,
		Value:    value,
		Selector: ctx.Selector,
		Span:     ctx.Span(node),
	})
	return true
}
