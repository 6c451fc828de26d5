package parser

import (
	"fmt"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// HTMLExtractor collects the declarations of every <style> element in an
// HTML document by re-parsing each element's raw text as CSS. Positions are
// rebased onto the containing document.
type HTMLExtractor struct {
	css *CSSExtractor
}

func (e *HTMLExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*Stylesheet, error) {
	sheet := &Stylesheet{
		Path:     filePath,
		Language: "html",
		ParsedAt: time.Now(),
	}

	ctx := &ExtractionContext{Source: source, Sheet: sheet}
	ctx.Engine = NewExtractorEngine(map[string]NodeHandler{
		"style_element": e.extractStyleElement,
	})
	ctx.Engine.Walk(ctx, root)

	return sheet, nil
}

func (e *HTMLExtractor) extractStyleElement(ctx *ExtractionContext, node *sitter.Node) bool {
	raw := ctx.ChildOfKind(node, "raw_text")
	if raw == nil {
		return true
	}

	cssSource := []byte(ctx.Text(raw))
	cssParser := sitter.NewParser()
	defer cssParser.Close()
	cssParser.SetLanguage(cssLanguage)

	tree := cssParser.Parse(cssSource, nil)
	if tree == nil {
		ctx.Sheet.Warnings = append(ctx.Sheet.Warnings,
			fmt.Sprintf("style element at line %d could not be parsed", int(raw.StartPosition().Row)+1))
		return true
	}
	defer tree.Close()

	embedded, err := e.css.Extract(tree.RootNode(), cssSource, ctx.Sheet.Path)
	if err != nil {
		ctx.Sheet.Warnings = append(ctx.Sheet.Warnings,
			fmt.Sprintf("style element at line %d: %v", int(raw.StartPosition().Row)+1, err))
		return true
	}

	rowOffset := int(raw.StartPosition().Row)
	colOffset := int(raw.StartPosition().Column)
	for _, decl := range embedded.Declarations {
		decl.Span = rebaseSpan(decl.Span, rowOffset, colOffset)
		ctx.Sheet.Declarations = append(ctx.Sheet.Declarations, decl)
	}
	ctx.Sheet.Warnings = append(ctx.Sheet.Warnings, embedded.Warnings...)
	return true
}

// rebaseSpan shifts fragment-relative positions onto the host document.
// Columns shift only on the fragment's first line.
func rebaseSpan(s Span, rowOffset, colOffset int) Span {
	rebase := func(l Location) Location {
		if l.Line == 1 {
			l.Column += colOffset
		}
		l.Line += rowOffset
		return l
	}
	return Span{Start: rebase(s.Start), End: rebase(s.End)}
}
