package parser

import (
	"strings"
	"testing"

	"tokentrace/internal/core/errors"
)

func TestParseFileCSS(t *testing.T) {
	source := `:root {
  --color-accent: #ff4800;
  --spacing-m: 16px;
}

.button, .card {
  color: var(--color-accent);
  padding: var(--spacing-m) 8px;
}
`
	p := NewParser()
	sheet, err := p.ParseFile("styles/app.css", []byte(source))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sheet.Language != "css" {
		t.Fatalf("expected language css, got %s", sheet.Language)
	}
	if len(sheet.Declarations) != 4 {
		t.Fatalf("expected 4 declarations, got %d: %+v", len(sheet.Declarations), sheet.Declarations)
	}

	first := sheet.Declarations[0]
	if first.Property != "--color-accent" {
		t.Errorf("expected property --color-accent, got %q", first.Property)
	}
	if first.Value != "#ff4800" {
		t.Errorf("expected trimmed value #ff4800, got %q", first.Value)
	}
	if first.Selector != ":root" {
		t.Errorf("expected selector :root, got %q", first.Selector)
	}
	if first.Span.Start.Line != 2 {
		t.Errorf("expected declaration on line 2, got %d", first.Span.Start.Line)
	}

	color := sheet.Declarations[2]
	if color.Property != "color" || color.Value != "var(--color-accent)" {
		t.Errorf("unexpected declaration %+v", color)
	}
	if color.Selector != ".button, .card" {
		t.Errorf("expected multi selector preserved, got %q", color.Selector)
	}

	padding := sheet.Declarations[3]
	if padding.Value != "var(--spacing-m) 8px" {
		t.Errorf("expected compound value, got %q", padding.Value)
	}
}

func TestParseFileCSSNestedAtRules(t *testing.T) {
	source := `@media (min-width: 600px) {
  .card {
    border-color: var(--color-border);
  }
}

@keyframes spin {
  from {
    color: red;
  }
}
`
	p := NewParser()
	sheet, err := p.ParseFile("styles/responsive.css", []byte(source))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(sheet.Declarations) != 2 {
		t.Fatalf("expected 2 declarations, got %d: %+v", len(sheet.Declarations), sheet.Declarations)
	}

	card := sheet.Declarations[0]
	if card.Selector != ".card" {
		t.Errorf("expected .card selector under media query, got %q", card.Selector)
	}

	frame := sheet.Declarations[1]
	if frame.Property != "color" {
		t.Errorf("expected keyframe declaration captured, got %+v", frame)
	}
}

func TestParseFileCSSSelectorRestoredAfterRule(t *testing.T) {
	source := `.outer { color: red; }
:root { --x: 1px; }
.after { color: blue; }
`
	p := NewParser()
	sheet, err := p.ParseFile("s.css", []byte(source))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	selectors := make([]string, 0, len(sheet.Declarations))
	for _, d := range sheet.Declarations {
		selectors = append(selectors, d.Selector)
	}
	want := []string{".outer", ":root", ".after"}
	for i, sel := range want {
		if selectors[i] != sel {
			t.Fatalf("expected selectors %v, got %v", want, selectors)
		}
	}
}

func TestParseFileHTML(t *testing.T) {
	source := `<html>
<head>
<style>
:root {
  --color-bg: #fff;
}
</style>
</head>
<body><p>hi</p></body>
</html>
`
	p := NewParser()
	sheet, err := p.ParseFile("pages/index.html", []byte(source))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sheet.Language != "html" {
		t.Fatalf("expected language html, got %s", sheet.Language)
	}
	if len(sheet.Declarations) != 1 {
		t.Fatalf("expected 1 embedded declaration, got %d", len(sheet.Declarations))
	}

	decl := sheet.Declarations[0]
	if decl.Property != "--color-bg" || decl.Selector != ":root" {
		t.Errorf("unexpected embedded declaration %+v", decl)
	}
	// Raw text starts on the <style> line itself, so the fragment's line 3
	// lands on document line 5.
	if decl.Span.Start.Line != 5 {
		t.Errorf("expected embedded declaration rebased to line 5, got %d", decl.Span.Start.Line)
	}
}

func TestParseFileHTMLWithoutStyles(t *testing.T) {
	p := NewParser()
	sheet, err := p.ParseFile("pages/empty.html", []byte("<html><body></body></html>"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(sheet.Declarations) != 0 {
		t.Fatalf("expected no declarations, got %d", len(sheet.Declarations))
	}
}

func TestParseFileUnsupported(t *testing.T) {
	p := NewParser()
	_, err := p.ParseFile("main.go", []byte("package main"))
	if err == nil {
		t.Fatal("expected error for unsupported path")
	}
	if !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED, got %v", err)
	}
}

func TestSupportedExtensions(t *testing.T) {
	p := NewParser()
	exts := p.SupportedExtensions()
	joined := strings.Join(exts, ",")
	for _, want := range []string{".css", ".htm", ".html"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %s in supported extensions %v", want, exts)
		}
	}
	if !p.IsSupportedPath("a/b/c.CSS") {
		t.Error("expected case-insensitive extension detection")
	}
	if p.IsSupportedPath("a/b/c.scss") {
		t.Error("expected .scss to be unsupported")
	}
}

func TestStylesheetWalk(t *testing.T) {
	sheet := &Stylesheet{Declarations: []Declaration{
		{Property: "color"},
		{Property: "margin"},
	}}
	var visited []string
	sheet.Walk(func(d *Declaration) {
		visited = append(visited, d.Property)
	})
	if len(visited) != 2 || visited[0] != "color" || visited[1] != "margin" {
		t.Fatalf("unexpected walk order %v", visited)
	}
}
