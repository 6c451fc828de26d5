package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"tokentrace/internal/core/errors"
	"tokentrace/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
)

var (
	cssLanguage  = sitter.NewLanguage(tree_sitter_css.Language())
	htmlLanguage = sitter.NewLanguage(tree_sitter_html.Language())
)

// Parser turns stylesheet sources into walkable Stylesheet values. CSS files
// parse directly; HTML files contribute the declarations of their embedded
// <style> elements.
type Parser struct {
	extractors map[string]Extractor
	languages  map[string]*sitter.Language
	extensions map[string]string
}

type Extractor interface {
	Extract(root *sitter.Node, source []byte, filePath string) (*Stylesheet, error)
}

func NewParser() *Parser {
	css := &CSSExtractor{}
	return &Parser{
		extractors: map[string]Extractor{
			"css":  css,
			"html": &HTMLExtractor{css: css},
		},
		languages: map[string]*sitter.Language{
			"css":  cssLanguage,
			"html": htmlLanguage,
		},
		extensions: map[string]string{
			".css":  "css",
			".html": "html",
			".htm":  "html",
		},
	}
}

func (p *Parser) ParseFile(path string, content []byte) (*Stylesheet, error) {
	lang := p.detectLanguage(path)
	if lang == "" {
		return nil, errors.New(errors.CodeNotSupported, "unsupported stylesheet source")
	}

	extractor := p.extractors[lang]
	if extractor == nil {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("no extractor for: %s", lang))
	}
	grammar := p.languages[lang]
	if grammar == nil {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, "parse failed")
	}
	defer tree.Close()

	sheet, err := extractor.Extract(tree.RootNode(), content, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "extraction failed")
	}
	return sheet, nil
}

func (p *Parser) detectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return p.extensions[ext]
}

func (p *Parser) GetLanguage(path string) string {
	return p.detectLanguage(path)
}

func (p *Parser) IsSupportedPath(filePath string) bool {
	return p.detectLanguage(filePath) != ""
}

func (p *Parser) SupportedExtensions() []string {
	return util.SortedStringKeys(p.extensions)
}
