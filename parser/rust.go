package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

type RustParser struct {
	BaseParser
}

// NewRustParser creates a new Rust language parser using tree-sitter
func NewRustParser() (*RustParser, error) {
	parser := sitter.NewParser()
	language := rust.GetLanguage()
	parser.SetLanguage(language)

	return &RustParser{
		BaseParser: BaseParser{
			parser:   parser,
			language: language,
			langName: "rust",
		},
	}, nil
}

func (p *RustParser) Close() {
}

// ParseFile parses a Rust source file and returns the parse result
func (p *RustParser) ParseFile(filePath string) (*ParseResult, error) {
	return p.ParseFileGeneric(filePath)
}

// ParseBytes parses already-loaded Rust source
func (p *RustParser) ParseBytes(filePath string, source []byte) (*ParseResult, error) {
	return p.ParseBytesGeneric(filePath, source)
}
