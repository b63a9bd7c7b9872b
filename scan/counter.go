package scan

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/sofiebrandt/crate-audit/parser"
)

// modDecl is an out-of-line module declaration (`mod foo;`) found in a file,
// together with an explicit #[path] override when one was attached
type modDecl struct {
	name     string
	pathAttr string
}

// fileCounter walks one parsed file and tallies safety-relevant constructs,
// classifying each occurrence as unsafe iff it sits inside an active escape
// scope: an unsafe block, or the body of an unsafe-qualified function
type fileCounter struct {
	source       []byte
	path         string
	includeTests bool

	counters CounterBlock
	forbids  bool
	mods     []modDecl
	warnings []string
}

// countFile tallies a parsed file. includeTests controls whether #[test]
// functions and #[cfg(test)] items contribute to the counts.
func countFile(res *parser.ParseResult, includeTests bool) *fileCounter {
	fc := &fileCounter{
		source:       res.Source,
		path:         res.FilePath,
		includeTests: includeTests,
	}

	root := res.Tree.RootNode()
	fc.forbids = fc.fileForbidsUnsafe(root)
	fc.walk(root, false)
	return fc
}

func (fc *fileCounter) walk(node *sitter.Node, inUnsafe bool) {
	switch node.Type() {
	case "function_item":
		if fc.skipTestItem(node) {
			return
		}
		unsafeFn := inUnsafe || fc.hasUnsafeQualifier(node)
		switch enclosingItemKind(node) {
		case "impl_item":
			fc.counters.Methods.increment(unsafeFn)
		case "trait_item":
			// default trait methods are tallied under the trait declaration
		default:
			fc.counters.Functions.increment(unsafeFn)
		}
		fc.walkChildren(node, unsafeFn)
		return

	case "unsafe_block":
		fc.counters.Exprs.increment(true)
		fc.walkChildren(node, true)
		return

	case "impl_item":
		if fc.skipTestItem(node) {
			return
		}
		fc.counters.ItemImpls.increment(inUnsafe || parser.HasKeywordChild(node, "unsafe"))
		fc.walkChildren(node, inUnsafe)
		return

	case "trait_item":
		if fc.skipTestItem(node) {
			return
		}
		fc.counters.ItemTraits.increment(inUnsafe || parser.HasKeywordChild(node, "unsafe"))
		fc.walkChildren(node, inUnsafe)
		return

	case "mod_item":
		if fc.skipTestItem(node) {
			return
		}
		if body := childOfType(node, "declaration_list"); body != nil {
			fc.walkChildren(body, inUnsafe)
			return
		}
		fc.recordModDecl(node)
		return

	case "macro_invocation":
		// Macro bodies are token soup until expansion; they are counted as a
		// single expression at the invocation site. A body that mentions
		// `unsafe` cannot be attributed further and is surfaced as a warning.
		fc.counters.Exprs.increment(inUnsafe)
		if strings.Contains(parser.NodeText(node, fc.source), "unsafe") {
			fc.warnings = append(fc.warnings,
				fmt.Sprintf("%s: macro invocation mentions unsafe, contents excluded from counts", fc.path))
		}
		return
	}

	if strings.HasSuffix(node.Type(), "_expression") {
		fc.counters.Exprs.increment(inUnsafe)
	}
	fc.walkChildren(node, inUnsafe)
}

func (fc *fileCounter) walkChildren(node *sitter.Node, inUnsafe bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		fc.walk(node.Child(i), inUnsafe)
	}
}

// hasUnsafeQualifier reports whether a function item is declared unsafe
func (fc *fileCounter) hasUnsafeQualifier(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "function_modifiers" &&
			strings.Contains(parser.NodeText(child, fc.source), "unsafe") {
			return true
		}
	}
	return false
}

// skipTestItem reports whether an item carries a test attribute and tests are
// excluded from this scan
func (fc *fileCounter) skipTestItem(node *sitter.Node) bool {
	if fc.includeTests {
		return false
	}
	for _, attr := range precedingAttributes(node) {
		text := parser.NodeText(attr, fc.source)
		if text == "#[test]" || strings.HasSuffix(text, "::test]") || strings.Contains(text, "cfg(test)") {
			return true
		}
	}
	return false
}

// fileForbidsUnsafe reports whether the file declares #![forbid(unsafe_code)]
// at module scope with no local override. Any allow(unsafe_code) attribute in
// the file defeats the directive: override semantics inside nested scopes are
// not supported, so the conservative answer is "not forbidding".
func (fc *fileCounter) fileForbidsUnsafe(root *sitter.Node) bool {
	forbids := false
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "inner_attribute_item" {
			continue
		}
		text := parser.NodeText(child, fc.source)
		if strings.Contains(text, "forbid") && strings.Contains(text, "unsafe_code") {
			forbids = true
		}
	}
	if !forbids {
		return false
	}

	overridden := false
	parser.WalkAST(root, fc.source, func(n *sitter.Node) {
		switch n.Type() {
		case "attribute_item", "inner_attribute_item":
			text := parser.NodeText(n, fc.source)
			if strings.Contains(text, "allow") && strings.Contains(text, "unsafe_code") {
				overridden = true
			}
		}
	})
	return !overridden
}

// recordModDecl captures an out-of-line `mod name;` declaration along with an
// explicit #[path = "..."] attribute when present
func (fc *fileCounter) recordModDecl(node *sitter.Node) {
	name := ""
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "identifier" {
			name = parser.NodeText(child, fc.source)
			break
		}
	}
	if name == "" {
		return
	}

	decl := modDecl{name: name}
	for _, attr := range precedingAttributes(node) {
		text := parser.NodeText(attr, fc.source)
		if !strings.Contains(text, "path") {
			continue
		}
		if explicit := extractPathAttr(text); explicit != "" {
			decl.pathAttr = explicit
		}
	}
	fc.mods = append(fc.mods, decl)
}

// extractPathAttr pulls the string literal out of a #[path = "..."] attribute
func extractPathAttr(text string) string {
	start := strings.Index(text, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(text[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return text[start+1 : start+1+end]
}

// precedingAttributes collects the attribute_item siblings immediately before
// an item; tree-sitter parses outer attributes as separate preceding items
func precedingAttributes(node *sitter.Node) []*sitter.Node {
	var attrs []*sitter.Node
	for sib := node.PrevNamedSibling(); sib != nil && sib.Type() == "attribute_item"; sib = sib.PrevNamedSibling() {
		attrs = append(attrs, sib)
	}
	return attrs
}

// enclosingItemKind reports whether a function item sits inside an impl or
// trait body
func enclosingItemKind(node *sitter.Node) string {
	parent := node.Parent()
	if parent == nil || parent.Type() != "declaration_list" {
		return ""
	}
	grandparent := parent.Parent()
	if grandparent == nil {
		return ""
	}
	return grandparent.Type()
}

func childOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == nodeType {
			return child
		}
	}
	return nil
}
