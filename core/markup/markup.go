// Package markup wraps the goldmark Markdown parser behind the small
// surface the question transformer needs: parsing a source file into a
// block tree, rendering blocks and inline spans to HTML in pass-through
// mode (no entity escaping, authors may embed raw HTML), and the inline
// @key=value directive span.
package markup

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Markdown bundles a parser and a pass-through HTML renderer. A single
// Markdown value is safe to reuse across documents.
type Markdown struct {
	md goldmark.Markdown
}

// New creates a Markdown configured with the directive extension and the
// pass-through renderer.
func New() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithRendererOptions(html.WithUnsafe()),
			goldmark.WithExtensions(DirectiveExtension, Passthrough),
		),
	}
}

// Document is a parsed Markdown source with its block tree.
type Document struct {
	Source []byte

	root ast.Node
}

// Parse parses source into a Document.
func (m *Markdown) Parse(source []byte) *Document {
	root := m.md.Parser().Parse(text.NewReader(source))
	return &Document{Source: source, root: root}
}

// Blocks returns the document's top-level blocks in source order.
func (d *Document) Blocks() []ast.Node {
	var blocks []ast.Node
	for c := d.root.FirstChild(); c != nil; c = c.NextSibling() {
		blocks = append(blocks, c)
	}
	return blocks
}

// Render renders a single node (block or inline) to HTML.
func (m *Markdown) Render(source []byte, n ast.Node) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Renderer().Render(&buf, source, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderChildren renders each child of n in order and concatenates the
// results. For a paragraph this yields its inline content without the
// <p> wrapper.
func (m *Markdown) RenderChildren(source []byte, n ast.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := m.md.Renderer().Render(&buf, source, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// RenderListItem renders a list item's content to HTML. When the item
// starts with a paragraph, only that paragraph's inline content is
// rendered, unwrapped; otherwise all child blocks are rendered.
func (m *Markdown) RenderListItem(source []byte, item ast.Node) (string, error) {
	if first := item.FirstChild(); first != nil && IsTextHolder(first) {
		return m.RenderChildren(source, first)
	}
	return m.RenderChildren(source, item)
}

// IsTextHolder reports whether the block node holds inline text directly:
// a paragraph, or the text block goldmark uses inside tight list items.
func IsTextHolder(n ast.Node) bool {
	k := n.Kind()
	return k == ast.KindParagraph || k == ast.KindTextBlock
}

// HeadingText returns a heading's raw text when the heading consists of
// exactly one plain text span, and reports whether it does. Headings with
// emphasis, links or other inline structure are not simple.
func HeadingText(source []byte, heading *ast.Heading) (string, bool) {
	first := heading.FirstChild()
	if first == nil || first.NextSibling() != nil {
		return "", false
	}
	t, ok := first.(*ast.Text)
	if !ok {
		return "", false
	}
	return string(t.Segment.Value(source)), true
}

// ItemFirstLine returns the raw source bytes of the first line of a list
// item's leading text block, or nil if the item does not start with one.
// The classifier uses this to look for the checkbox answer prefix.
func ItemFirstLine(source []byte, item ast.Node) []byte {
	first := item.FirstChild()
	if first == nil || !IsTextHolder(first) {
		return nil
	}
	lines := first.Lines()
	if lines.Len() == 0 {
		return nil
	}
	seg := lines.At(0)
	return seg.Value(source)
}

// ItemLeader returns an ordered list item's leader label exactly as
// authored ("1.", "23)"), recovered from the source bytes between the
// item's line start and its first text segment. Repeated leaders like
// "1. / 1. / 1." come back verbatim, not renumbered. Returns "" when
// the item has no leading text block to anchor on.
func ItemLeader(source []byte, item ast.Node) string {
	first := item.FirstChild()
	if first == nil || !IsTextHolder(first) {
		return ""
	}
	lines := first.Lines()
	if lines.Len() == 0 {
		return ""
	}
	seg := lines.At(0)
	lineStart := bytes.LastIndexByte(source[:seg.Start], '\n') + 1
	return string(bytes.TrimSpace(source[lineStart:seg.Start]))
}
