package markup

import (
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Directive is an inline @key=value span. The recognizer only extracts
// the token; interpretation belongs to the transformer. Anywhere else the
// renderer echoes the directive back as literal text.
type Directive struct {
	ast.BaseInline

	// Key is everything between '@' and '='.
	Key string
	// Value is the run of non-whitespace, non-'=' characters after '='.
	Value string
}

// KindDirective is the node kind of the inline directive span.
var KindDirective = ast.NewNodeKind("QuizDirective")

// Kind implements ast.Node.
func (n *Directive) Kind() ast.NodeKind {
	return KindDirective
}

// Dump implements ast.Node.
func (n *Directive) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Key":   n.Key,
		"Value": n.Value,
	}, nil)
}

// DirectivesIn returns the directive spans among the direct inline
// children of a block, in source order. Directives nested inside other
// inline constructs are deliberately not collected.
func DirectivesIn(n ast.Node) []*Directive {
	var out []*Directive
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if d, ok := c.(*Directive); ok {
			out = append(out, d)
		}
	}
	return out
}

// directivePattern matches @key=value at the parser position: key is
// any run of characters up to '=', value is non-whitespace and non-'='.
var directivePattern = regexp.MustCompile(`^@([^=\r\n]+)=([^\s=]+)`)

type directiveParser struct{}

func (p *directiveParser) Trigger() []byte {
	return []byte{'@'}
}

func (p *directiveParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	m := directivePattern.FindSubmatchIndex(line)
	if m == nil {
		return nil
	}
	d := &Directive{
		Key:   string(line[m[2]:m[3]]),
		Value: string(line[m[4]:m[5]]),
	}
	block.Advance(m[1])
	return d
}

type directiveExtension struct{}

// DirectiveExtension registers the @key=value inline span with a goldmark
// parser and renderer.
var DirectiveExtension goldmark.Extender = &directiveExtension{}

func (e *directiveExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(util.Prioritized(&directiveParser{}, 150)),
	)
}
