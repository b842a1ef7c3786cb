package transform

import (
	"github.com/yuin/goldmark/ast"

	"github.com/quizmark/quizmark/core/errors"
	"github.com/quizmark/quizmark/core/markup"
)

// BlockKind is the role a top-level block plays in the question grammar.
type BlockKind int

const (
	// BlockUnknown is a block the grammar does not recognize. It is
	// skipped with a warning.
	BlockUnknown BlockKind = iota
	// BlockTagHeading is a level 1 heading carrying the tag context.
	BlockTagHeading
	// BlockNameHeading is a level 2 heading naming the next question.
	BlockNameHeading
	// BlockIgnoredHeading is a heading deeper than level 2.
	BlockIgnoredHeading
	// BlockStem is a paragraph: the question text.
	BlockStem
	// BlockSupplementary is a code block appended to the question text.
	BlockSupplementary
	// BlockAnswerList is a list that finalizes the pending question.
	BlockAnswerList
)

func (k BlockKind) String() string {
	switch k {
	case BlockTagHeading:
		return "tag heading"
	case BlockNameHeading:
		return "name heading"
	case BlockIgnoredHeading:
		return "ignored heading"
	case BlockStem:
		return "stem"
	case BlockSupplementary:
		return "supplementary text"
	case BlockAnswerList:
		return "answer list"
	default:
		return "unknown"
	}
}

// Shape is the answer shape an answer list resolves to.
type Shape int

const (
	// ShapeNone means the block is not an answer list.
	ShapeNone Shape = iota
	// ShapeMultichoice is an unordered list of checkbox items.
	ShapeMultichoice
	// ShapeEnumeratedMatching is an ordered list.
	ShapeEnumeratedMatching
	// ShapeAssociativeMatching is an unordered list of key/value pairs.
	ShapeAssociativeMatching
	// ShapeShortAnswer is a single-item unordered list.
	ShapeShortAnswer
)

func (s Shape) String() string {
	switch s {
	case ShapeMultichoice:
		return "multichoice"
	case ShapeEnumeratedMatching:
		return "enumerated matching"
	case ShapeAssociativeMatching:
		return "associative matching"
	case ShapeShortAnswer:
		return "short answer"
	default:
		return "answer"
	}
}

// Classify determines the grammatical role of a top-level block. For
// answer lists the shape is decided from surface features only; the
// resolver validates the list's full contents afterwards.
func Classify(source []byte, node ast.Node) (BlockKind, Shape, error) {
	switch n := node.(type) {
	case *ast.Heading:
		switch n.Level {
		case 1:
			return BlockTagHeading, ShapeNone, nil
		case 2:
			return BlockNameHeading, ShapeNone, nil
		default:
			return BlockIgnoredHeading, ShapeNone, nil
		}
	case *ast.Paragraph:
		return BlockStem, ShapeNone, nil
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return BlockSupplementary, ShapeNone, nil
	case *ast.List:
		shape, err := classifyList(source, n)
		return BlockAnswerList, shape, err
	default:
		return BlockUnknown, ShapeNone, nil
	}
}

// classifyList picks the answer shape: ordered lists enumerate matching
// pairs; a single unordered item is a short answer; a leading checkbox
// prefix selects multiple choice; anything else is associative matching.
func classifyList(source []byte, list *ast.List) (Shape, error) {
	if list.IsOrdered() {
		return ShapeEnumeratedMatching, nil
	}

	if list.ChildCount() < 1 {
		return ShapeNone, errors.NewShape("answer", "list is empty")
	}
	first := list.FirstChild()
	if first.ChildCount() < 1 {
		return ShapeNone, errors.NewShape("answer", "list item has no text")
	}

	if list.ChildCount() == 1 {
		return ShapeShortAnswer, nil
	}

	if hasCheckboxPrefix(markup.ItemFirstLine(source, first)) {
		return ShapeMultichoice, nil
	}
	return ShapeAssociativeMatching, nil
}

// hasCheckboxPrefix reports whether a raw item line starts with "[ ] ",
// "[x] " or "[X] ". The multichoice resolver is stricter: it rejects the
// uppercase form, so "[X]" classifies as multichoice and then errors.
func hasCheckboxPrefix(line []byte) bool {
	if len(line) < 4 {
		return false
	}
	if line[0] != '[' || line[2] != ']' || line[3] != ' ' {
		return false
	}
	return line[1] == ' ' || line[1] == 'x' || line[1] == 'X'
}
