// Package moodle serializes quiz questions to the Moodle XML quiz
// format, an XML document Moodle imports into a question pool.
package moodle

import (
	"bytes"
	"strconv"

	"github.com/quizmark/quizmark/core/encoding"
	"github.com/quizmark/quizmark/core/quiz"
)

const xmlHeader = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"

// Fixed per-question defaults Moodle expects: total points when the
// question is added to a quiz, and the penalty per incorrect try when
// multiple tries are allowed.
const (
	defaultGrade   = "1.0000000"
	defaultPenalty = "0.3333333"
)

// element is one node of the output tree. An element carries either text
// or child elements, never both.
type element struct {
	name     string
	attrs    []attribute
	text     string
	children []*element
}

type attribute struct {
	name  string
	value string
}

func newElement(name string, children ...*element) *element {
	return &element{name: name, children: children}
}

func textElement(name, text string) *element {
	return &element{name: name, text: text}
}

func (e *element) withAttr(name, value string) *element {
	e.attrs = append(e.attrs, attribute{name: name, value: value})
	return e
}

func (e *element) add(children ...*element) {
	e.children = append(e.children, children...)
}

// Render serializes questions into one quiz document. Every question is
// validated first; an invalid question fails the whole document.
func Render(questions []quiz.Question) ([]byte, error) {
	root := newElement("quiz")
	for i := range questions {
		q := &questions[i]
		if err := q.Validate(); err != nil {
			return nil, err
		}
		root.add(questionElement(q))
	}

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	writeElement(&buf, root, 0)
	return buf.Bytes(), nil
}

// questionElement builds the fixed child sequence every question shares,
// then the type-specific tail.
func questionElement(q *quiz.Question) *element {
	question := newElement("question",
		newElement("name", textElement("text", q.Name)),
		newElement("questiontext", textElement("text", q.Text)).withAttr("format", "html"),
		textElement("defaultgrade", defaultGrade),
		textElement("penalty", defaultPenalty),
		textElement("hidden", "0"),
		tagsElement(q.Tags),
	).withAttr("type", string(q.Type))

	switch q.Type {
	case quiz.TypeMultichoice:
		question.add(
			textElement("shuffleanswers", strconv.FormatBool(q.ShuffleAnswers)),
			textElement("single", strconv.FormatBool(q.Choice.Single())),
			textElement("answernumbering", string(q.Numbering)),
		)
		question.add(answerElements(q.Answers)...)
	case quiz.TypeMatching:
		question.add(textElement("shuffleanswers", strconv.FormatBool(q.ShuffleAnswers)))
		for _, sub := range q.SubQuestions {
			question.add(newElement("subquestion",
				textElement("text", sub.Text),
				newElement("answer", textElement("text", sub.Answer.Text)),
			).withAttr("format", "html"))
		}
	default:
		// shortanswer and numerical share the answer branch
		question.add(answerElements(q.Answers)...)
	}

	return question
}

func answerElements(answers []quiz.Answer) []*element {
	elements := make([]*element, 0, len(answers))
	for _, a := range answers {
		elements = append(elements, newElement("answer",
			textElement("text", a.Text),
		).withAttr("fraction", formatFraction(a.Fraction)).withAttr("format", "html"))
	}
	return elements
}

// tagsElement emits the tags container even when empty, duplicates and
// order preserved.
func tagsElement(tags []string) *element {
	container := newElement("tags")
	for _, tag := range tags {
		container.add(newElement("tag", textElement("text", tag)))
	}
	return container
}

// formatFraction renders a percentage-scale fraction with the shortest
// decimal representation that round-trips.
func formatFraction(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// writeElement writes one element with two-space indentation. Text
// content is escaped here and nowhere else in the pipeline: the rendered
// stem HTML passes through the transformer unescaped and gets entity
// encoded exactly once on the way out.
func writeElement(w *bytes.Buffer, e *element, depth int) {
	writeIndent(w, depth)
	w.WriteString("<")
	w.WriteString(e.name)
	for _, a := range e.attrs {
		w.WriteString(" ")
		w.WriteString(a.name)
		w.WriteString("=\"")
		w.WriteString(encoding.EscapeXMLAttr(a.value))
		w.WriteString("\"")
	}

	if len(e.children) == 0 && e.text == "" {
		w.WriteString("/>\n")
		return
	}

	w.WriteString(">")
	if len(e.children) > 0 {
		w.WriteString("\n")
		for _, child := range e.children {
			writeElement(w, child, depth+1)
		}
		writeIndent(w, depth)
	} else {
		w.WriteString(encoding.EscapeXMLText(e.text))
	}
	w.WriteString("</")
	w.WriteString(e.name)
	w.WriteString(">\n")
}

func writeIndent(w *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		w.WriteString("  ")
	}
}
