// Package transform turns a parsed Markdown document into Moodle quiz
// questions. A small state machine walks the document's top-level blocks:
// level 1 headings set the tag context, level 2 headings name the next
// question, a paragraph opens (or extends) a question draft, code blocks
// extend it, and a list resolves the draft's answers and finalizes it.
package transform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/quizmark/quizmark/core/errors"
	"github.com/quizmark/quizmark/core/markup"
	"github.com/quizmark/quizmark/core/quiz"
	"github.com/quizmark/quizmark/internal/logging"
)

// Directive key aliases. Keys are matched case insensitively.
var (
	shuffleKeys   = []string{"shuffle", "shuffleanswers", "shuffle_answers"}
	numberingKeys = []string{"numbering", "answernumbering"}
	forceKeys     = []string{"force_multi", "force_multiple_choice", "multi"}
)

// Boolean value spellings accepted by the shuffle directive.
var (
	trueWords  = []string{"true", "yes", "1"}
	falseWords = []string{"false", "no", "0"}
)

// htmlTagPattern strips HTML tags and comments when synthesizing a
// question name from rendered stem text.
var htmlTagPattern = regexp.MustCompile(`<!--.*?-->|<[^>]*>`)

// maxSynthesizedNameLen caps the stem excerpt used in synthesized names.
const maxSynthesizedNameLen = 64

// Transformer converts documents to questions. All mutable walk state
// lives in a fresh per-document state value, so one Transformer may be
// reused across documents and a failed document leaves no residue.
type Transformer struct {
	cfg Config
	md  *markup.Markdown
}

// New creates a Transformer with the given configuration.
func New(cfg Config, md *markup.Markdown) *Transformer {
	return &Transformer{cfg: cfg, md: md}
}

// state is the per-document walk state. The ordinal counter numbers
// questions within one document and resets with it.
type state struct {
	questions []quiz.Question
	tags      []string
	draft     *quiz.Question
	ordinal   int
}

// Run converts a parsed document into its questions. Any malformed block
// fails the whole document: a partially converted quiz silently corrupts
// grading semantics, so there is no partial output.
func (t *Transformer) Run(doc *markup.Document) ([]quiz.Question, error) {
	st := &state{ordinal: 1}
	for _, block := range doc.Blocks() {
		if err := t.step(st, doc.Source, block); err != nil {
			return nil, err
		}
	}
	if st.draft != nil {
		logging.Debug("discarding unfinished question draft", "name", st.draft.Name)
	}
	return st.questions, nil
}

func (t *Transformer) step(st *state, source []byte, block ast.Node) error {
	kind, shape, err := Classify(source, block)
	if err != nil {
		// A malformed list with no open draft reports the missing
		// paragraph, not what is wrong inside the list.
		if kind == BlockAnswerList && st.draft == nil {
			return errors.NewStructural("list", "a list was found but there was no paragraph before")
		}
		return err
	}

	switch kind {
	case BlockTagHeading:
		return t.stepTagHeading(st, source, block.(*ast.Heading))
	case BlockNameHeading:
		return t.stepNameHeading(st, source, block.(*ast.Heading))
	case BlockIgnoredHeading:
		logging.BlockWarning("heading", "level too deep, ignored", "level", block.(*ast.Heading).Level)
		return nil
	case BlockStem:
		return t.stepStem(st, source, block)
	case BlockSupplementary:
		return t.stepSupplementary(st, source, block)
	case BlockAnswerList:
		return t.stepAnswerList(st, source, block.(*ast.List), shape)
	default:
		logging.BlockWarning(block.Kind().String(), "unsupported block kind, ignored")
		return nil
	}
}

// stepTagHeading replaces the tag context with the heading's
// comma-separated tag list.
func (t *Transformer) stepTagHeading(st *state, source []byte, heading *ast.Heading) error {
	text, ok := markup.HeadingText(source, heading)
	if !ok {
		logging.BlockWarning("heading", "not using heading for tags because it is not just simple text")
		return nil
	}
	st.tags = splitTags(text)
	return nil
}

// stepNameHeading opens a new empty draft named by the heading. Any
// pending draft is discarded: it never saw an answer list.
func (t *Transformer) stepNameHeading(st *state, source []byte, heading *ast.Heading) error {
	text, ok := markup.HeadingText(source, heading)
	if !ok {
		logging.BlockWarning("heading", "not using heading as question name because it is not just simple text")
		return nil
	}
	if st.draft != nil {
		logging.Debug("discarding unfinished question draft", "name", st.draft.Name)
	}
	st.draft = t.newQuestion(st, strings.TrimSpace(text), "")
	return nil
}

// stepStem renders the paragraph and opens a draft (synthesizing a name
// from the text) or appends to the pending one, then applies any inline
// directives the paragraph carries.
func (t *Transformer) stepStem(st *state, source []byte, block ast.Node) error {
	html, err := t.md.Render(source, block)
	if err != nil {
		return err
	}

	if st.draft == nil {
		st.draft = t.newQuestion(st, t.synthesizeName(st, html), html)
	} else {
		st.draft.Text += html
	}

	for _, d := range markup.DirectivesIn(block) {
		if err := applyDirective(st.draft, d); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transformer) stepSupplementary(st *state, source []byte, block ast.Node) error {
	if st.draft == nil {
		return errors.NewStructural("code block", "must follow a question")
	}
	html, err := t.md.Render(source, block)
	if err != nil {
		return err
	}
	st.draft.Text += html
	return nil
}

// stepAnswerList finalizes the pending draft: the tag context and general
// tags are copied onto it, the shape resolver fills in type, answers and
// type tags, and the finished question joins the output.
func (t *Transformer) stepAnswerList(st *state, source []byte, list *ast.List, shape Shape) error {
	if st.draft == nil {
		return errors.NewStructural("list", "a list was found but there was no paragraph before")
	}

	st.draft.Tags = append(append([]string{}, st.tags...), t.cfg.GeneralTags...)

	var err error
	switch shape {
	case ShapeMultichoice:
		err = t.resolveMultichoice(source, list, st.draft)
	case ShapeEnumeratedMatching:
		err = t.resolveEnumeratedMatching(source, list, st.draft)
	case ShapeAssociativeMatching:
		err = t.resolveAssociativeMatching(source, list, st.draft)
	case ShapeShortAnswer:
		err = t.resolveShortAnswer(source, list, st.draft)
	default:
		err = errors.NewShape(shape.String(), "unresolvable list shape")
	}
	if err != nil {
		return err
	}

	st.questions = append(st.questions, *st.draft)
	st.draft = nil
	return nil
}

// newQuestion creates a draft carrying the configured defaults and
// advances the document's question counter.
func (t *Transformer) newQuestion(st *state, name, text string) *quiz.Question {
	q := &quiz.Question{
		Name:           name,
		Text:           text,
		ShuffleAnswers: t.cfg.ShuffleAnswers,
		Numbering:      t.cfg.Numbering,
	}
	st.ordinal++
	return q
}

// synthesizeName derives a question name from rendered stem text: tags
// stripped, truncated, prefixed with the question number.
func (t *Transformer) synthesizeName(st *state, html string) string {
	text := htmlTagPattern.ReplaceAllString(html, "")
	if runes := []rune(text); len(runes) > maxSynthesizedNameLen {
		text = string(runes[:maxSynthesizedNameLen])
	}
	return fmt.Sprintf("%d. %s", st.ordinal, text)
}

// applyDirective applies one @key=value directive to the draft. The key
// is matched case insensitively; numbering values are case sensitive
// (abc and ABC are distinct schemes) and the force-multi value is
// ignored entirely.
func applyDirective(q *quiz.Question, d *markup.Directive) error {
	key := strings.ToLower(d.Key)

	switch {
	case containsWord(shuffleKeys, key):
		value := strings.ToLower(d.Value)
		switch {
		case containsWord(trueWords, value):
			q.ShuffleAnswers = true
		case containsWord(falseWords, value):
			q.ShuffleAnswers = false
		default:
			return errors.NewDirective(key, d.Value,
				fmt.Sprintf("invalid boolean value %q, use \"true\" or \"false\" instead", d.Value))
		}
	case containsWord(numberingKeys, key):
		numbering := quiz.Numbering(d.Value)
		if !numbering.IsValid() {
			tokens := make([]string, 0, len(quiz.NumberingTokens()))
			for _, token := range quiz.NumberingTokens() {
				tokens = append(tokens, string(token))
			}
			return errors.NewDirective(key, d.Value,
				fmt.Sprintf("invalid value %q, use one of [%s] instead",
					d.Value, strings.Join(tokens, ", ")))
		}
		q.Numbering = numbering
	case containsWord(forceKeys, key):
		q.Choice = quiz.ChoiceForcedMulti
	default:
		return errors.NewDirective(key, d.Value, "unknown directive")
	}
	return nil
}

// splitTags splits a comma-separated tag heading into trimmed tags.
func splitTags(text string) []string {
	parts := strings.Split(text, ",")
	tags := make([]string, len(parts))
	for i, p := range parts {
		tags[i] = strings.TrimSpace(p)
	}
	return tags
}

func containsWord(words []string, w string) bool {
	for _, candidate := range words {
		if candidate == w {
			return true
		}
	}
	return false
}
