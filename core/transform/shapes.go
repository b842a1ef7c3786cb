package transform

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"

	"github.com/quizmark/quizmark/core/errors"
	"github.com/quizmark/quizmark/core/markup"
	"github.com/quizmark/quizmark/core/quiz"
)

// resolveMultichoice fills the draft from a checkbox list. Each correct
// answer contributes 100/C percent. Wrong answers score 0 when the
// question collapses to single choice, otherwise -100/W each.
func (t *Transformer) resolveMultichoice(source []byte, list *ast.List, q *quiz.Question) error {
	var (
		answers  []quiz.Answer
		corrects []bool
		numCorrect,
		numWrong int
	)

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if err := checkItemParagraph(item, ShapeMultichoice); err != nil {
			return err
		}

		html, err := t.md.RenderListItem(source, item)
		if err != nil {
			return err
		}

		var correct bool
		switch {
		case strings.HasPrefix(html, "[ ] "):
			correct = false
			numWrong++
		case strings.HasPrefix(html, "[x] "):
			correct = true
			numCorrect++
		default:
			return errors.NewShape(ShapeMultichoice.String(),
				"list items are expected to start with `[ ]` or `[x]`")
		}

		answers = append(answers, quiz.Answer{Text: html[4:]})
		corrects = append(corrects, correct)
	}

	if numCorrect == 0 {
		return errors.NewShape(ShapeMultichoice.String(), "needs at least one correct answer")
	}

	correctFraction := 100.0 / float64(numCorrect)
	var wrongFraction float64
	if numWrong > 0 {
		if numCorrect == 1 {
			if q.Choice != quiz.ChoiceForcedMulti {
				q.Choice = quiz.ChoiceSingle
			}
			wrongFraction = 0
		} else {
			wrongFraction = -100.0 / float64(numWrong)
		}
	}

	for i := range answers {
		if corrects[i] {
			answers[i].Fraction = correctFraction
		} else {
			answers[i].Fraction = wrongFraction
		}
	}

	q.Type = quiz.TypeMultichoice
	q.Tags = append(q.Tags, t.cfg.MultichoiceTags...)
	q.Answers = answers
	return nil
}

// resolveEnumeratedMatching turns an ordered list into matching pairs
// keyed by each item's leader label exactly as authored, so repeated
// "1." leaders stay "1.". Shuffling an enumeration would destroy its
// meaning, so it is forced off.
func (t *Transformer) resolveEnumeratedMatching(source []byte, list *ast.List, q *quiz.Question) error {
	start := list.Start
	if start == 0 {
		start = 1
	}

	var subs []quiz.SubQuestion
	i := 0
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		html, err := t.md.RenderListItem(source, item)
		if err != nil {
			return err
		}
		leader := markup.ItemLeader(source, item)
		if leader == "" {
			leader = fmt.Sprintf("%d%c", start+i, list.Marker)
		}
		subs = append(subs, quiz.SubQuestion{
			Text:   leader,
			Answer: quiz.Answer{Text: html},
		})
		i++
	}

	q.Type = quiz.TypeMatching
	q.Tags = append(q.Tags, t.cfg.MatchingTags...)
	q.SubQuestions = subs
	q.ShuffleAnswers = false
	return nil
}

// resolveAssociativeMatching splits each item on the configured
// separator. The left half keeps its surrounding whitespace, only the
// right half is left-trimmed.
func (t *Transformer) resolveAssociativeMatching(source []byte, list *ast.List, q *quiz.Question) error {
	sep := t.cfg.MatchingSeparator

	var subs []quiz.SubQuestion
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if err := checkItemParagraph(item, ShapeAssociativeMatching); err != nil {
			return err
		}

		html, err := t.md.RenderListItem(source, item)
		if err != nil {
			return err
		}

		idx := strings.Index(html, sep)
		if idx < 0 {
			return errors.NewShape(ShapeAssociativeMatching.String(),
				fmt.Sprintf("list item does not contain the separator %q", sep))
		}

		key := html[:idx]
		value := strings.TrimLeftFunc(html[idx+len(sep):], unicode.IsSpace)
		subs = append(subs, quiz.SubQuestion{
			Text:   key,
			Answer: quiz.Answer{Text: value},
		})
	}

	q.Type = quiz.TypeMatching
	q.Tags = append(q.Tags, t.cfg.MatchingTags...)
	q.SubQuestions = subs
	return nil
}

// resolveShortAnswer handles a single-item list. An all-digit answer
// makes the question numerical, anything else is a short answer.
func (t *Transformer) resolveShortAnswer(source []byte, list *ast.List, q *quiz.Question) error {
	html, err := t.md.RenderListItem(source, list.FirstChild())
	if err != nil {
		return err
	}

	q.Answers = []quiz.Answer{{Text: html, Fraction: 100}}
	if isAllDigits(html) {
		q.Type = quiz.TypeNumerical
		q.Tags = append(q.Tags, t.cfg.NumericalTags...)
	} else {
		q.Type = quiz.TypeShortAnswer
		q.Tags = append(q.Tags, t.cfg.ShortAnswerTags...)
	}
	return nil
}

// checkItemParagraph enforces the one-paragraph-per-item rule the
// multichoice and associative resolvers share.
func checkItemParagraph(item ast.Node, shape Shape) error {
	if item.ChildCount() < 1 {
		return errors.NewShape(shape.String(), "list item has no text")
	}
	if item.ChildCount() > 1 {
		return errors.NewShape(shape.String(), "list item has multiple paragraphs, only one is allowed")
	}
	if item.FirstChild().ChildCount() < 1 {
		return errors.NewShape(shape.String(), "list item has no text")
	}
	return nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
