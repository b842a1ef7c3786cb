package transform

import "github.com/quizmark/quizmark/core/quiz"

// Config carries the conversion defaults applied to every question a
// document produces. Inline directives override the shuffle and numbering
// defaults per question.
type Config struct {
	// Numbering selects the answer numbering scheme for multiple choice
	// questions.
	Numbering quiz.Numbering

	// ShuffleAnswers is the default shuffle flag. Enumerated matching
	// questions always disable it regardless of this setting.
	ShuffleAnswers bool

	// GeneralTags are appended to every question's tags.
	GeneralTags []string

	// Per-type tags, appended after the general tags once the question
	// type is known.
	MultichoiceTags []string
	MatchingTags    []string
	ShortAnswerTags []string
	NumericalTags   []string

	// MatchingSeparator splits associative matching items into their
	// left and right halves.
	MatchingSeparator string
}

// DefaultConfig returns the conversion defaults used when no config file
// or flags override them.
func DefaultConfig() Config {
	return Config{
		Numbering:         quiz.NumberingLowerAlpha,
		ShuffleAnswers:    true,
		MatchingSeparator: ":",
	}
}
