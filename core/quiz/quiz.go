// Package quiz defines the question model shared by the Markdown
// transformer and the Moodle XML serializer. All pipeline stages should
// import these types from core/quiz rather than defining their own.
package quiz

// Type identifies the Moodle question type a Question serializes to.
type Type string

// Question type constants. The values are the Moodle XML type attributes.
const (
	TypeMultichoice Type = "multichoice"
	TypeMatching    Type = "matching"
	TypeShortAnswer Type = "shortanswer"
	TypeNumerical   Type = "numerical"

	// TypeUnknown marks a question draft whose answer list has not been
	// resolved yet. It never appears in serializer input.
	TypeUnknown Type = ""
)

// validTypes is the set of resolvable question types.
var validTypes = map[Type]bool{
	TypeMultichoice: true,
	TypeMatching:    true,
	TypeShortAnswer: true,
	TypeNumerical:   true,
}

// IsValid returns true if the type is a resolved, serializable type.
func (t Type) IsValid() bool {
	return validTypes[t]
}

// Numbering is the answer numbering scheme for choice questions.
// The values are the literal tokens Moodle understands.
type Numbering string

// Numbering scheme constants.
const (
	NumberingLowerAlpha Numbering = "abc"  // a., b., c.
	NumberingUpperAlpha Numbering = "ABC"  // A., B., C.
	NumberingDigits     Numbering = "123"  // 1., 2., 3.
	NumberingLowerRoman Numbering = "iii"  // i., ii., iii.
	NumberingUpperRoman Numbering = "IIII" // I., II., III.
)

// validNumberings is the set of accepted numbering tokens.
var validNumberings = map[Numbering]bool{
	NumberingLowerAlpha: true,
	NumberingUpperAlpha: true,
	NumberingDigits:     true,
	NumberingLowerRoman: true,
	NumberingUpperRoman: true,
}

// IsValid returns true if the numbering token is one Moodle accepts.
func (n Numbering) IsValid() bool {
	return validNumberings[n]
}

// NumberingTokens returns the accepted numbering tokens in display order.
func NumberingTokens() []Numbering {
	return []Numbering{
		NumberingLowerAlpha,
		NumberingUpperAlpha,
		NumberingDigits,
		NumberingLowerRoman,
		NumberingUpperRoman,
	}
}

// ChoiceMode is the single/multiple selection state of a multichoice
// question. It is a tri-state: the resolver may infer single-choice from
// the answer counts, but a force-multi directive pins the question to
// multiple selection and wins over any later inference.
type ChoiceMode int

const (
	// ChoiceMulti is the default: multiple answers may be selected.
	ChoiceMulti ChoiceMode = iota
	// ChoiceSingle restricts selection to one answer. Inferred when a
	// question has exactly one correct and at least one wrong answer.
	ChoiceSingle
	// ChoiceForcedMulti is set by a force-multi directive. Unlike
	// ChoiceMulti it is never upgraded to ChoiceSingle.
	ChoiceForcedMulti
)

// Single reports whether the question serializes with single selection.
func (m ChoiceMode) Single() bool {
	return m == ChoiceSingle
}

// Answer is one selectable or expected answer of a Question.
type Answer struct {
	// Text is the answer body as rendered HTML.
	Text string `json:"text"`

	// Fraction is the percentage-scale contribution of this answer to
	// the question score, in [-100, 100]. Meaningful only after the
	// owning question's answer list has been resolved.
	Fraction float64 `json:"fraction"`
}

// SubQuestion is one key/answer pair of a matching Question.
type SubQuestion struct {
	// Text is the prompt side of the pair as rendered HTML.
	Text string `json:"text"`

	// Answer is the single correct answer for this prompt.
	Answer Answer `json:"answer"`
}

// Question is one quiz question in object form. A Question is built up
// incrementally by the transformer and consumed once by the serializer.
type Question struct {
	// Name is the short human-readable identifier, either taken from a
	// level-2 heading or synthesized from the stem text.
	Name string `json:"name"`

	// Text is the question stem as rendered HTML, accumulated across
	// stem paragraphs and supplementary code blocks.
	Text string `json:"text"`

	// Type is resolved when the answer list is classified.
	Type Type `json:"type"`

	// Tags are emitted in order; duplicates are preserved.
	Tags []string `json:"tags,omitempty"`

	// ShuffleAnswers applies to answers and subquestions alike.
	ShuffleAnswers bool `json:"shuffle_answers"`

	// Numbering is the answer numbering scheme (multichoice only).
	Numbering Numbering `json:"numbering"`

	// Choice is the selection mode (multichoice only).
	Choice ChoiceMode `json:"choice"`

	// Answers is populated for multichoice, shortanswer and numerical
	// questions.
	Answers []Answer `json:"answers,omitempty"`

	// SubQuestions is populated for matching questions.
	SubQuestions []SubQuestion `json:"subquestions,omitempty"`
}

// Validate checks the resolved-question invariant: the type is known and
// exactly the answer shape matching the type is populated.
func (q *Question) Validate() error {
	if !q.Type.IsValid() {
		return &InvalidQuestionError{Name: q.Name, Reason: "unresolved question type"}
	}
	switch q.Type {
	case TypeMatching:
		if len(q.SubQuestions) == 0 {
			return &InvalidQuestionError{Name: q.Name, Reason: "matching question has no subquestions"}
		}
		if len(q.Answers) != 0 {
			return &InvalidQuestionError{Name: q.Name, Reason: "matching question carries answers"}
		}
	default:
		if len(q.Answers) == 0 {
			return &InvalidQuestionError{Name: q.Name, Reason: "question has no answers"}
		}
		if len(q.SubQuestions) != 0 {
			return &InvalidQuestionError{Name: q.Name, Reason: "non-matching question carries subquestions"}
		}
	}
	return nil
}

// InvalidQuestionError reports a Question that violates the model
// invariants.
type InvalidQuestionError struct {
	Name   string
	Reason string
}

func (e *InvalidQuestionError) Error() string {
	if e.Name != "" {
		return "invalid question " + e.Name + ": " + e.Reason
	}
	return "invalid question: " + e.Reason
}
