package transform

import (
	"reflect"
	"strings"
	"testing"

	"github.com/quizmark/quizmark/core/errors"
	"github.com/quizmark/quizmark/core/markup"
	"github.com/quizmark/quizmark/core/quiz"
)

// convert runs a fresh transformer over one document.
func convert(t *testing.T, cfg Config, source string) ([]quiz.Question, error) {
	t.Helper()
	md := markup.New()
	tr := New(cfg, md)
	return tr.Run(md.Parse([]byte(source)))
}

func mustConvert(t *testing.T, cfg Config, source string) []quiz.Question {
	t.Helper()
	questions, err := convert(t, cfg, source)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return questions
}

func TestSingleChoiceQuestion(t *testing.T) {
	source := `What is the official language of Peru?

- [x] Spanish
- [ ] German
- [ ] Portuguese
`
	questions := mustConvert(t, DefaultConfig(), source)
	if len(questions) != 1 {
		t.Fatalf("Expected 1 question, got %d", len(questions))
	}

	q := questions[0]
	if q.Type != quiz.TypeMultichoice {
		t.Errorf("Expected type multichoice, got %q", q.Type)
	}
	if q.Name != "1. What is the official language of Peru?" {
		t.Errorf("Unexpected name %q", q.Name)
	}
	if q.Text != "<p>What is the official language of Peru?</p>" {
		t.Errorf("Unexpected text %q", q.Text)
	}
	if !q.Choice.Single() {
		t.Error("Expected question to collapse to single choice")
	}

	wantAnswers := []quiz.Answer{
		{Text: "Spanish", Fraction: 100},
		{Text: "German", Fraction: 0},
		{Text: "Portuguese", Fraction: 0},
	}
	if !reflect.DeepEqual(q.Answers, wantAnswers) {
		t.Errorf("Answers = %+v, want %+v", q.Answers, wantAnswers)
	}
}

func TestMultichoiceFractions(t *testing.T) {
	source := `Select the prime numbers.

- [x] 2
- [x] 3
- [ ] 4
- [ ] 6
`
	questions := mustConvert(t, DefaultConfig(), source)
	q := questions[0]

	if q.Choice.Single() {
		t.Error("Expected multiple choice with two correct answers")
	}

	want := []float64{50, 50, -50, -50}
	var sumPositive float64
	for i, a := range q.Answers {
		if a.Fraction != want[i] {
			t.Errorf("Answer %d fraction = %v, want %v", i, a.Fraction, want[i])
		}
		if a.Fraction > 0 {
			sumPositive += a.Fraction
		}
	}
	if sumPositive != 100 {
		t.Errorf("Positive fractions sum to %v, want 100", sumPositive)
	}
}

func TestMultichoiceSingleCorrectOnly(t *testing.T) {
	// one correct answer and no wrong ones stays multiple choice
	source := "The answer?\n\n- [x] yes\n- [x] also yes\n"
	questions := mustConvert(t, DefaultConfig(), source)
	q := questions[0]

	if q.Choice.Single() {
		t.Error("Expected question with no wrong answers to stay multiple choice")
	}
	for i, a := range q.Answers {
		if a.Fraction != 50 {
			t.Errorf("Answer %d fraction = %v, want 50", i, a.Fraction)
		}
	}
}

func TestForcedMultipleChoice(t *testing.T) {
	source := `Pick the capital.
@multi=1

- [x] Paris
- [ ] Lyon
- [ ] Nice
`
	questions := mustConvert(t, DefaultConfig(), source)
	q := questions[0]

	if q.Choice != quiz.ChoiceForcedMulti {
		t.Fatalf("Expected forced multiple choice, got %v", q.Choice)
	}
	if q.Choice.Single() {
		t.Error("Forced multiple choice must not serialize as single")
	}
	want := []float64{100, 0, 0}
	for i, a := range q.Answers {
		if a.Fraction != want[i] {
			t.Errorf("Answer %d fraction = %v, want %v", i, a.Fraction, want[i])
		}
	}
}

func TestMultichoiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{
			name:    "no correct answer",
			source:  "Q?\n\n- [ ] a\n- [ ] b\n",
			wantMsg: "needs at least one correct answer",
		},
		{
			name:    "uppercase checkbox",
			source:  "Q?\n\n- [X] a\n- [ ] b\n",
			wantMsg: "list items are expected to start with `[ ]` or `[x]`",
		},
		{
			name:    "item without checkbox in checkbox list",
			source:  "Q?\n\n- [x] a\n- b : c\n",
			wantMsg: "list items are expected to start with `[ ]` or `[x]`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convert(t, DefaultConfig(), tt.source)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !errors.Is(err, errors.ErrShape) {
				t.Errorf("Expected a shape error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error to contain %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestEnumeratedMatching(t *testing.T) {
	source := `Order the planets by distance from the sun.

1. Mercury
2. Venus
3. Earth
`
	questions := mustConvert(t, DefaultConfig(), source)
	q := questions[0]

	if q.Type != quiz.TypeMatching {
		t.Fatalf("Expected type matching, got %q", q.Type)
	}
	if q.ShuffleAnswers {
		t.Error("Expected shuffle to be forced off for enumerated matching")
	}

	want := []quiz.SubQuestion{
		{Text: "1.", Answer: quiz.Answer{Text: "Mercury"}},
		{Text: "2.", Answer: quiz.Answer{Text: "Venus"}},
		{Text: "3.", Answer: quiz.Answer{Text: "Earth"}},
	}
	if !reflect.DeepEqual(q.SubQuestions, want) {
		t.Errorf("SubQuestions = %+v, want %+v", q.SubQuestions, want)
	}
}

func TestEnumeratedMatchingRepeatedLeaders(t *testing.T) {
	// The common authoring idiom numbers every item "1."; the authored
	// leaders are kept verbatim, not renumbered.
	source := "Order the steps.\n\n1. alpha\n1. beta\n1. gamma\n"
	questions := mustConvert(t, DefaultConfig(), source)
	q := questions[0]

	want := []quiz.SubQuestion{
		{Text: "1.", Answer: quiz.Answer{Text: "alpha"}},
		{Text: "1.", Answer: quiz.Answer{Text: "beta"}},
		{Text: "1.", Answer: quiz.Answer{Text: "gamma"}},
	}
	if !reflect.DeepEqual(q.SubQuestions, want) {
		t.Errorf("SubQuestions = %+v, want %+v", q.SubQuestions, want)
	}
}

func TestEnumeratedMatchingParenMarker(t *testing.T) {
	source := "Order the steps.\n\n1) alpha\n2) beta\n"
	questions := mustConvert(t, DefaultConfig(), source)
	q := questions[0]

	if q.SubQuestions[0].Text != "1)" || q.SubQuestions[1].Text != "2)" {
		t.Errorf("Expected leaders 1) and 2), got %q and %q",
			q.SubQuestions[0].Text, q.SubQuestions[1].Text)
	}
}

func TestEnumeratedMatchingKeepsStart(t *testing.T) {
	source := "Continue the sequence.\n\n3. third\n4. fourth\n"
	questions := mustConvert(t, DefaultConfig(), source)
	q := questions[0]

	if q.SubQuestions[0].Text != "3." || q.SubQuestions[1].Text != "4." {
		t.Errorf("Expected leaders 3. and 4., got %q and %q",
			q.SubQuestions[0].Text, q.SubQuestions[1].Text)
	}
}

func TestAssociativeMatching(t *testing.T) {
	source := `Match the city to its description.

- Paris : capital of France
- Lyon : city on the Rhone
`
	questions := mustConvert(t, DefaultConfig(), source)
	q := questions[0]

	if q.Type != quiz.TypeMatching {
		t.Fatalf("Expected type matching, got %q", q.Type)
	}
	if !q.ShuffleAnswers {
		t.Error("Expected associative matching to keep the shuffle default")
	}

	// only the right side is trimmed, the key keeps its trailing space
	want := []quiz.SubQuestion{
		{Text: "Paris ", Answer: quiz.Answer{Text: "capital of France"}},
		{Text: "Lyon ", Answer: quiz.Answer{Text: "city on the Rhone"}},
	}
	if !reflect.DeepEqual(q.SubQuestions, want) {
		t.Errorf("SubQuestions = %+v, want %+v", q.SubQuestions, want)
	}
}

func TestAssociativeMatchingMissingSeparator(t *testing.T) {
	source := "Match.\n\n- Paris capital\n- Lyon city\n"
	_, err := convert(t, DefaultConfig(), source)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(err.Error(), `does not contain the separator ":"`) {
		t.Errorf("Unexpected error %q", err.Error())
	}
}

func TestAssociativeMatchingCustomSeparator(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchingSeparator = "="
	source := "Match.\n\n- a = first letter\n- b = second letter\n"
	questions := mustConvert(t, cfg, source)
	q := questions[0]

	if q.SubQuestions[0].Text != "a " || q.SubQuestions[0].Answer.Text != "first letter" {
		t.Errorf("Unexpected pair %+v", q.SubQuestions[0])
	}
}

func TestShortAnswerAndNumerical(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		wantType quiz.Type
		wantText string
	}{
		{
			name:     "text answer",
			source:   "Capital of France?\n\n- Paris\n",
			wantType: quiz.TypeShortAnswer,
			wantText: "Paris",
		},
		{
			name:     "numeric answer",
			source:   "The answer to everything?\n\n- 42\n",
			wantType: quiz.TypeNumerical,
			wantText: "42",
		},
		{
			name:     "mixed answer is not numeric",
			source:   "How many?\n\n- 42 apples\n",
			wantType: quiz.TypeShortAnswer,
			wantText: "42 apples",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions := mustConvert(t, DefaultConfig(), tt.source)
			q := questions[0]
			if q.Type != tt.wantType {
				t.Errorf("Expected type %q, got %q", tt.wantType, q.Type)
			}
			if len(q.Answers) != 1 {
				t.Fatalf("Expected 1 answer, got %d", len(q.Answers))
			}
			if q.Answers[0].Text != tt.wantText {
				t.Errorf("Expected answer %q, got %q", tt.wantText, q.Answers[0].Text)
			}
			if q.Answers[0].Fraction != 100 {
				t.Errorf("Expected fraction 100, got %v", q.Answers[0].Fraction)
			}
		})
	}
}

func TestTagContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GeneralTags = []string{"imported"}
	cfg.MultichoiceTags = []string{"mc"}
	cfg.ShortAnswerTags = []string{"sa"}

	source := `# geography, europe

First?

- [x] a
- [ ] b

Second?

- word

# history

Third?

- [x] a
- [ ] b
`
	questions := mustConvert(t, cfg, source)
	if len(questions) != 3 {
		t.Fatalf("Expected 3 questions, got %d", len(questions))
	}

	wantTags := [][]string{
		{"geography", "europe", "imported", "mc"},
		{"geography", "europe", "imported", "sa"},
		{"history", "imported", "mc"},
	}
	for i, want := range wantTags {
		if !reflect.DeepEqual(questions[i].Tags, want) {
			t.Errorf("Question %d tags = %v, want %v", i, questions[i].Tags, want)
		}
	}
}

func TestNameHeading(t *testing.T) {
	source := `## European capitals

What is the capital of France?

- [x] Paris
- [ ] Lyon
`
	questions := mustConvert(t, DefaultConfig(), source)
	if questions[0].Name != "European capitals" {
		t.Errorf("Expected name from heading, got %q", questions[0].Name)
	}
}

func TestNonSimpleHeadingIgnored(t *testing.T) {
	source := `## The *best* question

What is the capital of France?

- [x] Paris
- [ ] Lyon
`
	questions := mustConvert(t, DefaultConfig(), source)
	// the heading is skipped, so the name is synthesized from the stem
	if questions[0].Name != "1. What is the capital of France?" {
		t.Errorf("Expected synthesized name, got %q", questions[0].Name)
	}
}

func TestSynthesizedNames(t *testing.T) {
	source := `First question text?

- [x] a
- [ ] b

Second question text?

- word
`
	questions := mustConvert(t, DefaultConfig(), source)
	if questions[0].Name != "1. First question text?" {
		t.Errorf("Unexpected first name %q", questions[0].Name)
	}
	if questions[1].Name != "2. Second question text?" {
		t.Errorf("Unexpected second name %q", questions[1].Name)
	}
}

func TestSynthesizedNameStripsMarkupAndTruncates(t *testing.T) {
	long := strings.Repeat("x", 80)
	source := "This is **important** " + long + "\n\n- word\n"
	questions := mustConvert(t, DefaultConfig(), source)

	name := questions[0].Name
	if strings.Contains(name, "<strong>") {
		t.Errorf("Expected HTML tags stripped from name, got %q", name)
	}
	if !strings.HasPrefix(name, "1. This is important ") {
		t.Errorf("Unexpected name prefix %q", name)
	}
	// "1. " plus at most 64 characters of stem text
	if len(name) > 3+64 {
		t.Errorf("Expected name capped at 64 stem characters, got %d", len(name)-3)
	}
}

func TestMultiParagraphStem(t *testing.T) {
	source := `First paragraph.

Second paragraph.

- [x] a
- [ ] b
`
	questions := mustConvert(t, DefaultConfig(), source)
	want := "<p>First paragraph.</p><p>Second paragraph.</p>"
	if questions[0].Text != want {
		t.Errorf("Expected %q, got %q", want, questions[0].Text)
	}
	// name comes from the first paragraph only
	if questions[0].Name != "1. First paragraph." {
		t.Errorf("Unexpected name %q", questions[0].Name)
	}
}

func TestSupplementaryCodeBlock(t *testing.T) {
	source := "What does this print?\n\n```python\nprint(1)\n```\n\n- 1\n"
	questions := mustConvert(t, DefaultConfig(), source)
	want := "<p>What does this print?</p><pre><code class=\"language-python\">print(1)\n</code></pre>"
	if questions[0].Text != want {
		t.Errorf("Expected %q, got %q", want, questions[0].Text)
	}
}

func TestShuffleDirective(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"false", "false", false},
		{"no", "no", false},
		{"zero", "0", false},
		{"true", "true", true},
		{"yes", "yes", true},
		{"one", "1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "Q?\n@shuffle=" + tt.value + "\n\n- [x] a\n- [ ] b\n"
			questions := mustConvert(t, DefaultConfig(), source)
			if questions[0].ShuffleAnswers != tt.want {
				t.Errorf("Expected shuffle=%v, got %v", tt.want, questions[0].ShuffleAnswers)
			}
		})
	}
}

func TestShuffleDirectiveInvalidValue(t *testing.T) {
	source := "Q?\n@shuffle=maybe\n\n- [x] a\n- [ ] b\n"
	_, err := convert(t, DefaultConfig(), source)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !errors.Is(err, errors.ErrDirective) {
		t.Errorf("Expected a directive error, got %v", err)
	}
	want := `invalid boolean value "maybe"`
	if !strings.Contains(err.Error(), want) {
		t.Errorf("Expected error to contain %q, got %q", want, err.Error())
	}
}

func TestNumberingDirective(t *testing.T) {
	source := "Q?\n@numbering=123\n\n- [x] a\n- [ ] b\n"
	questions := mustConvert(t, DefaultConfig(), source)
	if questions[0].Numbering != quiz.NumberingDigits {
		t.Errorf("Expected numbering 123, got %q", questions[0].Numbering)
	}
}

func TestNumberingDirectiveIsCaseSensitive(t *testing.T) {
	source := "Q?\n@numbering=aBc\n\n- [x] a\n- [ ] b\n"
	_, err := convert(t, DefaultConfig(), source)
	if err == nil {
		t.Fatal("Expected an error for unknown numbering value")
	}
	if !strings.Contains(err.Error(), "use one of [abc, ABC, 123, iii, IIII]") {
		t.Errorf("Unexpected error %q", err.Error())
	}
}

func TestUnknownDirective(t *testing.T) {
	source := "Q?\n@difficulty=hard\n\n- [x] a\n- [ ] b\n"
	_, err := convert(t, DefaultConfig(), source)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(err.Error(), "unknown directive") {
		t.Errorf("Unexpected error %q", err.Error())
	}
}

func TestDirectiveKeyAliases(t *testing.T) {
	for _, key := range []string{"shuffle", "shuffleanswers", "shuffle_answers", "SHUFFLE"} {
		source := "Q?\n@" + key + "=false\n\n- [x] a\n- [ ] b\n"
		questions := mustConvert(t, DefaultConfig(), source)
		if questions[0].ShuffleAnswers {
			t.Errorf("Key %q did not disable shuffling", key)
		}
	}
}

func TestDirectiveEchoesIntoText(t *testing.T) {
	source := "Q?\n@shuffle=false\n\n- [x] a\n- [ ] b\n"
	questions := mustConvert(t, DefaultConfig(), source)
	if !strings.Contains(questions[0].Text, "@shuffle=false") {
		t.Errorf("Expected directive echoed into text, got %q", questions[0].Text)
	}
}

func TestStructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{
			name:    "list without stem",
			source:  "- [x] a\n- [ ] b\n",
			wantMsg: "no paragraph before",
		},
		{
			name:    "list after tag heading only",
			source:  "# geo\n\n- [x] a\n- [ ] b\n",
			wantMsg: "no paragraph before",
		},
		{
			name:    "code block without stem",
			source:  "```\nx\n```\n",
			wantMsg: "must follow a question",
		},
		{
			// The missing paragraph is diagnosed before the empty item.
			name:    "malformed list without stem",
			source:  "-\n",
			wantMsg: "no paragraph before",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convert(t, DefaultConfig(), tt.source)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !errors.Is(err, errors.ErrStructural) {
				t.Errorf("Expected a structural error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error to contain %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestNameHeadingThenList(t *testing.T) {
	// a name heading opens a draft, so a list may follow without a stem
	source := "## Named\n\n- [x] a\n- [ ] b\n"
	questions := mustConvert(t, DefaultConfig(), source)
	if len(questions) != 1 {
		t.Fatalf("Expected 1 question, got %d", len(questions))
	}
	if questions[0].Name != "Named" {
		t.Errorf("Unexpected name %q", questions[0].Name)
	}
}

func TestUnfinishedDraftIsDropped(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"trailing stem", "Complete?\n\n- [x] a\n- [ ] b\n\nDangling paragraph.\n"},
		{"trailing name heading", "Complete?\n\n- word\n\n## Never finished\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions := mustConvert(t, DefaultConfig(), tt.source)
			if len(questions) != 1 {
				t.Errorf("Expected only the complete question, got %d", len(questions))
			}
		})
	}
}

func TestNameHeadingReplacesPendingDraft(t *testing.T) {
	source := `## First name

## Second name

Stem?

- word
`
	questions := mustConvert(t, DefaultConfig(), source)
	if len(questions) != 1 {
		t.Fatalf("Expected 1 question, got %d", len(questions))
	}
	if questions[0].Name != "Second name" {
		t.Errorf("Expected the later heading to win, got %q", questions[0].Name)
	}
}

func TestDeepHeadingIgnored(t *testing.T) {
	source := "### ignored\n\nQ?\n\n- word\n"
	questions := mustConvert(t, DefaultConfig(), source)
	if len(questions) != 1 {
		t.Fatalf("Expected 1 question, got %d", len(questions))
	}
	if questions[0].Name != "1. Q?" {
		t.Errorf("Unexpected name %q", questions[0].Name)
	}
}

func TestThematicBreakIgnored(t *testing.T) {
	source := "Q?\n\n---\n\n- word\n"
	questions := mustConvert(t, DefaultConfig(), source)
	if len(questions) != 1 {
		t.Fatalf("Expected 1 question, got %d", len(questions))
	}
}

func TestConfigDefaultsApply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Numbering = quiz.NumberingUpperAlpha
	cfg.ShuffleAnswers = false

	source := "Q?\n\n- [x] a\n- [ ] b\n"
	questions := mustConvert(t, cfg, source)
	q := questions[0]

	if q.Numbering != quiz.NumberingUpperAlpha {
		t.Errorf("Expected numbering ABC, got %q", q.Numbering)
	}
	if q.ShuffleAnswers {
		t.Error("Expected shuffle disabled by config")
	}
}

func TestQuestionCounterResetsPerDocument(t *testing.T) {
	md := markup.New()
	tr := New(DefaultConfig(), md)

	first, err := tr.Run(md.Parse([]byte("One?\n\n- word\n")))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := tr.Run(md.Parse([]byte("Two?\n\n- word\n")))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if first[0].Name != "1. One?" {
		t.Errorf("Unexpected first name %q", first[0].Name)
	}
	if second[0].Name != "1. Two?" {
		t.Errorf("Expected counter to reset for a new document, got %q", second[0].Name)
	}
}

func TestFailedDocumentLeavesNoResidue(t *testing.T) {
	md := markup.New()
	tr := New(DefaultConfig(), md)

	if _, err := tr.Run(md.Parse([]byte("- [x] orphan list\n- [ ] other\n"))); err == nil {
		t.Fatal("Expected a structural error")
	}

	questions, err := tr.Run(md.Parse([]byte("Q?\n\n- word\n")))
	if err != nil {
		t.Fatalf("Run failed after earlier error: %v", err)
	}
	if len(questions) != 1 || questions[0].Name != "1. Q?" {
		t.Errorf("Unexpected questions after earlier error: %+v", questions)
	}
}
