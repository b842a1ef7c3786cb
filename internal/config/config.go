// Package config loads conversion defaults from an INI configuration
// file and merges them into the transformer configuration. Command line
// flags are merged on top by the CLI, so precedence is built-in
// defaults, then file, then flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/quizmark/quizmark/core/errors"
	"github.com/quizmark/quizmark/core/quiz"
	"github.com/quizmark/quizmark/core/transform"
)

// iniFile represents a parsed INI configuration file.
type iniFile struct {
	Lines []iniLine `parser:"@@*"`
}

// iniLine represents a single meaningful line.
type iniLine struct {
	Section  string `parser:"  @Section"`
	Property string `parser:"| @Property"`
}

// iniLexer defines tokens using line-based patterns. Order matters:
// more specific patterns come first.
var iniLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comment lines starting with # or ;
	{Name: "Comment", Pattern: `[#;][^\r\n]*`},
	// Section header line: [SectionName]
	{Name: "Section", Pattern: `\[[^\]\r\n]+\]`},
	// Property line: key = value
	{Name: "Property", Pattern: `[a-zA-Z][a-zA-Z0-9_.]*[ \t]*=[^\r\n]*`},
	// Whitespace (spaces/tabs)
	{Name: "Whitespace", Pattern: `[ \t]+`},
	// Newlines
	{Name: "Newline", Pattern: `[\r\n]+`},
})

var iniParser = participle.MustBuild[iniFile](
	participle.Lexer(iniLexer),
	participle.Elide("Comment", "Whitespace", "Newline"),
)

// Boolean spellings accepted for shuffle_answers, mirroring the inline
// shuffle directive.
var (
	trueWords  = []string{"true", "yes", "1"}
	falseWords = []string{"false", "no", "0"}
)

// FileConfig holds the raw values read from a configuration file. Nil or
// empty fields were absent and leave the corresponding default alone.
type FileConfig struct {
	Numbering         string
	ShuffleAnswers    *bool
	GeneralTags       []string
	MultichoiceTags   []string
	MatchingTags      []string
	ShortAnswerTags   []string
	NumericalTags     []string
	MatchingSeparator string
}

// Load reads and parses an INI configuration file.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// Parse parses INI configuration data. Settings live in the [DEFAULT]
// section (or before any section header); other sections, such as
// [localization], are ignored.
func Parse(data []byte) (*FileConfig, error) {
	parsed, err := iniParser.ParseBytes("", data)
	if err != nil {
		return nil, err
	}

	cfg := &FileConfig{}
	inDefault := true

	for _, line := range parsed.Lines {
		if line.Section != "" {
			name := strings.TrimPrefix(line.Section, "[")
			name = strings.TrimSuffix(name, "]")
			inDefault = strings.EqualFold(name, "DEFAULT")
			continue
		}
		if !inDefault || line.Property == "" {
			continue
		}

		idx := strings.Index(line.Property, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line.Property[:idx])
		value := strings.TrimSpace(line.Property[idx+1:])

		switch key {
		case "numbering":
			cfg.Numbering = value
		case "shuffle_answers":
			b, err := parseBool(value)
			if err != nil {
				return nil, err
			}
			cfg.ShuffleAnswers = &b
		case "general_tags":
			cfg.GeneralTags = splitTags(value)
		case "multichoice_tags":
			cfg.MultichoiceTags = splitTags(value)
		case "matching_tags":
			cfg.MatchingTags = splitTags(value)
		case "shortanswer_tags":
			cfg.ShortAnswerTags = splitTags(value)
		case "numerical_tags":
			cfg.NumericalTags = splitTags(value)
		case "matching_separator":
			cfg.MatchingSeparator = value
		}
	}

	return cfg, nil
}

// Apply merges the file values onto a transformer configuration.
func (f *FileConfig) Apply(cfg *transform.Config) error {
	if f.Numbering != "" {
		numbering := quiz.Numbering(f.Numbering)
		if !numbering.IsValid() {
			return errors.NewDirective("numbering", f.Numbering,
				fmt.Sprintf("invalid numbering scheme %q", f.Numbering))
		}
		cfg.Numbering = numbering
	}
	if f.ShuffleAnswers != nil {
		cfg.ShuffleAnswers = *f.ShuffleAnswers
	}
	if f.GeneralTags != nil {
		cfg.GeneralTags = f.GeneralTags
	}
	if f.MultichoiceTags != nil {
		cfg.MultichoiceTags = f.MultichoiceTags
	}
	if f.MatchingTags != nil {
		cfg.MatchingTags = f.MatchingTags
	}
	if f.ShortAnswerTags != nil {
		cfg.ShortAnswerTags = f.ShortAnswerTags
	}
	if f.NumericalTags != nil {
		cfg.NumericalTags = f.NumericalTags
	}
	if f.MatchingSeparator != "" {
		cfg.MatchingSeparator = f.MatchingSeparator
	}
	return nil
}

func parseBool(value string) (bool, error) {
	v := strings.ToLower(value)
	for _, w := range trueWords {
		if v == w {
			return true, nil
		}
	}
	for _, w := range falseWords {
		if v == w {
			return false, nil
		}
	}
	return false, errors.NewDirective("shuffle_answers", value,
		fmt.Sprintf("invalid boolean value %q, use \"true\" or \"false\" instead", value))
}

// splitTags splits a comma-separated tag value into trimmed tags. An
// empty value yields no tags rather than one empty tag.
func splitTags(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
