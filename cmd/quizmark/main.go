// Command quizmark converts constrained-Markdown quiz documents into
// Moodle quiz XML. It also keeps a local question bank and can serve a
// live preview of the converted output.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	qerrors "github.com/quizmark/quizmark/core/errors"
	"github.com/quizmark/quizmark/core/markup"
	"github.com/quizmark/quizmark/core/moodle"
	"github.com/quizmark/quizmark/core/quiz"
	"github.com/quizmark/quizmark/core/transform"
	"github.com/quizmark/quizmark/internal/bank"
	"github.com/quizmark/quizmark/internal/config"
	"github.com/quizmark/quizmark/internal/fileutil"
	"github.com/quizmark/quizmark/internal/logging"
	"github.com/quizmark/quizmark/internal/preview"
	"github.com/quizmark/quizmark/internal/validation"
)

const version = "1.0.0"

// Exit statuses distinguish user errors in the documents from
// environment problems.
const (
	exitDocumentError = 2
	exitIOError       = 3
)

// CLI defines the command-line interface for quizmark.
var CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"Path to quizmark.conf" type:"existingfile"`
	Tags      string `name:"tags" short:"t" help:"Comma-separated tags added to every question"`
	Shuffle   *bool  `name:"shuffle" short:"s" help:"Shuffle answers (overrides config file)" negatable:""`
	Numbering string `name:"numbering" short:"n" help:"Answer numbering scheme (abc, ABC, 123, iii, IIII)"`
	Separator string `name:"separator" help:"Matching key/value separator (overrides config file)"`
	Verbose   bool   `name:"verbose" short:"v" help:"Enable debug logging"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format (text or json)"`

	Convert ConvertCmd `cmd:"" help:"Convert Markdown documents to Moodle XML"`
	Check   CheckCmd   `cmd:"" help:"Validate documents without writing output"`
	Bank    BankGroup  `cmd:"" help:"Question bank operations"`
	Preview PreviewCmd `cmd:"" help:"Serve a live preview of converted documents"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// BankGroup contains question bank operations.
type BankGroup struct {
	Add    BankAddCmd    `cmd:"" help:"Convert documents and store their questions in the bank"`
	List   BankListCmd   `cmd:"" help:"List imported documents"`
	Export BankExportCmd `cmd:"" help:"Emit one quiz XML document from all stored questions"`
}

// buildConfig merges the transformer configuration: built-in defaults,
// then the config file, then command-line flags.
func buildConfig() (transform.Config, error) {
	cfg := transform.DefaultConfig()

	path := CLI.Config
	if path == "" {
		// quizmark.conf in the working directory is picked up when present.
		if _, err := os.Stat("quizmark.conf"); err == nil {
			path = "quizmark.conf"
		}
	}
	if path != "" {
		fc, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		if err := fc.Apply(&cfg); err != nil {
			return cfg, err
		}
		logging.Debug("loaded config file", "path", path)
	}

	if CLI.Tags != "" {
		for _, tag := range strings.Split(CLI.Tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				cfg.GeneralTags = append(cfg.GeneralTags, tag)
			}
		}
	}
	if CLI.Shuffle != nil {
		cfg.ShuffleAnswers = *CLI.Shuffle
	}
	if CLI.Numbering != "" {
		n := quiz.Numbering(CLI.Numbering)
		if !n.IsValid() {
			return cfg, qerrors.NewDirective("numbering", CLI.Numbering, "invalid numbering scheme")
		}
		cfg.Numbering = n
	}
	if CLI.Separator != "" {
		cfg.MatchingSeparator = CLI.Separator
	}
	return cfg, nil
}

// expandInputs glob-expands the input arguments. An argument without
// matches is kept literally so the per-file validation reports it.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			paths = append(paths, arg)
			continue
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, errors.New("no input files")
	}
	return paths, nil
}

// convertFile reads, transforms, and serializes one document.
func convertFile(cfg transform.Config, path string) (xml []byte, questions int, err error) {
	if err := validation.ValidateSourceFile(path); err != nil {
		return nil, 0, err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, qerrors.NewIO("read", path, err)
	}
	return convertSource(cfg, source)
}

// convertSource runs the whole pipeline over one in-memory document.
func convertSource(cfg transform.Config, source []byte) ([]byte, int, error) {
	md := markup.New()
	questions, err := transform.New(cfg, md).Run(md.Parse(source))
	if err != nil {
		return nil, 0, err
	}
	xml, err := moodle.Render(questions)
	if err != nil {
		return nil, 0, err
	}
	return xml, len(questions), nil
}

// outputPath derives the output file name for an input document.
func outputPath(input, outDir string, compress bool) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".xml"
	if compress {
		base += ".xz"
	}
	if outDir != "" {
		return filepath.Join(outDir, base)
	}
	return filepath.Join(filepath.Dir(input), base)
}

// ConvertCmd converts Markdown documents to Moodle XML files.
type ConvertCmd struct {
	Paths     []string `arg:"" name:"path" help:"Input documents or glob patterns"`
	OutDir    string   `name:"out-dir" short:"o" help:"Write outputs into this directory instead of beside inputs"`
	Compress  bool     `name:"compress" help:"Write xz-compressed .xml.xz output"`
	KeepGoing bool     `name:"keep-going" short:"k" help:"Continue with remaining files after a failure"`
	Stdout    bool     `name:"stdout" help:"Write XML to standard output instead of files"`
}

func (c *ConvertCmd) Run() error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	paths, err := expandInputs(c.Paths)
	if err != nil {
		return err
	}

	var failed int
	for _, path := range paths {
		start := time.Now()
		xml, questions, err := convertFile(cfg, path)
		if err != nil {
			failed++
			logging.Error("conversion failed", "input", path, "error", err)
			if c.KeepGoing {
				continue
			}
			return err
		}

		if c.Stdout {
			os.Stdout.Write(xml)
			logging.ConvertResult(path, "-", questions, time.Since(start))
			continue
		}

		out := outputPath(path, c.OutDir, c.Compress)
		if err := validation.ValidateOutputPath(out); err != nil {
			return err
		}
		if c.Compress {
			err = fileutil.WriteXZ(out, xml, 0o644)
		} else {
			err = fileutil.WriteAtomic(out, xml, 0o644)
		}
		if err != nil {
			return err
		}
		logging.ConvertResult(path, out, questions, time.Since(start))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	return nil
}

// CheckCmd validates documents without writing output.
type CheckCmd struct {
	Paths []string `arg:"" name:"path" help:"Input documents or glob patterns"`
}

func (c *CheckCmd) Run() error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	paths, err := expandInputs(c.Paths)
	if err != nil {
		return err
	}

	var failed int
	for _, path := range paths {
		_, questions, err := convertFile(cfg, path)
		if err != nil {
			failed++
			logging.Error("check failed", "input", path, "error", err)
			continue
		}
		fmt.Printf("%s: %d question(s)\n", path, questions)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	return nil
}

// BankAddCmd converts documents and stores their questions.
type BankAddCmd struct {
	Paths []string `arg:"" name:"path" help:"Input documents or glob patterns"`
	DB    string   `name:"db" default:"quizmark.db" help:"Question bank database path"`
}

func (c *BankAddCmd) Run() error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	paths, err := expandInputs(c.Paths)
	if err != nil {
		return err
	}

	b, err := bank.Open(c.DB)
	if err != nil {
		return err
	}
	defer b.Close()

	md := markup.New()
	ctx := context.Background()
	for _, path := range paths {
		if err := validation.ValidateSourceFile(path); err != nil {
			return err
		}
		source, err := os.ReadFile(path)
		if err != nil {
			return qerrors.NewIO("read", path, err)
		}
		questions, err := transform.New(cfg, md).Run(md.Parse(source))
		if err != nil {
			return err
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		doc, changed, err := b.Put(ctx, abs, bank.Digest(source), questions)
		if err != nil {
			return err
		}
		if changed {
			logging.Info("document imported", "path", path, "questions", doc.Questions)
		} else {
			logging.Info("document unchanged, skipped", "path", path)
		}
	}
	return nil
}

// BankListCmd lists imported documents.
type BankListCmd struct {
	DB string `name:"db" default:"quizmark.db" help:"Question bank database path"`
}

func (c *BankListCmd) Run() error {
	b, err := bank.Open(c.DB)
	if err != nil {
		return err
	}
	defer b.Close()

	docs, err := b.List(context.Background())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("question bank is empty")
		return nil
	}
	for _, doc := range docs {
		fmt.Printf("%s  %3d question(s)  %s  %s\n",
			doc.ImportedAt.Format("2006-01-02 15:04"), doc.Questions, doc.Digest[:12], doc.Path)
	}
	return nil
}

// BankExportCmd emits one quiz XML document from all stored questions.
type BankExportCmd struct {
	DB     string `name:"db" default:"quizmark.db" help:"Question bank database path"`
	Output string `name:"output" short:"o" help:"Output file (default: standard output)"`
}

func (c *BankExportCmd) Run() error {
	b, err := bank.Open(c.DB)
	if err != nil {
		return err
	}
	defer b.Close()

	questions, err := b.Export(context.Background())
	if err != nil {
		return err
	}
	xml, err := moodle.Render(questions)
	if err != nil {
		return err
	}

	if c.Output == "" {
		os.Stdout.Write(xml)
		return nil
	}
	if err := validation.ValidateOutputPath(c.Output); err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(c.Output, xml, 0o644); err != nil {
		return err
	}
	logging.Info("bank exported", "output", c.Output, "questions", len(questions))
	return nil
}

// PreviewCmd serves a live preview of converted documents.
type PreviewCmd struct {
	Paths    []string      `arg:"" name:"path" help:"Documents to watch" type:"existingfile"`
	Port     int           `name:"port" short:"p" default:"8077" help:"Port to listen on (localhost only)"`
	Interval time.Duration `name:"interval" default:"500ms" help:"Poll interval for file changes"`
}

func (c *PreviewCmd) Run() error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	server := preview.NewServer(preview.Config{
		Port:     c.Port,
		Paths:    c.Paths,
		Interval: c.Interval,
		Convert: func(source []byte) ([]byte, int, error) {
			return convertSource(cfg, source)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("quizmark version %s\n", version)
	return nil
}

// exitStatus maps an error to the process exit code.
func exitStatus(err error) int {
	switch {
	case errors.Is(err, qerrors.ErrStructural),
		errors.Is(err, qerrors.ErrShape),
		errors.Is(err, qerrors.ErrDirective):
		return exitDocumentError
	default:
		var ioErr *qerrors.IOError
		if errors.As(err, &ioErr) {
			return exitIOError
		}
		return 1
	}
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("quizmark"),
		kong.Description("Markdown to Moodle quiz XML converter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := logging.LevelInfo
	if CLI.Verbose {
		level = logging.LevelDebug
	}
	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)

	if err := ctx.Run(); err != nil {
		logging.Error("command failed", "error", err)
		os.Exit(exitStatus(err))
	}
}
