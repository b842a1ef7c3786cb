// Package validation checks user-supplied paths before the converter
// reads or writes them: length and character limits, traversal guards
// for paths taken from config files, and content sniffing so a stray
// binary is rejected before the Markdown parser sees it.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// MaxSourceSize is the maximum allowed source document size (16 MB).
	MaxSourceSize = 16 << 20
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrNotRegularFile   = errors.New("not a regular file")
	ErrSourceTooLarge   = errors.New("source document too large")
	ErrNotText          = errors.New("file does not look like a text document")
)

// ValidatePath checks a path for length limits and invalid characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// SanitizePath validates a path taken from a config file and resolves
// it relative to the config's directory, rejecting escapes above it.
func SanitizePath(baseDir, userPath string) (string, error) {
	if err := ValidatePath(userPath); err != nil {
		return "", err
	}
	if filepath.IsAbs(userPath) {
		return filepath.Clean(userPath), nil
	}

	cleanPath := filepath.Clean(userPath)
	if strings.HasPrefix(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	fullPath := filepath.Join(absBase, cleanPath)
	relPath, err := filepath.Rel(absBase, fullPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", ErrPathTraversal
	}
	return fullPath, nil
}

// ValidateSourceFile checks that path names a readable, reasonably
// sized regular file suitable as converter input.
func ValidateSourceFile(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}
	if info.Size() > MaxSourceSize {
		return fmt.Errorf("%s: %w (%d bytes)", path, ErrSourceTooLarge, info.Size())
	}
	return nil
}

// ValidateOutputPath checks that the directory an output file would be
// written into exists.
func ValidateOutputPath(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory %s: not a directory", dir)
	}
	return nil
}

// FileType represents a detected file type.
type FileType string

const (
	FileTypeMarkdown FileType = "markdown"
	FileTypeXML      FileType = "xml"
	FileTypeXZ       FileType = "xz"
	FileTypeSQLite   FileType = "sqlite"
	FileTypeINI      FileType = "ini"
	FileTypeUnknown  FileType = "unknown"
)

// magicBytes defines signatures for the binary formats the tool
// produces or consumes.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeSQLite, []byte("SQLite format 3")},
}

// ValidateFileType verifies that a file's content matches what its
// extension claims. Text formats only get a light binary-content check.
func ValidateFileType(reader io.Reader, filename string) (FileType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	detected := detectFileTypeFromMagic(buf)
	expected := detectFileTypeFromExtension(filename)

	if detected == expected {
		return detected, nil
	}

	switch expected {
	case FileTypeMarkdown, FileTypeXML, FileTypeINI:
		if detected != FileTypeUnknown {
			return FileTypeUnknown, fmt.Errorf("file type mismatch: extension suggests %s but content is %s", expected, detected)
		}
		if !isLikelyText(buf) {
			return FileTypeUnknown, fmt.Errorf("%s: %w", filename, ErrNotText)
		}
		return expected, nil
	}

	if detected == FileTypeUnknown {
		return expected, nil
	}
	return detected, nil
}

// detectFileTypeFromMagic detects file type from magic bytes.
func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if len(sig.magic) <= len(buf) && bytes.Equal(buf[:len(sig.magic)], sig.magic) {
			return sig.fileType
		}
	}
	return FileTypeUnknown
}

// detectFileTypeFromExtension determines the expected file type from
// the filename extension.
func detectFileTypeFromExtension(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return FileTypeMarkdown
	case ".xml":
		return FileTypeXML
	case ".xz":
		return FileTypeXZ
	case ".ini", ".cfg", ".conf":
		return FileTypeINI
	case ".db", ".sqlite", ".sqlite3":
		return FileTypeSQLite
	default:
		return FileTypeUnknown
	}
}

// isLikelyText reports whether the buffer looks like text content.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 continuation and start bytes are neutral
	}
	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
