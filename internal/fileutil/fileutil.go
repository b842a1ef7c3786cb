// Package fileutil provides output helpers for the converter: atomic
// file writes and optional xz compression of the generated XML.
package fileutil

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	"github.com/quizmark/quizmark/core/errors"
)

// WriteAtomic writes data to path via a temporary sibling file and a
// rename, so a crash mid-write never leaves a truncated output.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.NewIO("write", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return errors.NewIO("chmod", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIO("close", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.NewIO("rename", path, err)
	}
	return nil
}

// WriteXZ compresses data with xz and writes it atomically to path.
func WriteXZ(path string, data []byte, perm os.FileMode) error {
	compressed, err := CompressXZ(data)
	if err != nil {
		return err
	}
	return WriteAtomic(path, compressed, perm)
}

// CompressXZ returns the xz-compressed form of data.
func CompressXZ(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, errors.Wrap(err, "creating xz writer")
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "compressing data")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "finalizing xz stream")
	}
	return buf.Bytes(), nil
}
