// Package bank stores converted questions in a local SQLite question
// bank. Documents are keyed by path and deduplicated by a BLAKE3 digest
// of their source, so re-importing an unchanged file is a no-op.
package bank

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/quizmark/quizmark/core/errors"
	"github.com/quizmark/quizmark/core/quiz"
	"github.com/quizmark/quizmark/internal/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL UNIQUE,
	digest      TEXT NOT NULL,
	imported_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	model       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_questions_document
	ON questions(document_id, position);
`

// Document is one imported source file.
type Document struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Digest     string    `json:"digest"`
	ImportedAt time.Time `json:"imported_at"`
	Questions  int       `json:"questions"`
}

// Bank is a question bank backed by a SQLite database.
type Bank struct {
	db *sql.DB
}

// Open opens (and if needed initializes) a question bank at path.
func Open(path string) (*Bank, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing question bank schema")
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enabling foreign keys")
	}
	return &Bank{db: db}, nil
}

// Close closes the underlying database.
func (b *Bank) Close() error {
	return b.db.Close()
}

// Digest returns the hex-encoded BLAKE3 digest of a document source.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores a document's questions, replacing any previous import of
// the same path. When the digest matches the stored one the bank is
// left untouched and changed reports false.
func (b *Bank) Put(ctx context.Context, path, digest string, questions []quiz.Question) (doc *Document, changed bool, err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var existingID, existingDigest string
	row := tx.QueryRowContext(ctx, `SELECT id, digest FROM documents WHERE path = ?`, path)
	switch err = row.Scan(&existingID, &existingDigest); err {
	case nil:
		if existingDigest == digest {
			tx.Rollback()
			doc, err := b.document(ctx, path)
			return doc, false, err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM questions WHERE document_id = ?`, existingID); err != nil {
			return nil, false, errors.Wrap(err, "removing stale questions")
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE documents SET digest = ?, imported_at = ? WHERE id = ?`,
			digest, time.Now().UTC().Format(time.RFC3339), existingID); err != nil {
			return nil, false, errors.Wrap(err, "updating document")
		}
	case sql.ErrNoRows:
		existingID = uuid.New().String()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO documents (id, path, digest, imported_at) VALUES (?, ?, ?, ?)`,
			existingID, path, digest, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return nil, false, errors.Wrap(err, "inserting document")
		}
	default:
		return nil, false, errors.Wrap(err, "looking up document")
	}

	for i := range questions {
		q := &questions[i]
		model, merr := json.Marshal(q)
		if merr != nil {
			err = errors.Wrap(merr, "encoding question")
			return nil, false, err
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO questions (id, document_id, position, name, type, model) VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), existingID, i, q.Name, string(q.Type), string(model)); err != nil {
			return nil, false, errors.Wrap(err, "inserting question")
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, false, errors.Wrap(err, "committing import")
	}

	doc, err = b.document(ctx, path)
	return doc, true, err
}

// document loads one document row with its question count.
func (b *Bank) document(ctx context.Context, path string) (*Document, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT d.id, d.path, d.digest, d.imported_at, COUNT(q.id)
		FROM documents d
		LEFT JOIN questions q ON q.document_id = d.id
		WHERE d.path = ?
		GROUP BY d.id`, path)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "document %s", path)
	}
	return doc, err
}

// List returns all imported documents ordered by path.
func (b *Bank) List(ctx context.Context) ([]Document, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT d.id, d.path, d.digest, d.imported_at, COUNT(q.id)
		FROM documents d
		LEFT JOIN questions q ON q.document_id = d.id
		GROUP BY d.id
		ORDER BY d.path`)
	if err != nil {
		return nil, errors.Wrap(err, "listing documents")
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Questions returns one document's questions in import order.
func (b *Bank) Questions(ctx context.Context, documentID string) ([]quiz.Question, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT model FROM questions WHERE document_id = ? ORDER BY position`, documentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// Export returns every stored question, ordered by document path and
// position, ready for serialization into one combined quiz.
func (b *Bank) Export(ctx context.Context) ([]quiz.Question, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT q.model
		FROM questions q
		JOIN documents d ON d.id = q.document_id
		ORDER BY d.path, q.position`)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	defer rows.Close()
	return scanQuestions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var importedAt string
	if err := row.Scan(&doc.ID, &doc.Path, &doc.Digest, &importedAt, &doc.Questions); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339, importedAt)
	if err != nil {
		return nil, errors.Wrap(err, "parsing import timestamp")
	}
	doc.ImportedAt = ts
	return &doc, nil
}

func scanQuestions(rows *sql.Rows) ([]quiz.Question, error) {
	var questions []quiz.Question
	for rows.Next() {
		var model string
		if err := rows.Scan(&model); err != nil {
			return nil, errors.Wrap(err, "scanning question")
		}
		var q quiz.Question
		if err := json.Unmarshal([]byte(model), &q); err != nil {
			return nil, errors.Wrap(err, "decoding question")
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
