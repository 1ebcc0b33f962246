// Package store persists seeded questions and their reference image rows
// in SQLite. Questions are read-only once imported; the analysis pipeline
// never writes here.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/daringdolphin/chemcheck/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		prompt_img TEXT NOT NULL DEFAULT '',
		model_answer_json TEXT NOT NULL,
		marks INTEGER NOT NULL DEFAULT 0,
		syllabus_reference TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS model_answer_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id TEXT NOT NULL,
		img_key TEXT NOT NULL,
		position INTEGER NOT NULL,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_model_answer_images_question
		ON model_answer_images(question_id);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		sha256 TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertQuestion stores a question and its marking scheme.
func (s *Store) InsertQuestion(q model.Question) error {
	answerJSON, err := json.Marshal(q.ModelAnswer)
	if err != nil {
		return fmt.Errorf("marshal model answer: %w", err)
	}

	var syllabusJSON sql.NullString
	if q.Syllabus != nil {
		data, err := json.Marshal(q.Syllabus)
		if err != nil {
			return fmt.Errorf("marshal syllabus reference: %w", err)
		}
		syllabusJSON = sql.NullString{String: string(data), Valid: true}
	}

	createdAt := q.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.Exec(
		`INSERT INTO questions (id, prompt_img, model_answer_json, marks, syllabus_reference, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.PromptImg, string(answerJSON), q.Marks, syllabusJSON, createdAt,
	)
	return err
}

// GetQuestion returns a question by ID, or nil when it does not exist.
func (s *Store) GetQuestion(id string) (*model.Question, error) {
	var (
		q            model.Question
		answerJSON   string
		syllabusJSON sql.NullString
	)
	err := s.db.QueryRow(
		`SELECT id, prompt_img, model_answer_json, marks, syllabus_reference, created_at
		 FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.PromptImg, &answerJSON, &q.Marks, &syllabusJSON, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(answerJSON), &q.ModelAnswer); err != nil {
		return nil, fmt.Errorf("unmarshal model answer for %s: %w", id, err)
	}
	if syllabusJSON.Valid {
		if err := json.Unmarshal([]byte(syllabusJSON.String), &q.Syllabus); err != nil {
			return nil, fmt.Errorf("unmarshal syllabus reference for %s: %w", id, err)
		}
	}
	return &q, nil
}

// QuestionCount returns the number of seeded questions.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// DeleteQuestion removes a question; its reference image rows cascade.
func (s *Store) DeleteQuestion(id string) error {
	_, err := s.db.Exec(`DELETE FROM questions WHERE id = ?`, id)
	return err
}

// InsertReferenceImage stores one reference image row.
func (s *Store) InsertReferenceImage(ref model.ReferenceImageRef) error {
	_, err := s.db.Exec(
		`INSERT INTO model_answer_images (question_id, img_key, position) VALUES (?, ?, ?)`,
		ref.QuestionID, ref.ImgKey, ref.Position,
	)
	return err
}

// GetImportedFileHash returns the recorded content hash for a questions
// file, or the empty string if the file has never been imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT sha256 FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// SetImportedFileHash records the content hash of an imported questions file.
func (s *Store) SetImportedFileHash(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, sha256, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET sha256 = excluded.sha256, imported_at = excluded.imported_at`,
		path, hash, time.Now().UTC(),
	)
	return err
}

// GetReferenceImages returns a question's reference image rows ordered by
// ascending position.
func (s *Store) GetReferenceImages(questionID string) ([]model.ReferenceImageRef, error) {
	rows, err := s.db.Query(
		`SELECT question_id, img_key, position FROM model_answer_images
		 WHERE question_id = ? ORDER BY position`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []model.ReferenceImageRef
	for rows.Next() {
		var ref model.ReferenceImageRef
		if err := rows.Scan(&ref.QuestionID, &ref.ImgKey, &ref.Position); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
