// Package store persists users, the sentence library, and scored practice
// attempts in a local SQLite database.
//
// The app runs on small single-user machines, so the store is a single file
// opened in WAL mode rather than a database server. Guest practice never
// reaches the store — callers simply skip SaveAttempt for guest sessions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// SQLite driver, registered as "sqlite3".
	_ "github.com/mattn/go-sqlite3"

	"github.com/mwathi/elocute/internal/score"
)

// Schema is the SQL DDL executed by [Store.Migrate].
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_login    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sentences (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    text             TEXT NOT NULL,
    difficulty_level INTEGER DEFAULT 1,
    category         TEXT,
    word_count       INTEGER,
    created_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS recordings (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id             INTEGER NOT NULL,
    sentence_id         INTEGER NOT NULL,
    audio_file_path     TEXT NOT NULL,
    transcription       TEXT,
    target_text         TEXT,
    wer_score           REAL,
    accuracy_percentage INTEGER,
    score_category      TEXT,
    duration_seconds    REAL,
    recorded_at         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
    FOREIGN KEY (sentence_id) REFERENCES sentences(id)
);

CREATE INDEX IF NOT EXISTS idx_recordings_user_id ON recordings(user_id);
CREATE INDEX IF NOT EXISTS idx_recordings_date ON recordings(recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_sentences_difficulty ON sentences(difficulty_level);
`

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// User is a registered practice account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Sentence is one entry of the practice sentence library.
type Sentence struct {
	ID         int64
	Text       string
	Difficulty int
	Category   string
	WordCount  int
}

// Attempt is one scored practice recording.
type Attempt struct {
	ID            int64
	UserID        int64
	SentenceID    int64
	AudioPath     string
	Transcription string
	TargetText    string
	WER           float64
	Accuracy      int
	Category      score.Category
	Duration      time.Duration
	RecordedAt    time.Time
}

// Stats aggregates a user's practice history.
type Stats struct {
	TotalAttempts    int
	AverageScore     int
	Excellent        int
	Good             int
	NeedsImprovement int
}

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithHistoryCap bounds how many attempts are kept per user; the oldest rows
// beyond the cap are pruned on insert. Zero means unlimited. Default 500.
func WithHistoryCap(n int) Option {
	return func(s *Store) { s.historyCap = n }
}

// Store is a SQLite-backed persistence layer. Safe for concurrent use.
type Store struct {
	db         *sql.DB
	historyCap int
}

// Open opens (or creates) the SQLite database at path and returns a Store.
// The caller must call Close, and Migrate before issuing queries.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: path must not be empty")
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	return New(db, opts...), nil
}

// New wraps an existing database handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, historyCap: 500}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate executes the [Schema] DDL, creating all tables and indexes if they
// do not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// ---- users ------------------------------------------------------------------

// CreateUser inserts a new user and returns its ID. Usernames are unique.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	if username == "" {
		return 0, errors.New("store: username must not be empty")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash,
	)
	if err != nil {
		return 0, fmt.Errorf("store: create user %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: create user %q: %w", username, err)
	}
	return id, nil
}

// UserByName fetches a user by username. Returns ErrNotFound when absent.
func (s *Store) UserByName(ctx context.Context, username string) (User, error) {
	var u User
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at, last_login FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("store: user %q: %w", username, err)
	}
	if last.Valid {
		u.LastLogin = &last.Time
	}
	return u, nil
}

// TouchLastLogin updates the user's last_login timestamp to now.
func (s *Store) TouchLastLogin(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("store: touch last login: %w", err)
	}
	return nil
}

// ---- sentences --------------------------------------------------------------

// SeedSentences inserts the given sentences only when the library is empty,
// so a packaged default library never overwrites local edits. Returns the
// number of rows inserted.
func (s *Store) SeedSentences(ctx context.Context, sentences []Sentence) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sentences`).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count sentences: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: seed sentences: %w", err)
	}
	defer tx.Rollback()

	for _, sen := range sentences {
		wc := sen.WordCount
		if wc == 0 {
			wc = len(score.Normalize(sen.Text))
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sentences (text, difficulty_level, category, word_count) VALUES (?, ?, ?, ?)`,
			sen.Text, sen.Difficulty, sen.Category, wc,
		); err != nil {
			return 0, fmt.Errorf("store: seed sentence %q: %w", sen.Text, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: seed sentences: %w", err)
	}
	return len(sentences), nil
}

// Sentences returns the whole library ordered by difficulty, then ID.
func (s *Store) Sentences(ctx context.Context) ([]Sentence, error) {
	return s.querySentences(ctx,
		`SELECT id, text, difficulty_level, category, word_count FROM sentences ORDER BY difficulty_level, id`)
}

// SentencesByDifficulty returns the library entries at the given level.
func (s *Store) SentencesByDifficulty(ctx context.Context, level int) ([]Sentence, error) {
	return s.querySentences(ctx,
		`SELECT id, text, difficulty_level, category, word_count FROM sentences WHERE difficulty_level = ? ORDER BY id`,
		level)
}

// SentenceByID fetches one sentence. Returns ErrNotFound when absent.
func (s *Store) SentenceByID(ctx context.Context, id int64) (Sentence, error) {
	var sen Sentence
	var category sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, difficulty_level, category, word_count FROM sentences WHERE id = ?`, id,
	).Scan(&sen.ID, &sen.Text, &sen.Difficulty, &category, &sen.WordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Sentence{}, ErrNotFound
	}
	if err != nil {
		return Sentence{}, fmt.Errorf("store: sentence %d: %w", id, err)
	}
	sen.Category = category.String
	return sen, nil
}

func (s *Store) querySentences(ctx context.Context, query string, args ...any) ([]Sentence, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query sentences: %w", err)
	}
	defer rows.Close()

	var out []Sentence
	for rows.Next() {
		var sen Sentence
		var category sql.NullString
		if err := rows.Scan(&sen.ID, &sen.Text, &sen.Difficulty, &category, &sen.WordCount); err != nil {
			return nil, fmt.Errorf("store: scan sentence: %w", err)
		}
		sen.Category = category.String
		out = append(out, sen)
	}
	return out, rows.Err()
}

// ---- attempts ---------------------------------------------------------------

// SaveAttempt persists a scored attempt and returns its ID. When a history
// cap is configured, the user's oldest attempts beyond the cap are pruned in
// the same transaction.
func (s *Store) SaveAttempt(ctx context.Context, a Attempt) (int64, error) {
	if a.UserID == 0 {
		return 0, errors.New("store: attempt requires a user")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: save attempt: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO recordings
		   (user_id, sentence_id, audio_file_path, transcription, target_text,
		    wer_score, accuracy_percentage, score_category, duration_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.SentenceID, a.AudioPath, a.Transcription, a.TargetText,
		a.WER, a.Accuracy, string(a.Category), a.Duration.Seconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("store: save attempt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: save attempt: %w", err)
	}

	if s.historyCap > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM recordings WHERE user_id = ? AND id NOT IN (
			   SELECT id FROM recordings WHERE user_id = ? ORDER BY recorded_at DESC, id DESC LIMIT ?
			 )`,
			a.UserID, a.UserID, s.historyCap,
		); err != nil {
			return 0, fmt.Errorf("store: prune history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: save attempt: %w", err)
	}
	return id, nil
}

// History returns the user's most recent attempts, newest first, at most
// limit rows (<=0 means 100).
func (s *Store) History(ctx context.Context, userID int64, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, sentence_id, audio_file_path, transcription, target_text,
		        wer_score, accuracy_percentage, score_category, duration_seconds, recorded_at
		 FROM recordings WHERE user_id = ?
		 ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AttemptByID fetches one attempt. Returns ErrNotFound when absent.
func (s *Store) AttemptByID(ctx context.Context, id int64) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, sentence_id, audio_file_path, transcription, target_text,
		        wer_score, accuracy_percentage, score_category, duration_seconds, recorded_at
		 FROM recordings WHERE id = ?`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return a, err
}

// DeleteAttempt removes one attempt. Returns ErrNotFound when absent.
func (s *Store) DeleteAttempt(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete attempt: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserStats aggregates the user's practice history.
func (s *Store) UserStats(ctx context.Context, userID int64) (Stats, error) {
	var st Stats
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(accuracy_percentage) FROM recordings WHERE user_id = ?`,
		userID,
	).Scan(&st.TotalAttempts, &avg)
	if err != nil {
		return Stats{}, fmt.Errorf("store: user stats: %w", err)
	}
	if avg.Valid {
		st.AverageScore = int(avg.Float64 + 0.5)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT score_category, COUNT(*) FROM recordings WHERE user_id = ? GROUP BY score_category`,
		userID,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("store: user stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return Stats{}, fmt.Errorf("store: user stats: %w", err)
		}
		switch score.Category(category) {
		case score.CategoryExcellent:
			st.Excellent = n
		case score.CategoryGood:
			st.Good = n
		case score.CategoryNeedsImprovement:
			st.NeedsImprovement = n
		}
	}
	return st, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(r rowScanner) (Attempt, error) {
	var a Attempt
	var trans, target, category sql.NullString
	var wer sql.NullFloat64
	var accuracy sql.NullInt64
	var secs sql.NullFloat64
	err := r.Scan(&a.ID, &a.UserID, &a.SentenceID, &a.AudioPath, &trans, &target,
		&wer, &accuracy, &category, &secs, &a.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, err
		}
		return Attempt{}, fmt.Errorf("store: scan attempt: %w", err)
	}
	a.Transcription = trans.String
	a.TargetText = target.String
	a.WER = wer.Float64
	a.Accuracy = int(accuracy.Int64)
	a.Category = score.Category(category.String)
	a.Duration = time.Duration(secs.Float64 * float64(time.Second))
	return a, nil
}
