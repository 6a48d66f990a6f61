package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const dbFileName = "tca.db"

// Store wraps a SQLite database with methods for conversations, raw
// transcripts, and the annotation job queue.
type Store struct {
	db *sql.DB
	ro *sql.DB // query_only handle for the analytics executor
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests); in that mode the read-only handle aliases the main one, since a
// second in-memory connection would see a different database.
func Open(dataDir string) (*Store, error) {
	var dsn string
	inMemory := dataDir == ":memory:"
	if inMemory {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, dbFileName)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if inMemory {
		s.ro = db
		return s, nil
	}

	// Separate query_only connection: defense in depth under the SQL safety
	// gate. Statements that slip past validation still cannot write.
	ro, err := sql.Open("sqlite", dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening read-only handle: %w", err)
	}
	ro.SetMaxOpenConns(1)
	if _, err := ro.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		ro.Close()
		db.Close()
		return nil, fmt.Errorf("configuring read-only handle: %w", err)
	}
	if _, err := ro.Exec("PRAGMA query_only = ON"); err != nil {
		ro.Close()
		db.Close()
		return nil, fmt.Errorf("enabling query_only: %w", err)
	}
	s.ro = ro

	return s, nil
}

// Close closes the underlying database connections.
func (s *Store) Close() error {
	if s.ro != nil && s.ro != s.db {
		s.ro.Close()
	}
	return s.db.Close()
}

// ReadOnlyDB returns the handle the analytics executor must use. Writes on
// this handle fail at the driver level regardless of statement content.
func (s *Store) ReadOnlyDB() *sql.DB {
	return s.ro
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Conversations ---

const conversationColumns = `conversation_id, user_id, transcript, customer_sentiment,
	dominant_customer_emotion, customer_sentiment_confidence, date, notes,
	topics, keywords, angry_transcript, resolution_status, language, created_at`

// SaveConversation performs an idempotent insert keyed by conversation_id.
// Re-inserting a byte-identical record is a no-op; the same key with a
// different payload returns ErrConflict.
func (s *Store) SaveConversation(c Conversation) error {
	existing, err := s.GetConversation(c.ConversationID)
	if err == nil {
		if conversationsEqual(existing, c) {
			return nil
		}
		return ErrConflict
	}
	if err != ErrNotFound {
		return err
	}
	return s.insertConversation(c)
}

// UpsertConversation inserts the record, overwriting any existing row with
// the same conversation_id. Callers must request this explicitly; the
// default write path is SaveConversation.
func (s *Store) UpsertConversation(c Conversation) error {
	topics, keywords, err := marshalLabelArrays(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			user_id = excluded.user_id,
			transcript = excluded.transcript,
			customer_sentiment = excluded.customer_sentiment,
			dominant_customer_emotion = excluded.dominant_customer_emotion,
			customer_sentiment_confidence = excluded.customer_sentiment_confidence,
			date = excluded.date,
			notes = excluded.notes,
			topics = excluded.topics,
			keywords = excluded.keywords,
			angry_transcript = excluded.angry_transcript,
			resolution_status = excluded.resolution_status,
			language = excluded.language`,
		c.ConversationID, nullString(c.UserID), c.Transcript, c.CustomerSentiment,
		c.DominantCustomerEmotion, c.CustomerSentimentConfidence, c.Date, c.Notes,
		topics, keywords, boolInt(c.AngryTranscript), c.ResolutionStatus, c.Language,
		c.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) insertConversation(c Conversation) error {
	topics, keywords, err := marshalLabelArrays(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ConversationID, nullString(c.UserID), c.Transcript, c.CustomerSentiment,
		c.DominantCustomerEmotion, c.CustomerSentimentConfidence, c.Date, c.Notes,
		topics, keywords, boolInt(c.AngryTranscript), c.ResolutionStatus, c.Language,
		c.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetConversation(id string) (Conversation, error) {
	row := s.db.QueryRow(`SELECT `+conversationColumns+` FROM conversations WHERE conversation_id = ?`, id)
	return scanConversation(row)
}

// ListConversations returns conversations ordered by creation time descending.
func (s *Store) ListConversations(limit, offset int) ([]Conversation, error) {
	rows, err := s.db.Query(`
		SELECT `+conversationColumns+` FROM conversations
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// CountConversations returns the total number of stored conversations.
func (s *Store) CountConversations() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (Conversation, error) {
	var c Conversation
	var userID sql.NullString
	var topics, keywords, createdAt string
	var angry int
	err := row.Scan(
		&c.ConversationID, &userID, &c.Transcript, &c.CustomerSentiment,
		&c.DominantCustomerEmotion, &c.CustomerSentimentConfidence, &c.Date, &c.Notes,
		&topics, &keywords, &angry, &c.ResolutionStatus, &c.Language, &createdAt,
	)
	if err == sql.ErrNoRows {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, err
	}
	c.UserID = userID.String
	c.AngryTranscript = angry != 0
	if err := json.Unmarshal([]byte(topics), &c.Topics); err != nil {
		return Conversation{}, fmt.Errorf("parsing topics: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &c.Keywords); err != nil {
		return Conversation{}, fmt.Errorf("parsing keywords: %w", err)
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Conversation{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return c, nil
}

func marshalLabelArrays(c Conversation) (topics, keywords string, err error) {
	tb, err := json.Marshal(emptyIfNil(c.Topics))
	if err != nil {
		return "", "", fmt.Errorf("marshalling topics: %w", err)
	}
	kb, err := json.Marshal(emptyIfNil(c.Keywords))
	if err != nil {
		return "", "", fmt.Errorf("marshalling keywords: %w", err)
	}
	return string(tb), string(kb), nil
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// conversationsEqual compares the persisted payload fields. CreatedAt is
// excluded: a re-run of the same transcript carries a new wall-clock time
// but is still the same record.
func conversationsEqual(a, b Conversation) bool {
	if a.ConversationID != b.ConversationID ||
		a.UserID != b.UserID ||
		a.Transcript != b.Transcript ||
		a.CustomerSentiment != b.CustomerSentiment ||
		a.DominantCustomerEmotion != b.DominantCustomerEmotion ||
		a.CustomerSentimentConfidence != b.CustomerSentimentConfidence ||
		a.Date != b.Date ||
		a.Notes != b.Notes ||
		a.AngryTranscript != b.AngryTranscript ||
		a.ResolutionStatus != b.ResolutionStatus ||
		a.Language != b.Language {
		return false
	}
	return stringSlicesEqual(a.Topics, b.Topics) && stringSlicesEqual(a.Keywords, b.Keywords)
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Transcripts ---

func (s *Store) SaveTranscript(t Transcript) error {
	status := t.Status
	if status == "" {
		status = TranscriptPending
	}
	// Transcripts are staging records: re-submitting an id replaces the
	// staged content and resets its lifecycle.
	_, err := s.db.Exec(`
		INSERT INTO transcripts (id, user_id, date, time, content, status, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			date = excluded.date,
			time = excluded.time,
			content = excluded.content,
			status = excluded.status,
			last_error = excluded.last_error`,
		t.ID, nullString(t.UserID), t.Date, t.Time, t.Content, status, t.LastError,
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetTranscript(id string) (Transcript, error) {
	var t Transcript
	var userID sql.NullString
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, user_id, date, time, content, status, last_error, created_at
		FROM transcripts WHERE id = ?`, id,
	).Scan(&t.ID, &userID, &t.Date, &t.Time, &t.Content, &t.Status, &t.LastError, &createdAt)
	if err == sql.ErrNoRows {
		return Transcript{}, ErrNotFound
	}
	if err != nil {
		return Transcript{}, err
	}
	t.UserID = userID.String
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Transcript{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return t, nil
}

// UpdateTranscriptStatus records the annotation outcome for a raw transcript.
func (s *Store) UpdateTranscriptStatus(id, status, lastError string) error {
	res, err := s.db.Exec(`UPDATE transcripts SET status = ?, last_error = ? WHERE id = ?`, status, lastError, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Jobs ---

func (s *Store) EnqueueJob(job Job) error {
	now := time.Now().UTC().Format(time.RFC3339)
	runAfter := now
	if !job.RunAfter.IsZero() {
		runAfter = job.RunAfter.UTC().Format(time.RFC3339)
	}
	maxAttempts := job.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?, ?, ?)`,
		job.ID, job.Type, job.PayloadJSON, maxAttempts, runAfter, now, now,
	)
	return err
}

func (s *Store) ClaimNextJob(types []string) (*Job, error) {
	if len(types) == 0 {
		return nil, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	placeholders := strings.Repeat(",?", len(types)-1)
	query := `SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error
		FROM jobs
		WHERE status = 'pending' AND run_after <= ? AND type IN (?` + placeholders + `)
		ORDER BY run_after ASC, created_at ASC
		LIMIT 1`

	args := make([]interface{}, 0, len(types)+1)
	args = append(args, now)
	for _, t := range types {
		args = append(args, t)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}

	var j Job
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	err = tx.QueryRow(query, args...).Scan(
		&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &j.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError,
	)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("selecting next job: %w", err)
	}

	res, err := tx.Exec(`UPDATE jobs SET status = 'running', updated_at = ? WHERE id = ? AND status = 'pending'`, now, j.ID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("updating job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("checking updated job rows: %w", err)
	}
	if n != 1 {
		tx.Rollback()
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	j.Status = "running"
	j.LastError = lastError.String
	if j.RunAfter, err = time.Parse(time.RFC3339, runAfter); err != nil {
		return nil, fmt.Errorf("parsing run_after for job %s: %w", j.ID, err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for job %s: %w", j.ID, err)
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339, now); err != nil {
		return nil, fmt.Errorf("parsing updated_at for job %s: %w", j.ID, err)
	}
	return &j, nil
}

func (s *Store) CompleteJob(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE jobs SET status = 'completed', updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) FailJob(id string, errMsg string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning fail transaction: %w", err)
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRow(`SELECT attempts, max_attempts FROM jobs WHERE id = ?`, id).Scan(&attempts, &maxAttempts)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	attempts++

	if attempts >= maxAttempts {
		_, err = tx.Exec(`UPDATE jobs SET status = 'failed', attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, now.Format(time.RFC3339), id)
	} else {
		backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
		runAfter := now.Add(backoff)
		_, err = tx.Exec(`UPDATE jobs SET status = 'pending', attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, runAfter.Format(time.RFC3339), now.Format(time.RFC3339), id)
	}

	if err != nil {
		return err
	}

	return tx.Commit()
}
