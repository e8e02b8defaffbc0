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

	"github.com/kalambet/plainsight/internal/profile"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for profiles, patient
// history, documents, and the background job queue.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "plainsight.db")
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

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for tests and migrations tooling.
func (s *Store) DB() *sql.DB {
	return s.db
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

// --- Reader profile ---

// SaveReaderProfile upserts the singleton reader profile as JSON.
func (s *Store) SaveReaderProfile(p profile.ReaderProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding reader profile: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO reader_profile (id, profile_json, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET profile_json = excluded.profile_json, updated_at = excluded.updated_at`,
		string(data), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LoadReaderProfile returns the stored reader profile; ok is false when
// none has been saved yet.
func (s *Store) LoadReaderProfile() (profile.ReaderProfile, bool, error) {
	var data string
	err := s.db.QueryRow("SELECT profile_json FROM reader_profile WHERE id = 1").Scan(&data)
	if err == sql.ErrNoRows {
		return profile.ReaderProfile{}, false, nil
	}
	if err != nil {
		return profile.ReaderProfile{}, false, err
	}
	var p profile.ReaderProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return profile.ReaderProfile{}, false, fmt.Errorf("decoding reader profile: %w", err)
	}
	return p, true, nil
}

// --- Patients ---

// SavePatient upserts one patient profile as JSON keyed by patient ID.
func (s *Store) SavePatient(p profile.PatientProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding patient %s: %w", p.PatientID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO patients (patient_id, profile_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(patient_id) DO UPDATE SET profile_json = excluded.profile_json, updated_at = excluded.updated_at`,
		p.PatientID, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) LoadPatients() ([]profile.PatientProfile, error) {
	rows, err := s.db.Query("SELECT profile_json FROM patients")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []profile.PatientProfile
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p profile.PatientProfile
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decoding patient profile: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// --- Completions ---

func (s *Store) AppendCompletion(patientID string, c profile.CompletionRecord) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding completion for %s: %w", patientID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO completions (patient_id, record_json, created_at) VALUES (?, ?, ?)`,
		patientID, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LoadCompletions returns all completion records grouped by patient, in
// insertion order.
func (s *Store) LoadCompletions() (map[string][]profile.CompletionRecord, error) {
	rows, err := s.db.Query("SELECT patient_id, record_json FROM completions ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]profile.CompletionRecord)
	for rows.Next() {
		var patientID, data string
		if err := rows.Scan(&patientID, &data); err != nil {
			return nil, err
		}
		var c profile.CompletionRecord
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("decoding completion record: %w", err)
		}
		result[patientID] = append(result[patientID], c)
	}
	return result, rows.Err()
}

// --- Guidance sessions ---

func (s *Store) AppendGuidanceSession(g profile.GuidanceRecord) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encoding guidance for %s: %w", g.PatientID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO guidance_sessions (patient_id, record_json, created_at) VALUES (?, ?, ?)`,
		g.PatientID, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) LoadGuidanceSessions() (map[string][]profile.GuidanceRecord, error) {
	rows, err := s.db.Query("SELECT patient_id, record_json FROM guidance_sessions ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]profile.GuidanceRecord)
	for rows.Next() {
		var patientID, data string
		if err := rows.Scan(&patientID, &data); err != nil {
			return nil, err
		}
		var g profile.GuidanceRecord
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, fmt.Errorf("decoding guidance record: %w", err)
		}
		result[patientID] = append(result[patientID], g)
	}
	return result, rows.Err()
}

// --- Form adaptations ---

func (s *Store) AppendFormAdaptation(a profile.FormAdaptation) error {
	data, err := json.Marshal(a.Adaptations)
	if err != nil {
		return fmt.Errorf("encoding adaptations for %s: %w", a.PatientID, err)
	}
	createdAt := a.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err = s.db.Exec(`
		INSERT INTO form_adaptations (patient_id, form_id, adaptations_json, created_at) VALUES (?, ?, ?, ?)`,
		a.PatientID, a.FormID, string(data), createdAt,
	)
	return err
}

func (s *Store) CountFormAdaptations() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM form_adaptations").Scan(&n)
	return n, err
}

// --- Documents ---

const documentColumns = "id, title, source, content_type, content, tags, status, analysis_json, last_error, created_at, analyzed_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	var createdAt string
	var analyzedAt sql.NullString
	err := row.Scan(&d.ID, &d.Title, &d.Source, &d.ContentType, &d.Content, &d.Tags,
		&d.Status, &d.Analysis, &d.LastError, &createdAt, &analyzedAt)
	if err != nil {
		return Document{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Document{}, fmt.Errorf("parsing created_at: %w", err)
	}
	d.CreatedAt = t
	if analyzedAt.Valid && analyzedAt.String != "" {
		t, err := time.Parse(time.RFC3339, analyzedAt.String)
		if err != nil {
			return Document{}, fmt.Errorf("parsing analyzed_at: %w", err)
		}
		d.AnalyzedAt = t
	}
	return d, nil
}

func (s *Store) SaveDocument(d Document) error {
	status := d.Status
	if status == "" {
		status = "queued"
	}
	tags := d.Tags
	if tags == "" {
		tags = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO documents (id, title, source, content_type, content, tags, status, analysis_json, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Source, d.ContentType, d.Content, tags, status, d.Analysis, d.LastError,
		d.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetDocument(id string) (Document, error) {
	row := s.db.QueryRow("SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	return d, err
}

func (s *Store) ListDocuments(limit, offset int) ([]Document, error) {
	rows, err := s.db.Query(
		"SELECT "+documentColumns+" FROM documents ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

func (s *Store) CountDocuments() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}

func (s *Store) SetDocumentStatus(id, status string) error {
	res, err := s.db.Exec("UPDATE documents SET status = ? WHERE id = ?", status, id)
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

// SetDocumentAnalysis stores the finished analysis and marks the
// document analyzed.
func (s *Store) SetDocumentAnalysis(id, analysisJSON string, analyzedAt time.Time) error {
	res, err := s.db.Exec(`
		UPDATE documents SET status = 'analyzed', analysis_json = ?, last_error = '', analyzed_at = ? WHERE id = ?`,
		analysisJSON, analyzedAt.UTC().Format(time.RFC3339), id,
	)
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

func (s *Store) FailDocument(id, errMsg string) error {
	res, err := s.db.Exec("UPDATE documents SET status = 'failed', last_error = ? WHERE id = ?", errMsg, id)
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

func (s *Store) DeleteDocument(id string) error {
	res, err := s.db.Exec("DELETE FROM documents WHERE id = ?", id)
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
