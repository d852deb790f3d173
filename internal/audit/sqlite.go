package audit

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"forg/internal/audit/migrations"
	"forg/internal/model"
	"forg/internal/organizer"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteLog implements organizer.AuditLog on a SQLite database.
//
// Writes are serialized through a mutex: the log is the one shared mutable
// resource of a run and the underlying store expects one in-flight write at a
// time. Reads run without the write lock and observe a consistent snapshot as
// of query time.
type SQLiteLog struct {
	db   *sql.DB
	path string
	mu   sync.Mutex // serializes writers
}

var _ organizer.AuditLog = (*SQLiteLog)(nil)

// NewSQLiteLog opens (or creates) the audit database at path and brings its
// schema up to date. path can be ":memory:" for tests.
func NewSQLiteLog(path string) (*SQLiteLog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating audit database: %w", err)
	}

	return &SQLiteLog{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured
// SQLite connection. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each pooled connection to ":memory:" would get its own empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Wait for locks instead of failing immediately; the worker pool can
	// race readers against the serialized writer.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Append writes one operation entry. Storage failures wrap
// organizer.ErrStorage so callers can decide whether to continue in memory
// or abort — the append never fails silently.
func (l *SQLiteLog) Append(entry model.OperationLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var dest any
	if entry.DestinationPath != "" {
		dest = entry.DestinationPath
	}

	_, err := l.db.Exec(`
		INSERT INTO operations (timestamp, operation_type, source_path, destination_path, status, details)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, string(entry.Type), entry.SourcePath, dest, string(entry.Status), entry.Details)
	if err != nil {
		return fmt.Errorf("%w: appending operation: %v", organizer.ErrStorage, err)
	}
	return nil
}

// RecordMetadata upserts the snapshot for its path; the latest write wins.
func (l *SQLiteLog) RecordMetadata(snapshot model.FileMetadataSnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`
		INSERT OR REPLACE INTO file_metadata (path, hash, type, size, modified, created)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snapshot.Path, snapshot.Hash, snapshot.MimeType, snapshot.Size, snapshot.ModifiedAt, snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: recording metadata: %v", organizer.ErrStorage, err)
	}
	return nil
}

// LatestMetadata returns the current snapshot for a path, or nil if the path
// has never been recorded.
func (l *SQLiteLog) LatestMetadata(path string) (*model.FileMetadataSnapshot, error) {
	row := l.db.QueryRow(`
		SELECT path, hash, type, size, modified, created
		FROM file_metadata WHERE path = ?`, path)

	var snap model.FileMetadataSnapshot
	err := row.Scan(&snap.Path, &snap.Hash, &snap.MimeType, &snap.Size, &snap.ModifiedAt, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading metadata: %v", organizer.ErrStorage, err)
	}
	return &snap, nil
}

// History returns the most recent entries, newest first, bounded by limit.
func (l *SQLiteLog) History(limit int) ([]model.OperationLogEntry, error) {
	rows, err := l.db.Query(`
		SELECT id, timestamp, operation_type, source_path, destination_path, status, details
		FROM operations ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: listing operations: %v", organizer.ErrStorage, err)
	}
	defer rows.Close()

	var entries []model.OperationLogEntry
	for rows.Next() {
		var e model.OperationLogEntry
		var opType, status string
		var dest sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &opType, &e.SourcePath, &dest, &status, &e.Details); err != nil {
			return nil, fmt.Errorf("%w: scanning operation: %v", organizer.ErrStorage, err)
		}
		e.Type = model.OperationType(opType)
		e.Status = model.OperationStatus(status)
		e.DestinationPath = dest.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating operations: %v", organizer.ErrStorage, err)
	}
	return entries, nil
}

// Report aggregates operations by (type, status) within the optional window.
// An empty log yields a zero success rate, never a division fault.
func (l *SQLiteLog) Report(start, end *time.Time) (*model.Report, error) {
	query := `
		SELECT operation_type, status, COUNT(*)
		FROM operations
		WHERE 1=1`
	var args []any
	if start != nil {
		query += " AND timestamp >= ?"
		args = append(args, *start)
	}
	if end != nil {
		query += " AND timestamp <= ?"
		args = append(args, *end)
	}
	query += " GROUP BY operation_type, status ORDER BY operation_type, status"

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: aggregating operations: %v", organizer.ErrStorage, err)
	}
	defer rows.Close()

	report := &model.Report{}
	var successes int64
	for rows.Next() {
		var opType, status string
		var count int64
		if err := rows.Scan(&opType, &status, &count); err != nil {
			return nil, fmt.Errorf("%w: scanning report row: %v", organizer.ErrStorage, err)
		}
		report.Counts = append(report.Counts, model.OperationCount{
			Type:   model.OperationType(opType),
			Status: model.OperationStatus(status),
			Count:  count,
		})
		report.TotalOperations += count
		if model.OperationStatus(status) == model.StatusSuccess {
			successes += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating report rows: %v", organizer.ErrStorage, err)
	}

	if report.TotalOperations > 0 {
		report.SuccessRate = float64(successes) / float64(report.TotalOperations)
	}
	return report, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (l *SQLiteLog) Path() string {
	return l.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (l *SQLiteLog) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(l.db)
}

// Close closes the database connection.
func (l *SQLiteLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
