package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/knowater521/doctor/internal/model"
)

// ArchiveDB stores per-run summaries of parsed consensuses.
// It manages connection pooling and provides methods for insert and query.
type ArchiveDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ArchiveDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent read
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an ArchiveDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*ArchiveDB, error) {
	dbPath := filepath.Join(dbDir, "doctor.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; doctor writes once per authority per
	// run, so a single connection is plenty.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &ArchiveDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *ArchiveDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *ArchiveDB) createTables() error {
	schema := `
	-- One row per parsed consensus per run
	CREATE TABLE IF NOT EXISTS statuses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		authority TEXT NOT NULL,
		valid_after INTEGER NOT NULL,
		fetch_time INTEGER NOT NULL,
		running_relays INTEGER NOT NULL,
		entry_count INTEGER NOT NULL,
		linked_votes INTEGER NOT NULL,
		known_flags TEXT,
		consensus_params TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_statuses_authority ON statuses(authority);
	CREATE INDEX IF NOT EXISTS idx_statuses_valid_after ON statuses(valid_after);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// StatusRecord is one archived consensus summary.
type StatusRecord struct {
	ID              int64
	Authority       string
	ValidAfter      time.Time
	FetchTime       time.Time
	RunningRelays   int
	EntryCount      int
	LinkedVotes     int
	KnownFlags      []string
	ConsensusParams map[string]string
}

// SaveStatus archives a summary of the consensus retrieved from the given
// authority. Timestamps are stored as epoch milliseconds; flag and
// parameter sets as JSON.
func (adb *ArchiveDB) SaveStatus(ctx context.Context, authority string, doc *model.StatusDocument) (int64, error) {
	flagsJSON, err := json.Marshal(doc.KnownFlags)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize known flags: %w", err)
	}
	paramsJSON, err := json.Marshal(doc.ConsensusParams)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize consensus params: %w", err)
	}

	query := `
	INSERT INTO statuses (authority, valid_after, fetch_time, running_relays, entry_count, linked_votes, known_flags, consensus_params)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := adb.db.ExecContext(ctx, query,
		authority,
		doc.ValidAfter.UnixMilli(),
		doc.FetchTime.UnixMilli(),
		doc.RunningRelays,
		len(doc.Entries),
		len(doc.LinkedVotes),
		string(flagsJSON),
		string(paramsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert status record: %w", err)
	}

	return result.LastInsertId()
}

// History returns the most recent archived summaries for an authority,
// newest first, up to limit rows.
func (adb *ArchiveDB) History(ctx context.Context, authority string, limit int) ([]StatusRecord, error) {
	query := `
	SELECT id, authority, valid_after, fetch_time, running_relays, entry_count, linked_votes, known_flags, consensus_params
	FROM statuses
	WHERE authority = ?
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := adb.db.QueryContext(ctx, query, authority, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var records []StatusRecord
	for rows.Next() {
		record, err := scanStatusRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status history: %w", err)
	}
	return records, nil
}

// Authorities lists every authority with at least one archived summary.
func (adb *ArchiveDB) Authorities(ctx context.Context) ([]string, error) {
	rows, err := adb.db.QueryContext(ctx, `SELECT DISTINCT authority FROM statuses ORDER BY authority`)
	if err != nil {
		return nil, fmt.Errorf("failed to query authorities: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var authorities []string
	for rows.Next() {
		var authority string
		if err := rows.Scan(&authority); err != nil {
			return nil, fmt.Errorf("failed to scan authority: %w", err)
		}
		authorities = append(authorities, authority)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authorities: %w", err)
	}
	return authorities, nil
}

// Latest returns the newest archived summary for an authority, or nil when
// none exists.
func (adb *ArchiveDB) Latest(ctx context.Context, authority string) (*StatusRecord, error) {
	records, err := adb.History(ctx, authority, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// scanStatusRecord reads one row of the statuses projection used by History.
func scanStatusRecord(rows *sql.Rows) (StatusRecord, error) {
	var record StatusRecord
	var validAfter, fetchTime int64
	var flagsJSON, paramsJSON sql.NullString

	if err := rows.Scan(
		&record.ID,
		&record.Authority,
		&validAfter,
		&fetchTime,
		&record.RunningRelays,
		&record.EntryCount,
		&record.LinkedVotes,
		&flagsJSON,
		&paramsJSON,
	); err != nil {
		return StatusRecord{}, fmt.Errorf("failed to scan status record: %w", err)
	}

	record.ValidAfter = time.UnixMilli(validAfter).UTC()
	record.FetchTime = time.UnixMilli(fetchTime).UTC()

	if flagsJSON.Valid && flagsJSON.String != "" {
		if err := json.Unmarshal([]byte(flagsJSON.String), &record.KnownFlags); err != nil {
			return StatusRecord{}, fmt.Errorf("failed to parse known flags: %w", err)
		}
	}
	if paramsJSON.Valid && paramsJSON.String != "" {
		if err := json.Unmarshal([]byte(paramsJSON.String), &record.ConsensusParams); err != nil {
			return StatusRecord{}, fmt.Errorf("failed to parse consensus params: %w", err)
		}
	}
	return record, nil
}
