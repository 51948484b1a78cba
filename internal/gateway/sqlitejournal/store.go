// Package sqlitejournal stores the immutable decision audit trail in SQLite.
package sqlitejournal

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"replenishment-service/internal/gateway"
	"replenishment-service/internal/modal"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNotFound is returned when no entry has the requested journal id.
var ErrNotFound = errors.New("journal entry not found")

// Entry is one persisted journal row.
type Entry struct {
	ID         int64        `json:"-"`
	JournalID  string       `json:"journal_id"`
	EventType  string       `json:"event_type"`
	SKUID      string       `json:"sku_id"`
	LocationID string       `json:"location_id"`
	Action     modal.Action `json:"action"`
	Risk       float64      `json:"risk"`
	Record     modal.Record `json:"record"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Store provides append-only SQLite journal persistence.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a journal SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Log appends one entry for the record snapshot and returns its journal id.
func (s *Store) Log(ctx context.Context, eventType string, rec modal.Record) (gateway.JournalReceipt, error) {
	if err := ctx.Err(); err != nil {
		return gateway.JournalReceipt{}, err
	}
	if s == nil || s.sqlDB == nil {
		return gateway.JournalReceipt{}, fmt.Errorf("storage is not configured")
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return gateway.JournalReceipt{}, fmt.Errorf("event type is required")
	}
	if strings.TrimSpace(rec.SKUID) == "" || strings.TrimSpace(rec.LocationID) == "" {
		return gateway.JournalReceipt{}, fmt.Errorf("sku id and location id are required")
	}

	snapshot, err := json.Marshal(rec)
	if err != nil {
		return gateway.JournalReceipt{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	var action modal.Action
	var risk float64
	if rec.Decision != nil {
		action = rec.Decision.Action
		risk = rec.Decision.Risk
	} else if rec.Features != nil {
		risk = rec.Features.Risk
	}

	journalID := "jrnl-" + uuid.NewString()
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO journal_entries (
	journal_id,
	event_type,
	sku_id,
	location_id,
	action,
	risk,
	snapshot,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		journalID,
		eventType,
		rec.SKUID,
		rec.LocationID,
		string(action),
		risk,
		string(snapshot),
		s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return gateway.JournalReceipt{}, fmt.Errorf("insert journal entry: %w", err)
	}
	return gateway.JournalReceipt{JournalID: journalID}, nil
}

// Get loads one entry by journal id.
func (s *Store) Get(ctx context.Context, journalID string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, selectEntries+`WHERE journal_id = ?`, strings.TrimSpace(journalID))
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get journal entry: %w", err)
	}
	return entry, nil
}

// List returns newest-first entries.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, selectEntries+`ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return entries, nil
}

const selectEntries = `
SELECT
	id,
	journal_id,
	event_type,
	sku_id,
	location_id,
	action,
	risk,
	snapshot,
	created_at
FROM journal_entries
`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var entry Entry
	var action, snapshot string
	var createdAt int64
	if err := sc.Scan(
		&entry.ID,
		&entry.JournalID,
		&entry.EventType,
		&entry.SKUID,
		&entry.LocationID,
		&action,
		&entry.Risk,
		&snapshot,
		&createdAt,
	); err != nil {
		return Entry{}, err
	}
	entry.Action = modal.Action(action)
	entry.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(snapshot), &entry.Record); err != nil {
		return Entry{}, fmt.Errorf("decode snapshot: %w", err)
	}
	entry.Record.JournalID = entry.JournalID
	return entry, nil
}

func applyMigrations(sqlDB *sql.DB) error {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := sqlDB.Exec(string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
	}
	return nil
}
