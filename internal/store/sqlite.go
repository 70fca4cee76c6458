// Package store provides storage backends for Vigil.
//
// This file implements an SQLite-backed store for briefings, attention
// logs, and knowledge entries.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vigil-labs/vigil/internal/models"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveBriefing(b models.Briefing) error {
	structured, err := marshalStructured(b.Structured)
	if err != nil {
		slog.Error("SQLiteStore SaveBriefing marshal failed", "error", err, "id", b.ID)
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO briefings (id, raw_text, structured, created_at, shift_label, author) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.RawText, structured, b.CreatedAt, nilIfEmpty(b.ShiftLabel), nilIfEmpty(b.Author),
	)
	if err != nil {
		slog.Error("SQLiteStore SaveBriefing failed", "error", err, "id", b.ID)
		return fmt.Errorf("failed to insert briefing %s: %w", b.ID, err)
	}
	slog.Debug("SQLiteStore SaveBriefing succeeded", "id", b.ID)
	return nil
}

func (s *SQLiteStore) GetBriefing(id string) (*models.Briefing, error) {
	rows, err := s.db.Query(
		`SELECT id, raw_text, structured, created_at, shift_label, author FROM briefings WHERE id = ?`, id,
	)
	if err != nil {
		slog.Error("SQLiteStore GetBriefing query failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query briefing: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	b, err := scanBriefing(rows)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *SQLiteStore) ListBriefings() ([]models.Briefing, error) {
	rows, err := s.db.Query(
		`SELECT id, raw_text, structured, created_at, shift_label, author FROM briefings ORDER BY created_at DESC`,
	)
	if err != nil {
		slog.Error("SQLiteStore ListBriefings query failed", "error", err)
		return nil, fmt.Errorf("failed to query briefings: %w", err)
	}
	defer rows.Close()

	var briefings []models.Briefing
	for rows.Next() {
		b, err := scanBriefing(rows)
		if err != nil {
			return nil, err
		}
		briefings = append(briefings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate briefing rows: %w", err)
	}
	slog.Debug("SQLiteStore ListBriefings succeeded", "count", len(briefings))
	return briefings, nil
}

func (s *SQLiteStore) AddAttentionLogs(logs []models.AttentionLog) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin attention log transaction: %w", err)
	}
	for _, l := range logs {
		_, err := tx.Exec(
			`INSERT INTO attention_logs (briefing_id, item_index, avg_engagement, avg_focus, time_spent_ms, flagged_missed, logged_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.BriefingID, l.ItemIndex, l.AvgEngagement, l.AvgFocus, l.TimeSpentMs, l.FlaggedMissed, l.LoggedAt,
		)
		if err != nil {
			tx.Rollback()
			slog.Error("SQLiteStore AddAttentionLogs failed", "error", err, "briefingID", l.BriefingID, "itemIndex", l.ItemIndex)
			return fmt.Errorf("failed to insert attention log for item %d: %w", l.ItemIndex, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attention logs: %w", err)
	}
	slog.Debug("SQLiteStore AddAttentionLogs succeeded", "count", len(logs))
	return nil
}

func (s *SQLiteStore) GetMissedItems(briefingID string) ([]models.AttentionLog, error) {
	rows, err := s.db.Query(
		`SELECT id, briefing_id, item_index, avg_engagement, avg_focus, time_spent_ms, flagged_missed, logged_at FROM attention_logs WHERE briefing_id = ? AND flagged_missed = 1`,
		briefingID,
	)
	if err != nil {
		slog.Error("SQLiteStore GetMissedItems query failed", "error", err, "briefingID", briefingID)
		return nil, fmt.Errorf("failed to query missed items: %w", err)
	}
	defer rows.Close()

	var logs []models.AttentionLog
	for rows.Next() {
		l, err := scanAttentionLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attention log rows: %w", err)
	}
	return logs, nil
}

func (s *SQLiteStore) PruneAttentionLogs(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM attention_logs WHERE logged_at < ?`, olderThan)
	if err != nil {
		slog.Error("SQLiteStore PruneAttentionLogs failed", "error", err)
		return 0, fmt.Errorf("failed to prune attention logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	slog.Debug("SQLiteStore PruneAttentionLogs succeeded", "pruned", n)
	return n, nil
}

func (s *SQLiteStore) UpsertKnowledgeEntry(e models.KnowledgeEntry) error {
	tags, err := marshalEntityTags(e.EntityTags)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO knowledge_entries (machine_id, issue_type, description, severity, first_seen, last_seen, occurrence_count, entity_tags)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		 ON CONFLICT(machine_id, issue_type, description) DO UPDATE SET
		   occurrence_count = occurrence_count + 1,
		   last_seen = excluded.last_seen,
		   severity = excluded.severity,
		   entity_tags = excluded.entity_tags`,
		e.MachineID, e.IssueType, e.Description, string(e.Severity), e.FirstSeen, e.LastSeen, tags,
	)
	if err != nil {
		slog.Error("SQLiteStore UpsertKnowledgeEntry failed", "error", err, "machineID", e.MachineID)
		return fmt.Errorf("failed to upsert knowledge entry for %s: %w", e.MachineID, err)
	}
	slog.Debug("SQLiteStore UpsertKnowledgeEntry succeeded", "machineID", e.MachineID, "issueType", e.IssueType)
	return nil
}

func (s *SQLiteStore) ListKnowledgeEntries() ([]models.KnowledgeEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, machine_id, issue_type, description, severity, first_seen, last_seen, occurrence_count, entity_tags FROM knowledge_entries ORDER BY occurrence_count DESC, last_seen DESC`,
	)
	if err != nil {
		slog.Error("SQLiteStore ListKnowledgeEntries query failed", "error", err)
		return nil, fmt.Errorf("failed to query knowledge entries: %w", err)
	}
	defer rows.Close()

	var entries []models.KnowledgeEntry
	for rows.Next() {
		e, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate knowledge rows: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
