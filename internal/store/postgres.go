// Package store provides storage backends for Vigil.
//
// This file implements a PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/vigil-labs/vigil/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveBriefing(b models.Briefing) error {
	structured, err := marshalStructured(b.Structured)
	if err != nil {
		slog.Error("PostgresStore SaveBriefing marshal failed", "error", err, "id", b.ID)
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO briefings (id, raw_text, structured, created_at, shift_label, author) VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.RawText, structured, b.CreatedAt, nilIfEmpty(b.ShiftLabel), nilIfEmpty(b.Author),
	)
	if err != nil {
		slog.Error("PostgresStore SaveBriefing failed", "error", err, "id", b.ID)
		return fmt.Errorf("failed to insert briefing %s: %w", b.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetBriefing(id string) (*models.Briefing, error) {
	rows, err := s.db.Query(
		`SELECT id, raw_text, structured, created_at, shift_label, author FROM briefings WHERE id = $1`, id,
	)
	if err != nil {
		slog.Error("PostgresStore GetBriefing query failed", "error", err, "id", id)
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

func (s *PostgresStore) ListBriefings() ([]models.Briefing, error) {
	rows, err := s.db.Query(
		`SELECT id, raw_text, structured, created_at, shift_label, author FROM briefings ORDER BY created_at DESC`,
	)
	if err != nil {
		slog.Error("PostgresStore ListBriefings query failed", "error", err)
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
	return briefings, nil
}

func (s *PostgresStore) AddAttentionLogs(logs []models.AttentionLog) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin attention log transaction: %w", err)
	}
	for _, l := range logs {
		_, err := tx.Exec(
			`INSERT INTO attention_logs (briefing_id, item_index, avg_engagement, avg_focus, time_spent_ms, flagged_missed, logged_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			l.BriefingID, l.ItemIndex, l.AvgEngagement, l.AvgFocus, l.TimeSpentMs, l.FlaggedMissed, l.LoggedAt,
		)
		if err != nil {
			tx.Rollback()
			slog.Error("PostgresStore AddAttentionLogs failed", "error", err, "briefingID", l.BriefingID, "itemIndex", l.ItemIndex)
			return fmt.Errorf("failed to insert attention log for item %d: %w", l.ItemIndex, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attention logs: %w", err)
	}
	slog.Debug("PostgresStore AddAttentionLogs succeeded", "count", len(logs))
	return nil
}

func (s *PostgresStore) GetMissedItems(briefingID string) ([]models.AttentionLog, error) {
	rows, err := s.db.Query(
		`SELECT id, briefing_id, item_index, avg_engagement, avg_focus, time_spent_ms, flagged_missed, logged_at FROM attention_logs WHERE briefing_id = $1 AND flagged_missed = TRUE`,
		briefingID,
	)
	if err != nil {
		slog.Error("PostgresStore GetMissedItems query failed", "error", err, "briefingID", briefingID)
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

func (s *PostgresStore) PruneAttentionLogs(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM attention_logs WHERE logged_at < $1`, olderThan)
	if err != nil {
		slog.Error("PostgresStore PruneAttentionLogs failed", "error", err)
		return 0, fmt.Errorf("failed to prune attention logs: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) UpsertKnowledgeEntry(e models.KnowledgeEntry) error {
	tags, err := marshalEntityTags(e.EntityTags)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO knowledge_entries (machine_id, issue_type, description, severity, first_seen, last_seen, occurrence_count, entity_tags)
		 VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
		 ON CONFLICT (machine_id, issue_type, description) DO UPDATE SET
		   occurrence_count = knowledge_entries.occurrence_count + 1,
		   last_seen = EXCLUDED.last_seen,
		   severity = EXCLUDED.severity,
		   entity_tags = EXCLUDED.entity_tags`,
		e.MachineID, e.IssueType, e.Description, string(e.Severity), e.FirstSeen, e.LastSeen, tags,
	)
	if err != nil {
		slog.Error("PostgresStore UpsertKnowledgeEntry failed", "error", err, "machineID", e.MachineID)
		return fmt.Errorf("failed to upsert knowledge entry for %s: %w", e.MachineID, err)
	}
	return nil
}

func (s *PostgresStore) ListKnowledgeEntries() ([]models.KnowledgeEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, machine_id, issue_type, description, severity, first_seen, last_seen, occurrence_count, entity_tags FROM knowledge_entries ORDER BY occurrence_count DESC, last_seen DESC`,
	)
	if err != nil {
		slog.Error("PostgresStore ListKnowledgeEntries query failed", "error", err)
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
