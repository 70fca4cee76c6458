package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vigil-labs/vigil/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalStructured encodes the structured briefing payload for storage.
// A nil payload stores NULL.
func marshalStructured(sb *models.StructuredBriefing) (interface{}, error) {
	if sb == nil {
		return nil, nil
	}
	data, err := json.Marshal(sb)
	if err != nil {
		return nil, fmt.Errorf("marshal structured briefing failed: %w", err)
	}
	return string(data), nil
}

// marshalEntityTags encodes entity tags for storage; empty stores NULL.
func marshalEntityTags(tags []models.EntityTag) (interface{}, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal entity tags failed: %w", err)
	}
	return string(data), nil
}

// scanBriefing scans a Briefing from sql.Rows.
func scanBriefing(rows *sql.Rows) (models.Briefing, error) {
	var b models.Briefing
	var rawText, structured, shiftLabel, author sql.NullString
	var createdAt sql.NullTime
	if err := rows.Scan(&b.ID, &rawText, &structured, &createdAt, &shiftLabel, &author); err != nil {
		return b, fmt.Errorf("scan briefing failed: %w", err)
	}
	b.RawText = rawText.String
	b.ShiftLabel = shiftLabel.String
	b.Author = author.String
	if createdAt.Valid {
		b.CreatedAt = createdAt.Time
	}
	if structured.Valid && structured.String != "" {
		var sb models.StructuredBriefing
		if err := json.Unmarshal([]byte(structured.String), &sb); err != nil {
			return b, fmt.Errorf("unmarshal structured briefing failed: %w", err)
		}
		b.Structured = &sb
	}
	return b, nil
}

// scanAttentionLog scans an AttentionLog from sql.Rows.
func scanAttentionLog(rows *sql.Rows) (models.AttentionLog, error) {
	var l models.AttentionLog
	var loggedAt sql.NullTime
	if err := rows.Scan(&l.ID, &l.BriefingID, &l.ItemIndex, &l.AvgEngagement, &l.AvgFocus, &l.TimeSpentMs, &l.FlaggedMissed, &loggedAt); err != nil {
		return l, fmt.Errorf("scan attention log failed: %w", err)
	}
	if loggedAt.Valid {
		l.LoggedAt = loggedAt.Time
	}
	return l, nil
}

// scanKnowledgeEntry scans a KnowledgeEntry from sql.Rows.
func scanKnowledgeEntry(rows *sql.Rows) (models.KnowledgeEntry, error) {
	var e models.KnowledgeEntry
	var severity, entityTags sql.NullString
	var firstSeen, lastSeen sql.NullTime
	if err := rows.Scan(&e.ID, &e.MachineID, &e.IssueType, &e.Description, &severity, &firstSeen, &lastSeen, &e.OccurrenceCount, &entityTags); err != nil {
		return e, fmt.Errorf("scan knowledge entry failed: %w", err)
	}
	e.Severity = models.Severity(severity.String)
	if firstSeen.Valid {
		e.FirstSeen = firstSeen.Time
	}
	if lastSeen.Valid {
		e.LastSeen = lastSeen.Time
	}
	if entityTags.Valid && entityTags.String != "" {
		if err := json.Unmarshal([]byte(entityTags.String), &e.EntityTags); err != nil {
			return e, fmt.Errorf("unmarshal entity tags failed: %w", err)
		}
	}
	return e, nil
}
