package models

import (
	"errors"
	"time"
)

// Severity grades how urgent a briefing item is.
type Severity string

const (
	// SeverityCritical marks safety hazards and dangerous conditions.
	SeverityCritical Severity = "critical"
	// SeverityWarning marks equipment problems and quality issues.
	SeverityWarning Severity = "warning"
	// SeverityInfo marks production updates and general notes.
	SeverityInfo Severity = "info"
)

// Category classifies what part of the operation a briefing item concerns.
type Category string

const (
	CategorySafety      Category = "safety"
	CategoryMaintenance Category = "maintenance"
	CategoryQuality     Category = "quality"
	CategoryProduction  Category = "production"
	CategoryGeneral     Category = "general"
)

// Error variables for briefing validation.
var (
	ErrEmptyRawText    = errors.New("briefing raw text cannot be empty")
	ErrNoItems         = errors.New("briefing must contain at least one item")
	ErrInvalidSeverity = errors.New("invalid item severity")
	ErrInvalidCategory = errors.New("invalid item category")
)

// IsValidSeverity checks if the given severity is supported.
func IsValidSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// IsValidCategory checks if the given category is supported.
func IsValidCategory(c Category) bool {
	switch c {
	case CategorySafety, CategoryMaintenance, CategoryQuality, CategoryProduction, CategoryGeneral:
		return true
	default:
		return false
	}
}

// EntityTag is a named entity associated with a briefing item (machine,
// part, or failure mode).
type EntityTag struct {
	Text string `json:"text" yaml:"text"`
	Type string `json:"type" yaml:"type"`
}

// BriefingItem is one unit of reviewable content. The review core only ever
// references items by their position in the briefing's ordered item list;
// the display attributes belong to the briefing collaborator.
type BriefingItem struct {
	ID             int         `json:"id" yaml:"id"`
	MachineID      string      `json:"machine_id" yaml:"machine_id"`
	Category       Category    `json:"category" yaml:"category"`
	Severity       Severity    `json:"severity" yaml:"severity"`
	Title          string      `json:"title" yaml:"title"`
	Details        string      `json:"details" yaml:"details"`
	ActionRequired string      `json:"action_required" yaml:"action_required"`
	Entities       []EntityTag `json:"entities,omitempty" yaml:"entities,omitempty"`
}

// StructuredBriefing is the pre-structured form of a raw briefing. Vigil
// consumes it as-is; producing it from raw text is an external concern.
type StructuredBriefing struct {
	Summary           string         `json:"summary" yaml:"summary"`
	Items             []BriefingItem `json:"items" yaml:"items"`
	MachinesMentioned []string       `json:"machines_mentioned,omitempty" yaml:"machines_mentioned,omitempty"`
	RecurringPatterns []string       `json:"recurring_patterns,omitempty" yaml:"recurring_patterns,omitempty"`
}

// Briefing is one captured shift handoff.
type Briefing struct {
	ID         string              `json:"id"`
	RawText    string              `json:"raw_text"`
	Structured *StructuredBriefing `json:"structured,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	ShiftLabel string              `json:"shift_label,omitempty"`
	Author     string              `json:"author,omitempty"`
}

// Validate performs validation on a Briefing structure.
func (b *Briefing) Validate() error {
	if b.RawText == "" {
		return ErrEmptyRawText
	}
	if b.Structured == nil || len(b.Structured.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range b.Structured.Items {
		if !IsValidSeverity(item.Severity) {
			return ErrInvalidSeverity
		}
		if !IsValidCategory(item.Category) {
			return ErrInvalidCategory
		}
	}
	return nil
}

// ItemCount returns the number of reviewable items in the briefing.
func (b *Briefing) ItemCount() int {
	if b.Structured == nil {
		return 0
	}
	return len(b.Structured.Items)
}

// AttentionLog is one persisted per-item review outcome.
type AttentionLog struct {
	ID            int64     `json:"id,omitempty"`
	BriefingID    string    `json:"briefing_id"`
	ItemIndex     int       `json:"item_index"`
	AvgEngagement float64   `json:"avg_engagement"`
	AvgFocus      float64   `json:"avg_focus"`
	TimeSpentMs   int64     `json:"time_spent_ms"`
	FlaggedMissed bool      `json:"flagged_missed"`
	LoggedAt      time.Time `json:"logged_at"`
}

// KnowledgeEntry is an aggregated recurring-issue record keyed by machine,
// issue type, and description.
type KnowledgeEntry struct {
	ID              int64       `json:"id,omitempty"`
	MachineID       string      `json:"machine_id"`
	IssueType       string      `json:"issue_type"`
	Description     string      `json:"description"`
	Severity        Severity    `json:"severity"`
	FirstSeen       time.Time   `json:"first_seen"`
	LastSeen        time.Time   `json:"last_seen"`
	OccurrenceCount int         `json:"occurrence_count"`
	EntityTags      []EntityTag `json:"entity_tags,omitempty"`
}

// ToKnowledgeEntry derives the aggregation key and payload for a briefing
// item, for upserting into the knowledge store.
func (i BriefingItem) ToKnowledgeEntry(now time.Time) KnowledgeEntry {
	machine := i.MachineID
	if machine == "" {
		machine = "Unknown"
	}
	issue := string(i.Category)
	if issue == "" {
		issue = string(CategoryGeneral)
	}
	return KnowledgeEntry{
		MachineID:       machine,
		IssueType:       issue,
		Description:     i.Title,
		Severity:        i.Severity,
		FirstSeen:       now,
		LastSeen:        now,
		OccurrenceCount: 1,
		EntityTags:      i.Entities,
	}
}
