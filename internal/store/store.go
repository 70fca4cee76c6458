// Package store provides storage backends for Vigil.
//
// It includes an in-memory store for tests and single-process use, plus
// SQLite and PostgreSQL backends for persistent storage.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/vigil-labs/vigil/internal/models"
)

// Store is the persistence collaborator for briefings, attention logs, and
// aggregated knowledge entries.
type Store interface {
	SaveBriefing(b models.Briefing) error
	GetBriefing(id string) (*models.Briefing, error)
	ListBriefings() ([]models.Briefing, error)

	AddAttentionLogs(logs []models.AttentionLog) error
	GetMissedItems(briefingID string) ([]models.AttentionLog, error)
	PruneAttentionLogs(olderThan time.Time) (int64, error)

	UpsertKnowledgeEntry(e models.KnowledgeEntry) error
	ListKnowledgeEntries() ([]models.KnowledgeEntry, error)

	Close() error
}

// Opts holds configuration options for store construction.
type Opts struct {
	// DSN is the database connection string: a file path for SQLite, a
	// connection URL for Postgres.
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore is a mutex-guarded in-memory Store.
type InMemoryStore struct {
	mu         sync.Mutex
	briefings  []models.Briefing
	logs       []models.AttentionLog
	knowledge  []models.KnowledgeEntry
	nextLogID  int64
	nextKnowID int64
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextLogID: 1, nextKnowID: 1}
}

func (s *InMemoryStore) SaveBriefing(b models.Briefing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.briefings = append(s.briefings, b)
	return nil
}

func (s *InMemoryStore) GetBriefing(id string) (*models.Briefing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.briefings {
		if s.briefings[i].ID == id {
			b := s.briefings[i]
			return &b, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListBriefings() ([]models.Briefing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.Briefing(nil), s.briefings...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) AddAttentionLogs(logs []models.AttentionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range logs {
		l.ID = s.nextLogID
		s.nextLogID++
		s.logs = append(s.logs, l)
	}
	return nil
}

func (s *InMemoryStore) GetMissedItems(briefingID string) ([]models.AttentionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AttentionLog
	for _, l := range s.logs {
		if l.BriefingID == briefingID && l.FlaggedMissed {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *InMemoryStore) PruneAttentionLogs(olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.logs[:0]
	var pruned int64
	for _, l := range s.logs {
		if l.LoggedAt.Before(olderThan) {
			pruned++
			continue
		}
		kept = append(kept, l)
	}
	s.logs = kept
	return pruned, nil
}

func (s *InMemoryStore) UpsertKnowledgeEntry(e models.KnowledgeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.knowledge {
		k := &s.knowledge[i]
		if k.MachineID == e.MachineID && k.IssueType == e.IssueType && k.Description == e.Description {
			k.OccurrenceCount++
			k.LastSeen = e.LastSeen
			k.Severity = e.Severity
			k.EntityTags = e.EntityTags
			return nil
		}
	}
	e.ID = s.nextKnowID
	s.nextKnowID++
	if e.OccurrenceCount == 0 {
		e.OccurrenceCount = 1
	}
	s.knowledge = append(s.knowledge, e)
	return nil
}

func (s *InMemoryStore) ListKnowledgeEntries() ([]models.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.KnowledgeEntry(nil), s.knowledge...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurrenceCount != out[j].OccurrenceCount {
			return out[i].OccurrenceCount > out[j].OccurrenceCount
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
