package models

import (
	"errors"
	"testing"
	"time"
)

func TestItemResult_Flagged(t *testing.T) {
	tests := []struct {
		name       string
		engagement float64
		focus      float64
		want       bool
	}{
		{"both well above thresholds", 0.8, 0.7, false},
		{"both well below thresholds", 0.1, 0.1, true},
		{"engagement below only", 0.39, 0.9, true},
		{"focus below only", 0.9, 0.34, true},
		{"exactly at both thresholds", 0.4, 0.35, false},
		{"just under engagement threshold", 0.3999, 0.35, true},
		{"just under focus threshold", 0.4, 0.3499, true},
		{"zero result", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ItemResult{AvgEngagement: tt.engagement, AvgFocus: tt.focus}
			if got := r.Flagged(); got != tt.want {
				t.Errorf("Flagged() with engagement=%v focus=%v = %v, want %v",
					tt.engagement, tt.focus, got, tt.want)
			}
		})
	}
}

func TestLiveMetrics_ReadingRoundTrip(t *testing.T) {
	m := LiveMetrics{Engagement: 0.6, Focus: 0.5, FaceDetected: true, Stress: 0.3, HeartRate: 72}
	r := m.Reading()
	if r.Engagement != 0.6 || r.Focus != 0.5 || !r.FaceDetected {
		t.Errorf("unexpected reading projection: %+v", r)
	}

	// Rebuilding a snapshot from a reading drops presentation-only fields.
	m2 := MetricsFromReading(r)
	if m2.Stress != 0 || m2.HeartRate != 0 {
		t.Errorf("expected presentation fields to reset, got %+v", m2)
	}
	if m2.Engagement != r.Engagement || m2.Focus != r.Focus || m2.FaceDetected != r.FaceDetected {
		t.Errorf("snapshot does not match reading: %+v vs %+v", m2, r)
	}
}

func TestBriefing_Validate(t *testing.T) {
	valid := func() Briefing {
		return Briefing{
			ID:      "b-1",
			RawText: "Machine 4 is running hot.",
			Structured: &StructuredBriefing{
				Summary: "One thermal issue.",
				Items: []BriefingItem{
					{ID: 1, MachineID: "Machine 4", Category: CategoryMaintenance, Severity: SeverityWarning, Title: "Running hot"},
				},
			},
			CreatedAt: time.Now(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Briefing)
		wantErr error
	}{
		{"valid briefing", func(b *Briefing) {}, nil},
		{"empty raw text", func(b *Briefing) { b.RawText = "" }, ErrEmptyRawText},
		{"nil structured", func(b *Briefing) { b.Structured = nil }, ErrNoItems},
		{"no items", func(b *Briefing) { b.Structured.Items = nil }, ErrNoItems},
		{"bad severity", func(b *Briefing) { b.Structured.Items[0].Severity = "urgent" }, ErrInvalidSeverity},
		{"bad category", func(b *Briefing) { b.Structured.Items[0].Category = "misc" }, ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid()
			tt.mutate(&b)
			err := b.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected valid briefing, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBriefingItem_ToKnowledgeEntry(t *testing.T) {
	now := time.Now()

	item := BriefingItem{
		MachineID: "Machine 7",
		Category:  CategoryMaintenance,
		Severity:  SeverityCritical,
		Title:     "Bearing temperature spike",
		Entities:  []EntityTag{{Text: "bearing", Type: "part"}},
	}
	e := item.ToKnowledgeEntry(now)
	if e.MachineID != "Machine 7" || e.IssueType != "maintenance" || e.Description != "Bearing temperature spike" {
		t.Errorf("unexpected knowledge key: %+v", e)
	}
	if e.OccurrenceCount != 1 || !e.FirstSeen.Equal(now) || !e.LastSeen.Equal(now) {
		t.Errorf("unexpected aggregation fields: %+v", e)
	}
	if len(e.EntityTags) != 1 {
		t.Errorf("expected entity tags to carry over, got %+v", e.EntityTags)
	}

	// Missing machine and category fall back to defaults.
	e = BriefingItem{Title: "Untagged note"}.ToKnowledgeEntry(now)
	if e.MachineID != "Unknown" || e.IssueType != string(CategoryGeneral) {
		t.Errorf("expected fallback key, got machine=%q issue=%q", e.MachineID, e.IssueType)
	}
}
