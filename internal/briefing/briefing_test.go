package briefing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vigil-labs/vigil/internal/models"
	"github.com/vigil-labs/vigil/internal/store"
	"github.com/vigil-labs/vigil/internal/testutil"
)

func TestDemoBriefing_Valid(t *testing.T) {
	demo := DemoBriefing()
	if err := demo.Validate(); err != nil {
		t.Fatalf("demo briefing failed validation: %v", err)
	}
	if demo.ItemCount() != 5 {
		t.Errorf("expected 5 items, got %d", demo.ItemCount())
	}
	if demo.ID == "" {
		t.Error("expected a generated briefing ID")
	}
}

func TestSeedIfEmpty(t *testing.T) {
	st := store.NewInMemoryStore()

	seeded, err := SeedIfEmpty(st)
	if err != nil {
		t.Fatalf("failed to seed empty store: %v", err)
	}
	if seeded == nil {
		t.Fatal("expected the demo briefing to be seeded")
	}

	briefings, err := st.ListBriefings()
	if err != nil {
		t.Fatalf("failed to list briefings: %v", err)
	}
	if len(briefings) != 1 {
		t.Fatalf("expected 1 briefing after seeding, got %d", len(briefings))
	}

	// Knowledge entries are upserted alongside the briefing.
	entries, err := st.ListKnowledgeEntries()
	if err != nil {
		t.Fatalf("failed to list knowledge entries: %v", err)
	}
	if len(entries) != seeded.ItemCount() {
		t.Errorf("expected %d knowledge entries, got %d", seeded.ItemCount(), len(entries))
	}

	// Second call is a no-op.
	again, err := SeedIfEmpty(st)
	if err != nil {
		t.Fatalf("re-seed check failed: %v", err)
	}
	if again != nil {
		t.Error("expected no seeding on a populated store")
	}
	briefings, _ = st.ListBriefings()
	if len(briefings) != 1 {
		t.Errorf("expected briefing count to stay at 1, got %d", len(briefings))
	}
}

func TestSave_StoresBriefingAndKnowledge(t *testing.T) {
	st := store.NewInMemoryStore()
	b := testutil.NewTestBriefing(3)
	if err := Save(st, b); err != nil {
		t.Fatalf("failed to save briefing: %v", err)
	}

	stored, err := st.GetBriefing(b.ID)
	if err != nil {
		t.Fatalf("failed to get briefing: %v", err)
	}
	if stored.ItemCount() != 3 {
		t.Errorf("expected 3 items, got %d", stored.ItemCount())
	}

	// The three items share one aggregation key, so they collapse into a
	// single knowledge entry with occurrence count 3.
	entries, err := st.ListKnowledgeEntries()
	if err != nil {
		t.Fatalf("failed to list knowledge entries: %v", err)
	}
	if len(entries) != 1 || entries[0].OccurrenceCount != 3 {
		t.Errorf("expected one entry with 3 occurrences, got %+v", entries)
	}
}

func TestSave_RejectsInvalidBriefing(t *testing.T) {
	st := store.NewInMemoryStore()
	b := DemoBriefing()
	b.RawText = ""
	if err := Save(st, b); !errors.Is(err, models.ErrEmptyRawText) {
		t.Errorf("expected ErrEmptyRawText, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	const content = `raw_text: "Line 2 press jammed twice during night shift."
shift_label: "Night → Day"
author: "Dana K."
structured:
  summary: "Press reliability issue on Line 2."
  items:
    - id: 1
      machine_id: "Line 2 Press"
      category: maintenance
      severity: warning
      title: "Recurring jam on Line 2 press"
      details: "Jammed twice overnight, cleared both times."
      action_required: "Inspect feed rollers."
      entities:
        - text: "Line 2 Press"
          type: machine
  machines_mentioned: ["Line 2 Press"]
`
	path := filepath.Join(t.TempDir(), "briefing.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write briefing file: %v", err)
	}

	b, err := LoadFile(path)
	if err != nil {
		t.Fatalf("failed to load briefing file: %v", err)
	}
	if b.ID == "" {
		t.Error("expected a generated briefing ID")
	}
	if b.ShiftLabel != "Night → Day" || b.Author != "Dana K." {
		t.Errorf("unexpected metadata: shift=%q author=%q", b.ShiftLabel, b.Author)
	}
	if b.ItemCount() != 1 {
		t.Fatalf("expected 1 item, got %d", b.ItemCount())
	}
	item := b.Structured.Items[0]
	if item.MachineID != "Line 2 Press" || item.Severity != models.SeverityWarning || item.Category != models.CategoryMaintenance {
		t.Errorf("unexpected item: %+v", item)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	badYAML := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("raw_text: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := LoadFile(badYAML); err == nil {
		t.Error("expected error for malformed YAML")
	}

	// Structurally valid YAML that fails briefing validation.
	noItems := filepath.Join(t.TempDir(), "noitems.yaml")
	if err := os.WriteFile(noItems, []byte("raw_text: \"something happened\"\nstructured:\n  summary: \"x\"\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := LoadFile(noItems); !errors.Is(err, models.ErrNoItems) {
		t.Errorf("expected ErrNoItems, got %v", err)
	}
}
