// Package briefing supplies briefing content to the review core: a
// built-in demo briefing and a YAML file loader for pre-structured
// briefings. Turning raw text into structure is an external concern.
package briefing

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vigil-labs/vigil/internal/models"
	"github.com/vigil-labs/vigil/internal/store"
)

// DemoBriefing returns the built-in demo shift handoff used when the store
// is empty.
func DemoBriefing() models.Briefing {
	return models.Briefing{
		ID: uuid.NewString(),
		RawText: "Line 3 conveyor belt has been making a grinding noise since around 2 PM. " +
			"I put in a maintenance ticket but nobody came yet. Keep an ear on it — if it gets worse, shut it down. " +
			"Machine 7 bearing temperature spiked to 185°F about an hour ago, came back down to 160°F but that's still above normal. " +
			"I'd recommend scheduling a bearing inspection before end of week. " +
			"We hit 94% of target on Line 1, missed goal because of a 20-minute jam at the packaging station around 4 PM. Cleared it but watch for recurrence. " +
			"Safety note: there's an oil slick near the south exit by Machine 12. I put cones up but it needs proper cleanup. " +
			"New guy Marcus is doing great on QA but still needs supervision on the rejection criteria for Class B defects.",
		Structured: &models.StructuredBriefing{
			Summary: "Outgoing shift reports a conveyor noise issue on Line 3, elevated bearing temps on Machine 7, " +
				"a near-miss on Line 1 production targets, and a safety hazard near Machine 12. New QA team member needs continued mentoring.",
			Items: []models.BriefingItem{
				{
					ID: 1, MachineID: "Line 3 Conveyor", Category: models.CategoryMaintenance, Severity: models.SeverityWarning,
					Title:          "Grinding noise on Line 3 conveyor",
					Details:        "Conveyor belt making grinding noise since ~2 PM. Maintenance ticket submitted, no response yet.",
					ActionRequired: "Monitor noise level. If worsening, shut down Line 3 and escalate maintenance ticket.",
					Entities: []models.EntityTag{
						{Text: "Line 3 Conveyor", Type: "machine"},
						{Text: "conveyor belt", Type: "part"},
						{Text: "grinding noise", Type: "failure_mode"},
					},
				},
				{
					ID: 2, MachineID: "Machine 7", Category: models.CategoryMaintenance, Severity: models.SeverityCritical,
					Title:          "Bearing temperature spike on Machine 7",
					Details:        "Temperature spiked to 185°F, currently at 160°F (above normal operating range).",
					ActionRequired: "Schedule bearing inspection before end of week. Monitor temp readings every 30 min.",
					Entities: []models.EntityTag{
						{Text: "Machine 7", Type: "machine"},
						{Text: "bearing", Type: "part"},
						{Text: "temperature spike", Type: "failure_mode"},
					},
				},
				{
					ID: 3, MachineID: "Line 1 Packaging", Category: models.CategoryProduction, Severity: models.SeverityInfo,
					Title:          "Line 1 hit 94% of target — packaging jam",
					Details:        "20-minute jam at packaging station around 4 PM caused target miss. Jam was cleared.",
					ActionRequired: "Watch for recurrence of packaging jam. Check alignment of feed mechanism.",
					Entities: []models.EntityTag{
						{Text: "Line 1", Type: "machine"},
						{Text: "packaging station", Type: "part"},
						{Text: "jam", Type: "failure_mode"},
					},
				},
				{
					ID: 4, MachineID: "Machine 12 Area", Category: models.CategorySafety, Severity: models.SeverityCritical,
					Title:          "Oil slick near south exit — safety hazard",
					Details:        "Oil slick on floor near south exit by Machine 12. Cones placed as temporary measure.",
					ActionRequired: "Arrange proper cleanup immediately. Identify source of oil leak from Machine 12.",
					Entities: []models.EntityTag{
						{Text: "Machine 12", Type: "machine"},
						{Text: "oil slick", Type: "failure_mode"},
					},
				},
				{
					ID: 5, MachineID: "QA Station", Category: models.CategoryQuality, Severity: models.SeverityInfo,
					Title:          "New QA operator needs supervision",
					Details:        "Marcus is performing well but still learning rejection criteria for Class B defects.",
					ActionRequired: "Pair Marcus with senior QA for Class B inspection tasks.",
					Entities: []models.EntityTag{
						{Text: "QA Station", Type: "machine"},
					},
				},
			},
			MachinesMentioned: []string{"Line 3 Conveyor", "Machine 7", "Line 1 Packaging", "Machine 12", "QA Station"},
			RecurringPatterns: []string{
				"Machine 7 bearing issues may indicate recurring thermal problem",
				"Line 1 packaging jams reported in prior shifts",
			},
		},
		CreatedAt:  time.Now(),
		ShiftLabel: "Night → Day",
		Author:     "Mike R.",
	}
}

// SeedIfEmpty inserts the demo briefing (and its knowledge entries) when no
// briefings exist yet. It returns the briefing that was seeded, or nil when
// the store already had content.
func SeedIfEmpty(st store.Store) (*models.Briefing, error) {
	existing, err := st.ListBriefings()
	if err != nil {
		return nil, fmt.Errorf("failed to list briefings for seeding: %w", err)
	}
	if len(existing) > 0 {
		slog.Debug("SeedIfEmpty: store already has briefings", "count", len(existing))
		return nil, nil
	}

	demo := DemoBriefing()
	if err := Save(st, demo); err != nil {
		return nil, err
	}
	slog.Info("SeedIfEmpty: seeded demo briefing", "id", demo.ID, "items", demo.ItemCount())
	return &demo, nil
}

// Save stores a briefing and upserts one knowledge entry per item.
func Save(st store.Store, b models.Briefing) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid briefing: %w", err)
	}
	if err := st.SaveBriefing(b); err != nil {
		return fmt.Errorf("failed to save briefing: %w", err)
	}
	now := time.Now()
	for _, item := range b.Structured.Items {
		if err := st.UpsertKnowledgeEntry(item.ToKnowledgeEntry(now)); err != nil {
			// Knowledge aggregation is best-effort; the briefing itself is
			// already stored.
			slog.Warn("Save: knowledge upsert failed", "briefingID", b.ID, "machineID", item.MachineID, "error", err)
		}
	}
	return nil
}
