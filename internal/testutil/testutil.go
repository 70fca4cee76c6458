// Package testutil provides common test utilities and helpers for Vigil tests.
package testutil

import (
	"testing"

	"github.com/vigil-labs/vigil/internal/models"
	"github.com/vigil-labs/vigil/internal/store"
)

// NewTestBriefing builds a minimal valid briefing with n items for tests.
func NewTestBriefing(n int) models.Briefing {
	items := make([]models.BriefingItem, n)
	for i := range items {
		items[i] = models.BriefingItem{
			ID:        i + 1,
			MachineID: "Machine T",
			Category:  models.CategoryGeneral,
			Severity:  models.SeverityInfo,
			Title:     "test item",
			Details:   "test details",
		}
	}
	return models.Briefing{
		ID:      "b_test",
		RawText: "test briefing",
		Structured: &models.StructuredBriefing{
			Summary: "test summary",
			Items:   items,
		},
	}
}

// FullFaceSignal builds a facial signal with a complete landmark mesh and
// the given blendshape scores, positioned head-on at the reference face
// height so only the blendshapes vary the estimate.
func FullFaceSignal(blendshapes map[string]float64) *models.FacialSignal {
	landmarks := make([]models.Landmark, models.LandmarkChin+1)
	landmarks[models.LandmarkNoseTip] = models.Landmark{X: 0.5, Y: 0.5}
	landmarks[models.LandmarkForehead] = models.Landmark{X: 0.5, Y: 0.35}
	landmarks[models.LandmarkChin] = models.Landmark{X: 0.5, Y: 0.6}
	return &models.FacialSignal{Landmarks: landmarks, Blendshapes: blendshapes}
}

// AssertMissedCount validates the number of flagged-missed logs in the
// store for a briefing.
func AssertMissedCount(t *testing.T, st store.Store, briefingID string, expected int, context string) {
	t.Helper()
	missed, err := st.GetMissedItems(briefingID)
	if err != nil {
		t.Fatalf("%s: failed to get missed items: %v", context, err)
	}
	if len(missed) != expected {
		t.Errorf("%s: expected %d missed items, got %d", context, expected, len(missed))
	}
}
