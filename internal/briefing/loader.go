package briefing

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vigil-labs/vigil/internal/models"
	"gopkg.in/yaml.v3"
)

// briefingFile is the YAML shape of a pre-structured briefing seed file.
type briefingFile struct {
	RawText    string                    `yaml:"raw_text"`
	ShiftLabel string                    `yaml:"shift_label"`
	Author     string                    `yaml:"author"`
	Structured models.StructuredBriefing `yaml:"structured"`
}

// LoadFile reads a pre-structured briefing from a YAML file and assigns it
// a fresh identity.
func LoadFile(path string) (*models.Briefing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read briefing file %s: %w", path, err)
	}

	var bf briefingFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse briefing file %s: %w", path, err)
	}

	b := models.Briefing{
		ID:         uuid.NewString(),
		RawText:    bf.RawText,
		Structured: &bf.Structured,
		CreatedAt:  time.Now(),
		ShiftLabel: bf.ShiftLabel,
		Author:     bf.Author,
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("briefing file %s: %w", path, err)
	}

	slog.Info("LoadFile: loaded briefing", "path", path, "id", b.ID, "items", b.ItemCount())
	return &b, nil
}
