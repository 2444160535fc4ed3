package board

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/adamnnoli/monopoly/internal/game/models"
)

//go:embed data/standard.yaml
var standardDefinition []byte

// DefaultDefinitions returns the standard board and card decks
func DefaultDefinitions() (*models.GameDefinition, error) {
	return ParseDefinitions(standardDefinition)
}

// LoadDefinitions reads a board file from disk. An empty path selects the
// embedded standard board.
func LoadDefinitions(path string) (*models.GameDefinition, error) {
	if path == "" {
		return DefaultDefinitions()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board file %s: %w", path, err)
	}
	return ParseDefinitions(data)
}

// ParseDefinitions decodes a YAML board document and checks its layout
func ParseDefinitions(data []byte) (*models.GameDefinition, error) {
	var def models.GameDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse board definition: %w", err)
	}

	// Build a throwaway board so layout errors surface at load time
	if _, err := New(def.Tiles); err != nil {
		return nil, err
	}
	if len(def.Chance) == 0 || len(def.CommunityChest) == 0 {
		return nil, fmt.Errorf("%w: both card decks need at least one card", ErrInvalidBoard)
	}

	return &def, nil
}
