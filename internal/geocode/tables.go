package geocode

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

//go:embed tables.yaml
var tablesYAML []byte

// Tables holds the curated lookup data used by the chain.
type Tables struct {
	// Default is the single application-wide fallback coordinate.
	Default domain.Coordinate `yaml:"default"`
	// Aliases maps normalized generic names to a provider query template.
	Aliases map[string]string `yaml:"aliases"`
	// Places maps normalized country and city names to a representative point.
	Places map[string]domain.Coordinate `yaml:"places"`
}

// LoadTables parses the embedded tables.
func LoadTables() (Tables, error) {
	return ParseTables(tablesYAML)
}

// ParseTables parses tables from YAML and normalizes their keys.
func ParseTables(data []byte) (Tables, error) {
	var raw Tables
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Tables{}, fmt.Errorf("geocode.ParseTables: %w", err)
	}

	t := Tables{
		Default: raw.Default,
		Aliases: make(map[string]string, len(raw.Aliases)),
		Places:  make(map[string]domain.Coordinate, len(raw.Places)),
	}
	for k, v := range raw.Aliases {
		t.Aliases[normalize(k)] = v
	}
	for k, v := range raw.Places {
		t.Places[normalize(k)] = v
	}
	return t, nil
}
