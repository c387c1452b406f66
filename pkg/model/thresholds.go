package model

import (
	"errors"
	"fmt"
)

// Thresholds of the three selection rounds.
type Thresholds struct {
	// Preliminary selection
	MinCoreGenes int `json:"min_core_genes" mapstructure:"min_core_genes"`

	// Main selection
	MinLengthBP            int `json:"min_length_bp" mapstructure:"min_length_bp"`
	MinEdgeDistanceBP      int `json:"min_edge_distance_bp" mapstructure:"min_edge_distance_bp"`
	MinAdditionalGenesMain int `json:"min_additional_genes_main" mapstructure:"min_additional_genes_main"`

	// Second-chance selection
	MinAdditionalGenesSecondChance int `json:"min_additional_genes_second_chance" mapstructure:"min_additional_genes_second_chance"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinCoreGenes:                   2,
		MinLengthBP:                    20000,
		MinEdgeDistanceBP:              5000,
		MinAdditionalGenesMain:         3,
		MinAdditionalGenesSecondChance: 5,
	}
}

var ErrInvalidThresholds = errors.New("invalid thresholds")

// Validate rejects negative values, MinCoreGenes below 1 (main selection needs a
// first and a last core gene) and a second-chance threshold below the main one.
func (t Thresholds) Validate() error {
	var errs []error

	fields := []struct {
		name  string
		value int
	}{
		{"min_core_genes", t.MinCoreGenes},
		{"min_length_bp", t.MinLengthBP},
		{"min_edge_distance_bp", t.MinEdgeDistanceBP},
		{"min_additional_genes_main", t.MinAdditionalGenesMain},
		{"min_additional_genes_second_chance", t.MinAdditionalGenesSecondChance},
	}
	for _, f := range fields {
		if f.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", f.name, f.value))
		}
	}

	if t.MinCoreGenes < 1 {
		errs = append(errs, fmt.Errorf("min_core_genes must be at least 1, got %d", t.MinCoreGenes))
	}

	if t.MinAdditionalGenesSecondChance < t.MinAdditionalGenesMain {
		errs = append(errs, fmt.Errorf("min_additional_genes_second_chance (%d) must not be below min_additional_genes_main (%d)",
			t.MinAdditionalGenesSecondChance, t.MinAdditionalGenesMain))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidThresholds, errors.Join(errs...))
	}
	return nil
}
