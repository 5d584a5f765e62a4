// Package grading holds the category weight table and the weighted grade roll-up.
package grading

import (
	"fmt"
	"math"

	"github.com/noah-isme/marks-api/internal/models"
	"github.com/noah-isme/marks-api/pkg/config"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
)

// Rule is the weight and maximum possible score of one category.
type Rule struct {
	Weight      float64 `json:"weight"`
	MaxPossible float64 `json:"max_possible"`
}

// Scheme maps every category to its rule. Weights sum to 100.
type Scheme map[models.Category]Rule

// DefaultScheme returns the stock weight table.
func DefaultScheme() Scheme {
	return Scheme{
		models.CategoryQuiz:         {Weight: 15, MaxPossible: 15},
		models.CategoryMidterm:      {Weight: 25, MaxPossible: 25},
		models.CategoryFinal:        {Weight: 40, MaxPossible: 40},
		models.CategoryAssignment:   {Weight: 5, MaxPossible: 5},
		models.CategoryPresentation: {Weight: 8, MaxPossible: 8},
		models.CategoryAttendance:   {Weight: 7, MaxPossible: 7},
	}
}

// FromConfig builds a scheme from the configured per-category rules and validates it.
// Categories missing from the config keep their default rule.
func FromConfig(cfg config.GradingConfig) (Scheme, error) {
	scheme := DefaultScheme()
	for name, rule := range cfg.Rules {
		c := models.Category(name)
		if !c.Valid() {
			return nil, appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("unknown category %q", name))
		}
		scheme[c] = Rule{Weight: rule.Weight, MaxPossible: rule.MaxPossible}
	}
	if err := scheme.Validate(); err != nil {
		return nil, err
	}
	return scheme, nil
}

// Rule returns the rule for c; missing categories have zero weight.
func (s Scheme) Rule(c models.Category) Rule {
	return s[c]
}

// MaxMark is the maximum a single-mark record of category c may hold.
func (s Scheme) MaxMark(c models.Category) float64 {
	return s[c].MaxPossible
}

// TotalWeight sums every category weight.
func (s Scheme) TotalWeight() float64 {
	total := 0.0
	for _, c := range models.Categories() {
		total += s[c].Weight
	}
	return total
}

// Validate checks the table covers every category with non-negative values summing to 100.
func (s Scheme) Validate() error {
	for _, c := range models.Categories() {
		rule, ok := s[c]
		if !ok {
			return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("missing rule for %s", c))
		}
		if rule.Weight < 0 || rule.MaxPossible < 0 {
			return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("negative rule for %s", c))
		}
	}
	total := s.TotalWeight()
	if total < 99.999 || total > 100.001 {
		return appErrors.Clone(appErrors.ErrInvalidWeights, "weights must sum to 100")
	}
	return nil
}

// Round rounds to two decimals using banker's rounding.
func Round(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
