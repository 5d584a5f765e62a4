package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-api/internal/models"
	"github.com/noah-isme/marks-api/pkg/config"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
)

func TestFromConfigOverridesRules(t *testing.T) {
	scheme, err := FromConfig(config.GradingConfig{Rules: map[string]config.CategoryRule{
		"quiz":       {Weight: 10, MaxPossible: 20},
		"attendance": {Weight: 12, MaxPossible: 10},
	}})
	require.NoError(t, err)
	assert.Equal(t, Rule{Weight: 10, MaxPossible: 20}, scheme.Rule(models.CategoryQuiz))
	assert.Equal(t, 20.0, scheme.MaxMark(models.CategoryQuiz))
	assert.Equal(t, DefaultScheme().Rule(models.CategoryFinal), scheme.Rule(models.CategoryFinal))
	assert.InDelta(t, 100, scheme.TotalWeight(), 1e-9)
}

func TestFromConfigRejectsBadTables(t *testing.T) {
	_, err := FromConfig(config.GradingConfig{Rules: map[string]config.CategoryRule{"quiz": {Weight: 30, MaxPossible: 15}}})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidWeights))

	_, err = FromConfig(config.GradingConfig{Rules: map[string]config.CategoryRule{"homework": {Weight: 0, MaxPossible: 1}}})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidWeights))
}

func TestFromConfigEmptyUsesDefaults(t *testing.T) {
	scheme, err := FromConfig(config.GradingConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultScheme(), scheme)
}
