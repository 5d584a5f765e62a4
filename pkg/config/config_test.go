package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 2*time.Hour, cfg.Entry.SessionTTL)
	assert.True(t, cfg.Entry.AutoReconcile)
	assert.Equal(t, "memory", cfg.Events.Publisher)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.KafkaBrokers)

	total := 0.0
	for _, name := range Categories {
		total += cfg.Grading.Rules[name].Weight
	}
	assert.Equal(t, 100.0, total)
	assert.Equal(t, CategoryRule{Weight: 40, MaxPossible: 40}, cfg.Grading.Rules["final"])
}

func TestFromViperEnvOverrides(t *testing.T) {
	t.Setenv("GRADING_QUIZ_WEIGHT", "20")
	t.Setenv("SUMMARY_CACHE_TTL", "bogus")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 20.0, cfg.Grading.Rules["quiz"].Weight)
	assert.Equal(t, 5*time.Minute, cfg.Summary.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
