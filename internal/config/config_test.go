package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "matching-engine", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	assert.False(t, cfg.Matching.ValidityCheck)
	assert.False(t, cfg.Matching.HardBudget)
	assert.Equal(t, 300, cfg.Matching.LockTTLSeconds)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "campflow", cfg.Database.DBName)
	assert.Contains(t, cfg.Database.DSN(), "dbname=campflow")
	assert.Contains(t, cfg.Database.DSN(), "sslmode=disable")

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "booking.state-changed", cfg.Kafka.Topic)

	assert.False(t, cfg.OTel.Enabled)
	assert.Equal(t, 1.0, cfg.OTel.SampleRatio)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "production")
	t.Setenv("MATCHING_HARD_BUDGET", "true")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Matching.HardBudget)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Name: "matching-engine"},
			Matching: MatchingConfig{LockTTLSeconds: 300},
			OTel:     OTelConfig{SampleRatio: 1.0},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing app name", func(t *testing.T) {
		cfg := valid()
		cfg.App.Name = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid lock ttl", func(t *testing.T) {
		cfg := valid()
		cfg.Matching.LockTTLSeconds = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid sample ratio", func(t *testing.T) {
		cfg := valid()
		cfg.OTel.SampleRatio = 1.5
		assert.Error(t, cfg.Validate())
	})
}

func TestLoadWithPathMissingFile(t *testing.T) {
	_, err := LoadWithPath("does-not-exist.env")
	assert.Error(t, err)
}
