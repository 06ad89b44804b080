package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/buku-api/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_HOST", "db.local")
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "db.local", cfg.DB.Host)
	assert.Equal(t, 10, cfg.DB.MaxConns)
	assert.False(t, cfg.DB.ForceIPv4)
	assert.Equal(t, 30, cfg.EInvoice.HTTPTimeoutSeconds)
	assert.Equal(t, "@every 30m", cfg.EInvoice.PollSchedule)
	assert.Equal(t, 50, cfg.EInvoice.PollBatchSize)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_FORCE_IPV4", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("EINVOICE_POLL_BATCH_SIZE", "5")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.DB.MaxConns)
	assert.True(t, cfg.DB.ForceIPv4)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.EInvoice.PollBatchSize)
}

func TestLoad_RejectsNonPositiveLimits(t *testing.T) {
	for _, key := range []string{"DB_MAX_CONNS", "EINVOICE_HTTP_TIMEOUT_SECONDS", "EINVOICE_POLL_BATCH_SIZE"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "0")
			_, err := config.Load()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestDBConfig_ConnectionStringPrefersURL(t *testing.T) {
	c := config.DBConfig{DatabaseURL: "postgres://u:p@h/db", Host: "other"}
	assert.Equal(t, "postgres://u:p@h/db", c.ConnectionString())

	c = config.DBConfig{Host: "h", Port: 5432, User: "u", Password: "p@ss", DBName: "buku", SSLMode: "disable"}
	assert.Contains(t, c.ConnectionString(), "h:5432/buku")
	assert.NotContains(t, c.ConnectionString(), "p@ss@")
}
