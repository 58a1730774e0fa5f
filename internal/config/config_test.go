package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"TOURBOOK_HTTP_ADDR", "STORE_BACKEND", "STATS_CACHE_TTL", "STORE_TIMEOUT", "KAFKA_BROKER", "REJECTIONS_DIR"} {
		t.Setenv(k, "")
	}
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, time.Minute, cfg.StatsCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "./data/rejections", cfg.RejectionsDir)
	assert.Empty(t, cfg.KafkaBroker)
}

func TestFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "dynamo"}},
		{"bad ttl", map[string]string{"STATS_CACHE_TTL": "soon"}},
		{"postgres without dsn", map[string]string{"STORE_BACKEND": "postgres", "DB_URL": ""}},
		{"supabase without key", map[string]string{"STORE_BACKEND": "supabase", "SUPABASE_URL": "https://x.supabase.co", "SUPABASE_SERVICE_ROLE_KEY": ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestReconcileScheduleCanBeDisabled(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("RECONCILE_SCHEDULE", "")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.ReconcileSchedule)
}
