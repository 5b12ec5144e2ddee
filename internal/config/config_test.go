package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Port)
	require.Equal(t, "bleve", cfg.Engine.Type)
	require.Equal(t, 500, cfg.Ingest.BatchSize)
	require.Equal(t, 100, cfg.Ingest.SampleSize)
	require.Equal(t, 1<<20, cfg.Ingest.MaxDocumentBytes)
	require.Equal(t, int64(50<<20), cfg.Ingest.MaxUploadBytes)
	require.Equal(t, 10, cfg.Search.DefaultSize)
	require.Equal(t, 100, cfg.Search.MaxSize)
	require.Equal(t, 10, cfg.Search.AggregationSize)
	require.True(t, cfg.Search.Highlight)
	require.Equal(t, 256, cfg.Catalog.CacheSize)
	require.Equal(t, time.Minute, cfg.Catalog.CacheTTL)
	require.Equal(t, "*/1 * * * *", cfg.HealthCheckSpec)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9100,
		"engine": {"type": "Elasticsearch", "data": {"addresses": ["http://es:9200"]}},
		"ingest": {"batch_size": 50, "replace_existing": true},
		"catalog": {"cache_ttl": "30s"},
		"cors": ["http://localhost:3000"]
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Port)
	require.Equal(t, "elasticsearch", cfg.Engine.Type)
	require.Equal(t, []interface{}{"http://es:9200"}, cfg.Engine.Data["addresses"])
	require.Equal(t, 50, cfg.Ingest.BatchSize)
	require.True(t, cfg.Ingest.ReplaceExisting)
	require.Equal(t, 100, cfg.Ingest.SampleSize)
	require.Equal(t, 30*time.Second, cfg.Catalog.CacheTTL)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.CORS)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CSVSEARCH_PORT", "8123")
	t.Setenv("CSVSEARCH_INGEST_BATCH_SIZE", "7")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8123, cfg.Port)
	require.Equal(t, 7, cfg.Ingest.BatchSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []string{
		`{"port": 0}`,
		`{"engine": {"type": " "}}`,
		`{"ingest": {"batch_size": -1}}`,
		`{"search": {"default_size": 500, "max_size": 100}}`,
		`{"upload_interval": "-2s"}`,
	}
	for _, body := range cases {
		_, err := Load(writeConfig(t, body))
		require.Error(t, err, body)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadElasticsearchEnv(t *testing.T) {
	t.Setenv("CSVSEARCH_ENGINE_TYPE", "elasticsearch")
	t.Setenv("ELASTICSEARCH_HOST", "es.internal")
	t.Setenv("ELASTICSEARCH_PORT", "9201")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "elasticsearch", cfg.Engine.Type)
	require.Equal(t, "es.internal", cfg.Engine.Data["host"])
	require.EqualValues(t, "9201", cfg.Engine.Data["port"])
}
