package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigLoad_Defaults(t *testing.T) {
	_ = os.Unsetenv("TOHUM_DB_DRIVER")
	_ = os.Unsetenv("TOHUM_VECTOR_STORE")
	_ = os.Unsetenv("TOHUM_SEARCH_TOP_K")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, "chromem", cfg.VectorStore)
	require.Equal(t, 5, cfg.SearchTopK)
	require.Equal(t, 100, cfg.ListLimit)
	require.Equal(t, "tohum_memory", cfg.Collection)
	require.Equal(t, ":8080", cfg.GetHTTPAddr())
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	t.Setenv("TOHUM_EMBED_MODEL", "test-model")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "test-model", cfg.EmbedModel)
}

func TestConfigLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("TOHUM_DB_DRIVER", "oracle")

	_, err := New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported DB_DRIVER")
}

func TestConfigLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("TOHUM_DB_DRIVER", "postgres")
	_ = os.Unsetenv("TOHUM_POSTGRES_DSN")

	_, err := New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "POSTGRES_DSN")
}
