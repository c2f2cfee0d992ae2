package config_test

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exdform/internal/config"
	"exdform/internal/domain"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := config.FromEnv(envMap(nil))

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, config.DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "exports", cfg.Export.Dir)
	assert.False(t, cfg.Publish.Enabled())
	assert.True(t, cfg.Publish.UseSSL)

	conn := cfg.Connection()
	assert.Equal(t, domain.DatabaseDriverSQLite, conn.Driver)
	assert.Equal(t, config.DefaultStorePath, conn.Host)
}

func TestFromEnv_ServerStore(t *testing.T) {
	cfg := config.FromEnv(envMap(map[string]string{
		"EXDFORM_STORE_DRIVER":   "Postgres",
		"EXDFORM_STORE_HOST":     "db.internal",
		"EXDFORM_STORE_PORT":     "6432",
		"EXDFORM_STORE_DATABASE": "survey",
		"EXDFORM_STORE_USER":     "entry",
		"EXDFORM_S3_ENDPOINT":    "minio:9000",
		"EXDFORM_S3_BUCKET":      "exports",
		"EXDFORM_S3_USE_SSL":     "false",
	}))

	conn := cfg.Connection()
	assert.Equal(t, domain.DatabaseDriverPostgres, conn.Driver)
	assert.Equal(t, "db.internal", conn.Host)
	assert.Equal(t, 6432, conn.Port)
	assert.Equal(t, "survey", conn.Database)
	assert.True(t, cfg.Publish.Enabled())
	assert.False(t, cfg.Publish.UseSSL)
}

func TestRegisterFlags_OverrideEnv(t *testing.T) {
	cfg := config.FromEnv(envMap(map[string]string{
		"EXDFORM_SCHEMA":     "env.csv",
		"EXDFORM_STORE_PATH": "env.db",
	}))
	fs := flag.NewFlagSet("entry", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	require.NoError(t, fs.Parse([]string{"-schema", "flag.yaml"}))
	assert.Equal(t, "flag.yaml", cfg.SchemaPath)
	assert.Equal(t, "env.db", cfg.Store.Path)
}
