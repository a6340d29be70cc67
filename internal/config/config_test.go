package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigContent = `
[development]
host = "localhost"
port = 9000
log_level = "trace"
log_to_stdout = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "workout"
redis_host = "localhost"
redis_port = "6379"
login_rate_limit_allowed_per_min = 5
user_id = "serj"
user_weight_kg = 80

[production]
host = ""
port = 9000
log_level = "debug"
logs_path = "/var/log/workout-companion.log"
sentry_enabled = true
tracing_enabled = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "workout"
redis_host = "localhost"
redis_port = "6379"
login_rate_limit_allowed_per_min = 5
user_id = "serj"
user_weight_kg = 80
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigContent), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTestConfig(t)

	devCfg, err := Load("development", path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", devCfg.ServerAddress())
	assert.Equal(t, "trace", devCfg.LogLevel)
	assert.True(t, devCfg.LogToStdout)
	assert.False(t, devCfg.SentryEnabled)
	assert.Equal(t, 80, devCfg.UserWeightKg)

	prodCfg, err := Load("prod", path)
	require.NoError(t, err)
	assert.True(t, prodCfg.SentryEnabled)
	assert.True(t, prodCfg.TracingEnabled)
	assert.Equal(t, "/var/log/workout-companion.log", prodCfg.LogsPath)

	_, err = Load("staging", path)
	assert.ErrorContains(t, err, "unknown env")

	_, err = Load("dev", filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
