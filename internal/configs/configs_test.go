package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable LoadConfig reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "PORT", "LOG_LEVEL", "ALLOWED_ORIGINS", "JWT_SECRET", "BCRYPT_COST",
		"OUTBOX_LIMIT", "MAX_FRAME_SIZE", "CONNECT_RATE", "CONNECT_BURST",
		"USER_STORE", "USERS_FILE", "SQLITE_PATH", "DATABASE_URL",
		"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_USERS_KEY",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, 1111, cfg.Port)
	assert.Equal(t, "file", cfg.UserStore)
	assert.Equal(t, "users.json", cfg.UsersFile)
	assert.Equal(t, 0, cfg.OutboxLimit)
	assert.Equal(t, defaultJWTSecret, cfg.JWTSecret)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 1111, cfg.Port)
}

func TestFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "relay.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 2222
user_store = "sqlite"
sqlite_path = "/tmp/relay.db"
outbox_limit = 64
allowed_origins = ["http://a.example"]
`), 0o600))

	t.Setenv("PORT", "3333")
	t.Setenv("ALLOWED_ORIGINS", "http://b.example, http://c.example")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3333, cfg.Port)
	assert.Equal(t, "sqlite", cfg.UserStore)
	assert.Equal(t, "/tmp/relay.db", cfg.SQLitePath)
	assert.Equal(t, 64, cfg.OutboxLimit)
	assert.Equal(t, []string{"http://b.example", "http://c.example"}, cfg.AllowedOrigins)
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port not a number", map[string]string{"PORT": "abc"}},
		{"privileged port", map[string]string{"PORT": "80"}},
		{"negative outbox", map[string]string{"OUTBOX_LIMIT": "-1"}},
		{"unknown store", map[string]string{"USER_STORE": "floppy"}},
		{"s3 without bucket", map[string]string{"USER_STORE": "s3"}},
		{"production without secret", map[string]string{"ENVIRONMENT": "production"}},
		{"production postgres without dsn", map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "x", "USER_STORE": "postgres"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

func TestMalformedFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = ["), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
