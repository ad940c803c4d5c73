package app_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidvault/internal/app"
	"bidvault/internal/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := app.LoadConfig(home)
	require.NoError(t, err)

	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.RelayURL)
	assert.Equal(t, app.SecretsFile, cfg.SecretsBackend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 5*time.Second, cfg.Sync.Debounce)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Periodic)
	assert.Equal(t, time.Second, cfg.Sync.Backoff.Base)
	assert.Equal(t, time.Minute, cfg.Sync.Backoff.Cap)
	assert.InDelta(t, 0.25, cfg.Sync.Backoff.Jitter, 1e-9)
	assert.Equal(t, 5, cfg.Sync.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.Sync.RequestTimeout)
	assert.Equal(t, domain.SchemeStudentKey, cfg.Envelope.Scheme)
	assert.Empty(t, cfg.Envelope.Viewers)
}

func TestLoadConfig_Layers(t *testing.T) {
	home := t.TempDir()
	yaml := []byte(`relay_url: http://relay.internal:9000/
classroom: room-1
sync:
  max_retries: 3
  periodic: 1m
envelope:
  scheme: recipients
  viewers:
    - teacher-1
    - admin-1
`)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), yaml, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"),
		[]byte("BIDVAULT_CLASSROOM=room-7\nBIDVAULT_API_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("BIDVAULT_CLASSROOM")
		_ = os.Unsetenv("BIDVAULT_API_KEY")
	})
	t.Setenv("BIDVAULT_SYNC_DEBOUNCE", "2s")

	cfg, err := app.LoadConfig(home)
	require.NoError(t, err)

	assert.Equal(t, "http://relay.internal:9000", cfg.RelayURL)
	assert.Equal(t, "room-7", cfg.Classroom, "environment wins over config.yaml")
	assert.Equal(t, "from-dotenv", cfg.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Sync.Debounce)
	assert.Equal(t, time.Minute, cfg.Sync.Periodic)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, domain.SchemeRecipients, cfg.Envelope.Scheme)
	assert.Equal(t, []domain.IdentityID{"teacher-1", "admin-1"}, cfg.Envelope.Viewers)
}

func TestLoadConfig_ViewersFromEnv(t *testing.T) {
	t.Setenv("BIDVAULT_ENVELOPE_SCHEME", "recipients")
	t.Setenv("BIDVAULT_ENVELOPE_VIEWERS", "teacher-1, admin-1")

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []domain.IdentityID{"teacher-1", "admin-1"}, cfg.Envelope.Viewers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"backend":      {"BIDVAULT_SECRETS_BACKEND": "vault"},
		"format":       {"BIDVAULT_LOG_FORMAT": "xml"},
		"scheme":       {"BIDVAULT_ENVELOPE_SCHEME": "rot13"},
		"no viewers":   {"BIDVAULT_ENVELOPE_SCHEME": "recipients"},
		"retries":      {"BIDVAULT_SYNC_MAX_RETRIES": "0"},
		"jitter":       {"BIDVAULT_SYNC_BACKOFF_JITTER": "1.5"},
		"backoff base": {"BIDVAULT_SYNC_BACKOFF_BASE": "-1s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := app.LoadConfig(t.TempDir())
			require.ErrorIs(t, err, app.ErrInvalidConfig)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := app.NewLogger(app.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.WithField("identity", "student-1").Debug("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "student-1", line["identity"])

	_, err = app.NewLogger(app.LogConfig{Level: "loud"}, &buf)
	require.Error(t, err)
}
