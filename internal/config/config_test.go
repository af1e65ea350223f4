package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("META_VERIFY_TOKEN", "verify-secret")
}

func TestLoadDefaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://graph.facebook.com", cfg.WhatsApp.BaseURL)
	assert.Equal(t, "v20.0", cfg.WhatsApp.APIVersion)
	assert.Equal(t, "waresponder", cfg.MongoDB.DBName)
	assert.Equal(t, []string{"text", "interactive", "button"}, cfg.AutoReply.AllowedKinds)
	assert.Equal(t, 10, cfg.AutoReply.MinSenderLength)
	assert.Equal(t, 30*time.Second, cfg.AutoReply.CacheTTL)
	assert.Equal(t, "0 8 * * *", cfg.Digest.CronSchedule)
}

func TestLoadOverrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("AUTO_REPLY_ALLOWED_KINDS", "text, button")
	t.Setenv("AUTO_REPLY_CACHE_TTL_SECONDS", "45")
	t.Setenv("AUTO_REPLY_MIN_SENDER_LENGTH", "8")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"text", "button"}, cfg.AutoReply.AllowedKinds)
	assert.Equal(t, 45*time.Second, cfg.AutoReply.CacheTTL)
	assert.Equal(t, 8, cfg.AutoReply.MinSenderLength)
}

func TestLoadRequiresMongoURI(t *testing.T) {
	t.Setenv("MONGODB_URI", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGODB_URI")
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("AUTO_REPLY_CACHE_TTL_SECONDS", "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidateMissingCredentialsIsNotFatal(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: "8080"},
		MongoDB: MongoDBConfig{URI: "mongodb://localhost:27017", DBName: "waresponder"},
		WhatsApp: WhatsAppConfig{
			BaseURL:    "https://graph.facebook.com",
			APIVersion: "v20.0",
		},
		AutoReply: AutoReplyConfig{
			AllowedKinds:    []string{"text"},
			MinSenderLength: 10,
			CacheTTL:        30 * time.Second,
		},
		Digest: DigestConfig{CronSchedule: "0 8 * * *"},
	}

	// Send credentials are checked at the point of use, not at startup.
	assert.NoError(t, cfg.Validate())
}
