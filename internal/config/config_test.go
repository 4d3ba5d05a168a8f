package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "AI_PROVIDER", "STORE_DRIVER", "AI_TIMEOUT", "SESSION_TTL", "UPDATE_RETRY_ATTEMPTS", "AI_TEMPERATURE",
		"MAX_SITUATION_LENGTH", "MAX_REFLECTION_PROMPTS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ProviderArk, cfg.AI.Provider)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, uint(3), cfg.Session.RetryAttempts)
	assert.InDelta(t, 0.8, cfg.AI.Temperature, 1e-9)
	assert.Equal(t, 4000, cfg.Session.MaxSituationLength)
	assert.Equal(t, 5, cfg.Session.MaxReflectionPrompts)
}

func TestLoadAcceptsHostPort(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"port with space":  {"PORT", "80 80"},
		"unknown driver":   {"STORE_DRIVER", "mongo"},
		"unknown ai":       {"AI_PROVIDER", "claude"},
		"bad timeout":      {"AI_TIMEOUT", "soon"},
		"zero situation":   {"MAX_SITUATION_LENGTH", "0"},
		"negative prompts": {"MAX_REFLECTION_PROMPTS", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestAIConfigEnabled(t *testing.T) {
	assert.False(t, AIConfig{Provider: ProviderArk}.Enabled())
	assert.True(t, AIConfig{Provider: ProviderArk, Model: "ep-1", APIKey: "k"}.Enabled())
	assert.True(t, AIConfig{Provider: ProviderArk, Model: "ep-1", AccessKey: "a", SecretKey: "s"}.Enabled())
	assert.False(t, AIConfig{Provider: ProviderOpenAI, OpenAIModel: "gpt-3.5-turbo"}.Enabled())
	assert.True(t, AIConfig{Provider: ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: "gpt-3.5-turbo"}.Enabled())
}

func TestAdminConfigIsAdmin(t *testing.T) {
	t.Setenv("ADMIN_IDS", "42, 7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Admin.IsAdmin("42"))
	assert.True(t, cfg.Admin.IsAdmin("7"))
	assert.False(t, cfg.Admin.IsAdmin("8"))
	assert.False(t, cfg.Admin.IsAdmin(""))
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if prev, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, prev) })
			os.Unsetenv(key)
		}
	}
}
