package config

import (
	"context"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ALLOWED_DOMAINS", "CORS_ALLOWED_ORIGINS", "LLM_PROVIDER", "LLM_MODEL",
		"LLM_BASE_URL", "LLM_TEMPERATURE", "LLM_MAX_TOKENS", "TOGETHER_API_KEY",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "STORE_DRIVER", "STORE_DSN",
		"REDIS_ADDR", "REDIS_DB", "PERSONA_FILE", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOGETHER_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, DefaultAllowedDomains, cfg.Server.AllowedDomains)
	require.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)

	require.Equal(t, ProviderTogether, cfg.AI.Provider)
	require.Equal(t, "deepseek-ai/DeepSeek-V3", cfg.AI.Model)
	require.Equal(t, "https://api.together.xyz/v1", cfg.AI.BaseURL)
	require.InDelta(t, 0.7, cfg.AI.Temperature, 1e-9)
	require.Equal(t, 150, cfg.AI.MaxTokens)
	require.True(t, cfg.AI.Enabled())

	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingCredentialDisablesAI(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.AI.Enabled())

	_, err = cfg.AI.NewChatModel(context.Background())
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("ALLOWED_DOMAINS", "kia.com, localhost ,")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_MAX_TOKENS", "300")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.Equal(t, []string{"kia.com", "localhost"}, cfg.Server.AllowedDomains)
	require.InDelta(t, 0.2, cfg.AI.Temperature, 1e-9)
	require.Equal(t, 300, cfg.AI.MaxTokens)
	require.Equal(t, "data/chat.db", cfg.Store.DSN)
	require.Equal(t, 2, cfg.Store.RedisDB)
}

func TestLoadArkProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "ark")
	t.Setenv("ARK_ACCESS_KEY", "ak")
	t.Setenv("ARK_SECRET_KEY", "sk")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderArk, cfg.AI.Provider)
	require.Equal(t, "cn-beijing", cfg.AI.Region)
	require.True(t, cfg.AI.Enabled())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":            "80 80",
		"LLM_TEMPERATURE": "warm",
		"LLM_MAX_TOKENS":  "0",
		"LLM_PROVIDER":    "bard",
		"STORE_DRIVER":    "mongo",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadWrapsParseErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_TEMPERATURE", "warm")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), `invalid LLM_TEMPERATURE value "warm"`)

	var numErr *strconv.NumError
	require.ErrorAs(t, errors.Cause(err), &numErr)
}
