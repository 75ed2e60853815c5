package config_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ady24s/Cloud9/internal/config"
)

func validKey() string {
	return base64.StdEncoding.EncodeToString(make([]byte, 32))
}

func TestConfig_Validate(t *testing.T) {
	t.Run("rejects missing encryption key", func(t *testing.T) {
		cfg := config.Default()
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encryption key")
	})

	t.Run("accepts valid base64 key", func(t *testing.T) {
		cfg := config.Default()
		cfg.EncryptionKey = validKey()
		require.NoError(t, cfg.Validate())
		assert.Len(t, cfg.KeyBytes(), 32)
	})

	t.Run("rejects short key", func(t *testing.T) {
		cfg := config.Default()
		cfg.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects malformed base64", func(t *testing.T) {
		cfg := config.Default()
		cfg.EncryptionKey = "not-base64!!!"
		assert.Error(t, cfg.Validate())
	})

	t.Run("accepts passphrase without raw key", func(t *testing.T) {
		cfg := config.Default()
		cfg.EncryptionPassphrase = "correct horse battery staple"
		require.NoError(t, cfg.Validate())
		assert.Nil(t, cfg.KeyBytes())
	})

	t.Run("rejects non-positive sweep interval", func(t *testing.T) {
		cfg := config.Default()
		cfg.EncryptionKey = validKey()
		cfg.SweepInterval = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLOUD9_ENCRYPTION_KEY", validKey())
	t.Setenv("CLOUD9_SWEEP_INTERVAL", "5m")
	t.Setenv("CLOUD9_MAX_REGIONS", "2")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 2, cfg.MaxRegions)
	assert.Equal(t, time.Hour, cfg.Lookback)
}
