package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/brojonat/coinguard/service/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_ADDR", "LOG_LEVEL", "SHUTDOWN_TIMEOUT", "NETWORK", "REDEMPTION_ADDRESS",
		"DATASET_SOURCE", "DATASET_PATH", "DATABASE_URL", "NATS_URL", "NATS_STREAM",
		"REQUIRE_LOADED", "ALLOW_RELOAD",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, network.Main, cfg.Network)
	assert.Equal(t, "static", cfg.DatasetSource)
	assert.Equal(t, "", cfg.NATSURL)
	assert.Equal(t, "REDEMPTIONS", cfg.NATSStream)
	assert.False(t, cfg.RequireLoaded)
	assert.False(t, cfg.AllowReload)

	params, err := cfg.NetworkParams()
	require.NoError(t, err)
	assert.Equal(t, "B7nPQHKmX8DPkBFaBtaNQWc9SxD3uYpYv6", params.RedemptionAddress)
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NETWORK", "test")
	t.Setenv("DATASET_SOURCE", "file")
	t.Setenv("DATASET_PATH", "/etc/coinguard/infractions.tsv")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("NATS_STREAM", "GUARD")
	t.Setenv("REQUIRE_LOADED", "true")
	t.Setenv("ALLOW_RELOAD", "1")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, network.Test, cfg.Network)
	assert.Equal(t, "/etc/coinguard/infractions.tsv", cfg.DatasetConfig().Path)
	assert.Equal(t, "GUARD", cfg.NATSStream)
	assert.True(t, cfg.RequireLoaded)
	assert.True(t, cfg.AllowReload)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown network",
			env:     map[string]string{"NETWORK": "mainnet"},
			wantErr: "NETWORK must be one of",
		},
		{
			name:    "redemption address for another network",
			env:     map[string]string{"NETWORK": "test", "REDEMPTION_ADDRESS": "B7nPQHKmX8DPkBFaBtaNQWc9SxD3uYpYv6"},
			wantErr: "REDEMPTION_ADDRESS",
		},
		{
			name:    "file source without path",
			env:     map[string]string{"DATASET_SOURCE": "file"},
			wantErr: "DATASET_PATH is required",
		},
		{
			name:    "postgres source without url",
			env:     map[string]string{"DATASET_SOURCE": "postgres"},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "unknown source",
			env:     map[string]string{"DATASET_SOURCE": "s3"},
			wantErr: "DATASET_SOURCE must be one of",
		},
		{
			name:    "bad boolean",
			env:     map[string]string{"REQUIRE_LOADED": "sometimes"},
			wantErr: "invalid boolean",
		},
		{
			name:    "bad duration",
			env:     map[string]string{"SHUTDOWN_TIMEOUT": "soon"},
			wantErr: "invalid duration",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"LOG_LEVEL": "verbose"},
			wantErr: "LOG_LEVEL must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	clearEnv(t)
	t.Setenv("NETWORK", "nowhere")

	assert.Panics(t, func() { MustLoad() })
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		ServerAddr:    ":8080",
		LogLevel:      "warn",
		Network:       network.Regtest,
		DatasetSource: "static",
	}
	require.NoError(t, cfg.Validate())

	cfg.ServerAddr = ""
	cfg.NATSURL = "nats://localhost:4222"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ServerAddr is required")
	assert.Contains(t, err.Error(), "NATS_STREAM is required")
}

func TestNetworkParams_Override(t *testing.T) {
	cfg := &Config{Network: network.Test, RedemptionAddress: "yMFHXve7QmME257yjhJmppFgFLFiwUVvyo"}

	params, err := cfg.NetworkParams()
	require.NoError(t, err)
	assert.Equal(t, "yMFHXve7QmME257yjhJmppFgFLFiwUVvyo", params.RedemptionAddress)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
