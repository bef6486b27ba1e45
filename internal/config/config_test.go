package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, int64(DefaultChainID), cfg.Network.ChainID)
	assert.Equal(t, DefaultRPCURL, cfg.Network.RPC)
	assert.Equal(t, DefaultSessionTTL, cfg.Session.TTL)
	assert.Equal(t, "error", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TIDE_HOME", home)

	yaml := `
network:
  rpc: https://rpc.example.test
  chain_id: 1
  tokens:
    - symbol: USDC
      address: "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
      decimals: 6
history:
  api_key: secret
session:
  ttl: 5m
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, "https://rpc.example.test", cfg.Network.RPC)
	assert.Equal(t, int64(1), cfg.Network.ChainID)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "secret", cfg.History.APIKey)

	token, ok := cfg.Token("USDC")
	require.True(t, ok)
	assert.Equal(t, 6, token.Decimals)

	_, ok = cfg.Token("WETH")
	assert.False(t, ok)
}

func TestLoadNoFileUsesDefaults(t *testing.T) {
	t.Setenv("TIDE_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultChainID), cfg.Network.ChainID)
	assert.Equal(t, DefaultSessionTTL, cfg.Session.TTL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TIDE_HOME", t.TempDir())
	t.Setenv("TIDE_ETH_RPC", "https://override.example.test")
	t.Setenv("TIDE_CHAIN_ID", "5")
	t.Setenv("TIDE_LOG_LEVEL", "debug")
	t.Setenv("TIDE_SESSION_TTL", "90s")
	t.Setenv("TIDE_ETHERSCAN_API_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.test", cfg.Network.RPC)
	assert.Equal(t, int64(5), cfg.Network.ChainID)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 90*time.Second, cfg.Session.TTL)
	assert.Equal(t, "env-key", cfg.History.APIKey)
}

func TestLoadBadYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TIDE_HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("{{nope"), 0o600))

	_, err := Load()
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrConfigInvalid))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty home", mutate: func(c *Config) { c.Home = "" }},
		{name: "empty rpc", mutate: func(c *Config) { c.Network.RPC = "" }},
		{name: "zero chain id", mutate: func(c *Config) { c.Network.ChainID = 0 }},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }},
		{name: "token missing symbol", mutate: func(c *Config) {
			c.Network.Tokens = []TokenConfig{{Address: "0xabc", Decimals: 6}}
		}},
		{name: "token decimals out of range", mutate: func(c *Config) {
			c.Network.Tokens = []TokenConfig{{Symbol: "X", Address: "0xabc", Decimals: 19}}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, walleterr.Is(err, walleterr.ErrConfigInvalid))
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TIDE_HOME", home)

	cfg := Default()
	cfg.Home = home
	cfg.Session.TTL = 7 * time.Minute
	cfg.Network.ChainID = 1
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7*time.Minute, loaded.Session.TTL)
	assert.Equal(t, int64(1), loaded.Network.ChainID)
}

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tide.log")
	logger, err := NewLogger(LogLevelError, path)
	require.NoError(t, err)

	logger.Error("something failed: %s", "reason")
	logger.Debug("should be filtered")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "something failed: reason")
	assert.Contains(t, string(data), "[ERROR]")
	assert.NotContains(t, string(data), "should be filtered")
}

func TestNullLoggerDiscards(t *testing.T) {
	t.Parallel()

	logger := NullLogger()
	logger.Error("nothing happens")
	logger.Debug("nothing happens")
	require.NoError(t, logger.Close())
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LogLevelOff, ParseLogLevel("off"))
	assert.Equal(t, LogLevelOff, ParseLogLevel("NONE"))
	assert.Equal(t, LogLevelDebug, ParseLogLevel(" debug "))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelError, ParseLogLevel("bogus"))
}
