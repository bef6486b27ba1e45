// Package config loads wallet configuration from a YAML file with
// environment overrides, and provides the file-backed logger.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// Defaults target the Sepolia testnet.
const (
	DefaultChainID    = 11155111
	DefaultRPCURL     = "https://ethereum-sepolia-rpc.publicnode.com"
	DefaultSessionTTL = 15 * time.Minute

	configFileName = "config.yaml"
	configDirPerm  = 0o700
)

// Config is the root configuration.
type Config struct {
	// Home is the wallet data directory. Seed vault, contacts, and logs
	// live under it.
	Home string `yaml:"home"`

	Network NetworkConfig `yaml:"network"`
	History HistoryConfig `yaml:"history"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// NetworkConfig describes the Ethereum network to talk to.
type NetworkConfig struct {
	RPC     string        `yaml:"rpc"`
	ChainID int64         `yaml:"chain_id"`
	Tokens  []TokenConfig `yaml:"tokens,omitempty"`
}

// TokenConfig registers an ERC-20 token for transfers and balances.
type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int    `yaml:"decimals"`
}

// HistoryConfig configures the block-explorer collaborator.
type HistoryConfig struct {
	APIURL string `yaml:"api_url,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
}

// SessionConfig controls session behavior.
type SessionConfig struct {
	// TTL bounds how long an unlocked seed stays cached.
	TTL time.Duration `yaml:"-"`
}

// UnmarshalYAML accepts the TTL as a duration string ("15m", "1h").
func (s *SessionConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TTL string `yaml:"ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.TTL == "" {
		return nil
	}

	ttl, err := time.ParseDuration(raw.TTL)
	if err != nil {
		return walleterr.Wrap(walleterr.ErrConfigInvalid, "invalid session.ttl %q", raw.TTL)
	}
	s.TTL = ttl
	return nil
}

// MarshalYAML writes the TTL back as a duration string.
func (s SessionConfig) MarshalYAML() (any, error) {
	return struct {
		TTL string `yaml:"ttl"`
	}{TTL: s.TTL.String()}, nil
}

// LoggingConfig controls the file logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Home: filepath.Join(home, ".tide"),
		Network: NetworkConfig{
			RPC:     DefaultRPCURL,
			ChainID: DefaultChainID,
		},
		Session: SessionConfig{TTL: DefaultSessionTTL},
		Logging: LoggingConfig{Level: "error"},
	}
}

// Load reads configuration: defaults, then the YAML file under the home
// directory if present, then environment overrides. TIDE_HOME relocates
// the home directory (and with it the config file) before the file read.
func Load() (*Config, error) {
	cfg := Default()

	if home := os.Getenv("TIDE_HOME"); home != "" {
		cfg.Home = home
	}

	path := filepath.Join(cfg.Home, configFileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, walleterr.WithDetails(
				walleterr.Wrap(walleterr.ErrConfigInvalid, "parsing %s", path),
				map[string]string{"file": path},
			)
		}
	case errors.Is(err, os.ErrNotExist):
		// No file is fine; defaults and env apply.
	default:
		return nil, walleterr.Wrap(err, "reading config file")
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers TIDE_* environment variables over the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TIDE_HOME"); v != "" {
		cfg.Home = v
	}
	if v := os.Getenv("TIDE_ETH_RPC"); v != "" {
		cfg.Network.RPC = v
	}
	if v := os.Getenv("TIDE_CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Network.ChainID = id
		}
	}
	if v := os.Getenv("TIDE_EXPLORER_URL"); v != "" {
		cfg.History.APIURL = v
	}
	if v := os.Getenv("TIDE_ETHERSCAN_API_KEY"); v != "" {
		cfg.History.APIKey = v
	}
	if v := os.Getenv("TIDE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TIDE_SESSION_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Session.TTL = ttl
		}
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Home == "" {
		return walleterr.Wrap(walleterr.ErrConfigInvalid, "home directory is empty")
	}
	if c.Network.RPC == "" {
		return walleterr.Wrap(walleterr.ErrConfigInvalid, "network.rpc is empty")
	}
	if c.Network.ChainID <= 0 {
		return walleterr.Wrap(walleterr.ErrConfigInvalid, "network.chain_id must be positive")
	}
	if c.Session.TTL <= 0 {
		return walleterr.Wrap(walleterr.ErrConfigInvalid, "session.ttl must be positive")
	}
	for _, token := range c.Network.Tokens {
		if token.Symbol == "" || token.Address == "" {
			return walleterr.Wrap(walleterr.ErrConfigInvalid, "token entries need symbol and address")
		}
		if token.Decimals < 0 || token.Decimals > 18 {
			return walleterr.Wrap(walleterr.ErrConfigInvalid,
				"token %s decimals must be between 0 and 18", token.Symbol)
		}
	}
	return nil
}

// Save writes the configuration to its YAML file.
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return walleterr.Wrap(err, "encoding config")
	}

	if err := os.MkdirAll(c.Home, configDirPerm); err != nil {
		return walleterr.Wrap(err, "creating home directory")
	}

	return os.WriteFile(filepath.Join(c.Home, configFileName), data, 0o600)
}

// NewLoggerFromConfig builds the logger described by the config, writing
// to tide.log under the home directory unless a file is set.
func (c *Config) NewLoggerFromConfig() (*Logger, error) {
	level := ParseLogLevel(c.Logging.Level)
	file := c.Logging.File
	if file == "" && level != LogLevelOff {
		file = filepath.Join(c.Home, "tide.log")
	}
	return NewLogger(level, file)
}

// Token finds a registered token by symbol, case-sensitively.
func (c *Config) Token(symbol string) (*TokenConfig, bool) {
	for i := range c.Network.Tokens {
		if c.Network.Tokens[i].Symbol == symbol {
			return &c.Network.Tokens[i], true
		}
	}
	return nil, false
}
