package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

// NOTE: Most of the structs & relevant comments + the default configuration
// options were used to manually generate the config.toml. Please reflect any
// changes made here in the defaultConfigTemplate constant in config/toml.go.
var (
	DefaultSmiloDir  = ".smilo"
	defaultConfigDir = "config"
	defaultDataDir   = "data"

	defaultConfigFileName = "config.toml"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
)

// Config defines the top level configuration for a node.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	P2P             *P2PConfig             `mapstructure:"p2p"`
	Sync            *SyncConfig            `mapstructure:"sync"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for a node.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		P2P:             DefaultP2PConfig(),
		Sync:            DefaultSyncConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing.
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		P2P:             TestP2PConfig(),
		Sync:            DefaultSyncConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs.
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.P2P.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [p2p] section: %w", err)
	}
	if err := cfg.Sync.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [sync] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for a node.
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this node
	Moniker string `mapstructure:"moniker"`

	// The identifier this node announces to its peers. Records carrying
	// this identifier are rejected as self connections.
	DefaultAddress string `mapstructure:"default_address"`

	// Database backend: goleveldb | memdb
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_dir"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`
}

var defaultMoniker = getDefaultMoniker()

// DefaultBaseConfig returns a default base configuration for a node.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:        defaultMoniker,
		DefaultAddress: defaultMoniker,
		DBBackend:      "goleveldb",
		DBPath:         defaultDataDir,
		LogLevel:       log.LogLevelInfo,
		LogFormat:      log.LogFormatPlain,
	}
}

// TestBaseConfig returns a base configuration for testing a node.
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.DefaultAddress = "test-node"
	cfg.DBBackend = "memdb"
	return cfg
}

// DBDir returns the full path to the database directory.
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ConfigFile returns the full path to the config.toml file.
func (cfg BaseConfig) ConfigFile() string {
	return rootify(defaultConfigFilePath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	if cfg.DefaultAddress == "" {
		return errors.New("default_address can't be empty")
	}
	if strings.ContainsAny(cfg.DefaultAddress, " \n") {
		return errors.New("default_address can't contain spaces or newlines")
	}
	switch cfg.LogFormat {
	case log.LogFormatPlain, log.LogFormatText, log.LogFormatJSON:
	default:
		return errors.New("unknown log format (must be 'plain', 'text' or 'json')")
	}
	switch cfg.LogLevel {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	switch cfg.DBBackend {
	case "goleveldb", "memdb":
	default:
		return fmt.Errorf("unsupported db backend %q (must be 'goleveldb' or 'memdb')", cfg.DBBackend)
	}
	return nil
}

//-----------------------------------------------------------------------------
// P2PConfig

// P2PConfig defines the configuration options for the peer-to-peer layer.
type P2PConfig struct {
	// Address to listen for incoming connections
	ListenAddress string `mapstructure:"laddr"`

	// Comma separated list of host:port peers to keep connections to
	PersistentPeers string `mapstructure:"persistent_peers"`

	// Capabilities announced to peers, as name/version
	Capabilities []string `mapstructure:"capabilities"`

	// Time between pings; peers silent for three intervals are dropped
	PingInterval time.Duration `mapstructure:"ping_interval"`

	// Peer record exchange timeout
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`

	// Outbound connection timeout
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	// Maximum size of a single message
	MaxMessageSize int `mapstructure:"max_message_size"`

	// Maximum number of inbound peers
	MaxNumInboundPeers int `mapstructure:"max_num_inbound_peers"`
}

// DefaultP2PConfig returns a default configuration for the peer-to-peer layer.
func DefaultP2PConfig() *P2PConfig {
	return &P2PConfig{
		ListenAddress:      "tcp://0.0.0.0:30303",
		Capabilities:       []string{"smilo/1"},
		PingInterval:       30 * time.Second,
		HandshakeTimeout:   20 * time.Second,
		DialTimeout:        3 * time.Second,
		MaxMessageSize:     1024 * 1024,
		MaxNumInboundPeers: 40,
	}
}

// TestP2PConfig returns a configuration for testing the peer-to-peer layer.
func TestP2PConfig() *P2PConfig {
	cfg := DefaultP2PConfig()
	cfg.ListenAddress = "tcp://127.0.0.1:0"
	cfg.PingInterval = 0
	cfg.HandshakeTimeout = time.Second
	cfg.DialTimeout = time.Second
	return cfg
}

// ListenHostPort returns the listen address without its scheme.
func (cfg *P2PConfig) ListenHostPort() string {
	return strings.TrimPrefix(cfg.ListenAddress, "tcp://")
}

// PersistentPeerAddresses splits PersistentPeers into its addresses.
func (cfg *P2PConfig) PersistentPeerAddresses() []string {
	return splitAndTrimEmpty(cfg.PersistentPeers, ",", " ")
}

// ParsedCapabilities parses the configured capabilities.
func (cfg *P2PConfig) ParsedCapabilities() ([]types.Capability, error) {
	caps := make([]types.Capability, 0, len(cfg.Capabilities))
	for _, s := range cfg.Capabilities {
		c, err := types.ParseCapability(s)
		if err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	return caps, nil
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *P2PConfig) ValidateBasic() error {
	if cfg.PingInterval < 0 {
		return errors.New("ping_interval can't be negative")
	}
	if cfg.HandshakeTimeout <= 0 {
		return errors.New("handshake_timeout must be positive")
	}
	if cfg.DialTimeout <= 0 {
		return errors.New("dial_timeout must be positive")
	}
	if cfg.MaxMessageSize <= 0 {
		return errors.New("max_message_size must be positive")
	}
	if cfg.MaxNumInboundPeers < 0 {
		return errors.New("max_num_inbound_peers can't be negative")
	}
	if _, err := cfg.ParsedCapabilities(); err != nil {
		return fmt.Errorf("invalid capabilities: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// SyncConfig

// SyncConfig defines the configuration of the network sync state.
type SyncConfig struct {
	// Networks this node is linked to at startup
	Networks []string `mapstructure:"networks"`
}

// DefaultSyncConfig returns a default configuration of the sync state.
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		Networks: []string{},
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *SyncConfig) ValidateBasic() error {
	seen := make(map[string]struct{}, len(cfg.Networks))
	for _, id := range cfg.Networks {
		if id == "" || strings.ContainsAny(id, " \n") {
			return fmt.Errorf("invalid network identifier %q", id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate network identifier %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "smilo",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Prometheus && cfg.PrometheusListenAddr == "" {
		return errors.New("prometheus_listen_addr can't be empty when prometheus is enabled")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// splitAndTrimEmpty slices s into all subslices separated by sep and returns a
// slice of the string s with all leading and trailing Unicode code points
// contained in cutset removed. Empty strings are dropped.
func splitAndTrimEmpty(s, sep, cutset string) []string {
	if s == "" {
		return []string{}
	}

	spl := strings.Split(s, sep)
	nonEmptyStrings := make([]string, 0, len(spl))
	for i := 0; i < len(spl); i++ {
		element := strings.Trim(spl[i], cutset)
		if element != "" {
			nonEmptyStrings = append(nonEmptyStrings, element)
		}
	}
	return nonEmptyStrings
}

func getDefaultMoniker() string {
	moniker, err := os.Hostname()
	if err != nil {
		moniker = "anonymous"
	}
	return moniker
}
