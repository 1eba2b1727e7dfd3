// Package config handles wallet configuration.
//
// Settings come from three layers, later ones winning: per-network
// defaults, a key = value file, and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds wallet runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Node RPC
	Chain ChainConfig

	// Contact directory
	Resolver ResolverConfig

	// Fiat price feed
	Price PriceConfig

	// Commission, tip and fee policy
	Payment PaymentConfig

	// Logging
	Log LogConfig
}

// ChainConfig holds node RPC settings.
type ChainConfig struct {
	Endpoint string        `conf:"chain.endpoint"`
	Token    string        `conf:"chain.token"` // Bearer token, if the node wants one.
	Timeout  time.Duration `conf:"chain.timeout"`
	PageSize int           `conf:"chain.pagesize"` // UTXOs per page.
}

// ResolverConfig holds contact directory settings. An empty endpoint
// disables handle resolution.
type ResolverConfig struct {
	Endpoint    string        `conf:"resolver.endpoint"`
	Timeout     time.Duration `conf:"resolver.timeout"`
	CacheTTL    time.Duration `conf:"resolver.cachettl"`
	NegativeTTL time.Duration `conf:"resolver.negativettl"`
	Concurrency int           `conf:"resolver.concurrency"` // History lookups in flight.
}

// PriceConfig holds price feed settings. An empty endpoint disables fiat
// display.
type PriceConfig struct {
	Endpoint string        `conf:"price.endpoint"`
	Currency string        `conf:"price.currency"`
	TTL      time.Duration `conf:"price.ttl"`
}

// PaymentConfig holds the payment policy. Amounts are in minor units.
type PaymentConfig struct {
	CommissionBps   uint64        `conf:"payment.commission_bps"`
	CommissionFloor uint64        `conf:"payment.commission_floor"`
	TipFloor        uint64        `conf:"payment.tip_floor"`
	FeePadding      uint64        `conf:"payment.fee_padding"`
	FeeAddress      string        `conf:"payment.fee_address"`
	TipAddress      string        `conf:"payment.tip_address"`
	TTLWindow       uint64        `conf:"payment.ttl_window"` // Slots; 0 disables expiry.
	RefreshTimeout  time.Duration `conf:"payment.refresh_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingpay
//	macOS:   ~/Library/Application Support/Klingpay
//	Windows: %APPDATA%\Klingpay
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingpay"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingpay")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Klingpay")
		}
		return filepath.Join(home, "AppData", "Roaming", "Klingpay")
	default:
		return filepath.Join(home, ".klingpay")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// CacheDir returns the on-disk response cache directory.
func (c *Config) CacheDir() string {
	return filepath.Join(c.NetworkDataDir(), "cache")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingpay.conf")
}
