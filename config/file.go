package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/klingpay/pkg/types"
)

// LoadFile loads wallet configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key. Coin amounts are whole-coin
// decimals ("0.2"); durations use Go syntax ("30s").
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Chain
	case "chain.endpoint":
		cfg.Chain.Endpoint = value
	case "chain.token":
		cfg.Chain.Token = value
	case "chain.timeout":
		cfg.Chain.Timeout, err = time.ParseDuration(value)
	case "chain.pagesize":
		cfg.Chain.PageSize, err = strconv.Atoi(value)

	// Resolver
	case "resolver.endpoint":
		cfg.Resolver.Endpoint = value
	case "resolver.timeout":
		cfg.Resolver.Timeout, err = time.ParseDuration(value)
	case "resolver.cachettl":
		cfg.Resolver.CacheTTL, err = time.ParseDuration(value)
	case "resolver.negativettl":
		cfg.Resolver.NegativeTTL, err = time.ParseDuration(value)
	case "resolver.concurrency":
		cfg.Resolver.Concurrency, err = strconv.Atoi(value)

	// Price
	case "price.endpoint":
		cfg.Price.Endpoint = value
	case "price.currency":
		cfg.Price.Currency = strings.ToUpper(value)
	case "price.ttl":
		cfg.Price.TTL, err = time.ParseDuration(value)

	// Payment
	case "payment.commission_bps":
		cfg.Payment.CommissionBps, err = strconv.ParseUint(value, 10, 64)
	case "payment.commission_floor":
		cfg.Payment.CommissionFloor, err = types.ParseAmount(value)
	case "payment.tip_floor":
		cfg.Payment.TipFloor, err = types.ParseAmount(value)
	case "payment.fee_padding":
		cfg.Payment.FeePadding, err = types.ParseAmount(value)
	case "payment.fee_address":
		cfg.Payment.FeeAddress = value
	case "payment.tip_address":
		cfg.Payment.TipAddress = value
	case "payment.ttl_window":
		cfg.Payment.TTLWindow, err = strconv.ParseUint(value, 10, 64)
	case "payment.refresh_timeout":
		cfg.Payment.RefreshTimeout, err = time.ParseDuration(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return err
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default wallet configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	d := Default(network)
	content := `# Klingpay Wallet Configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.klingpay)
# datadir = ~/.klingpay

# ============================================================================
# Node RPC
# ============================================================================

chain.endpoint = ` + d.Chain.Endpoint + `
# chain.token =
chain.timeout = ` + d.Chain.Timeout.String() + `
chain.pagesize = ` + strconv.Itoa(d.Chain.PageSize) + `

# ============================================================================
# Contact Directory (handles such as e-mail addresses and phone numbers)
# ============================================================================

# resolver.endpoint = https://directory.example.com/rpc
resolver.cachettl = ` + d.Resolver.CacheTTL.String() + `
resolver.negativettl = ` + d.Resolver.NegativeTTL.String() + `
resolver.concurrency = ` + strconv.Itoa(d.Resolver.Concurrency) + `

# ============================================================================
# Price Feed
# ============================================================================

# price.endpoint = https://prices.example.com/rpc
price.currency = ` + d.Price.Currency + `

# ============================================================================
# Payments (amounts in whole coins)
# ============================================================================

payment.commission_bps = ` + strconv.FormatUint(d.Payment.CommissionBps, 10) + `
payment.commission_floor = ` + types.Coins(d.Payment.CommissionFloor).String() + `
payment.tip_floor = ` + types.Coins(d.Payment.TipFloor).String() + `
payment.fee_padding = ` + types.Coins(d.Payment.FeePadding).String() + `
# payment.fee_address = <commission address>
# payment.tip_address = <tip address>
payment.ttl_window = ` + strconv.FormatUint(d.Payment.TTLWindow, 10) + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
