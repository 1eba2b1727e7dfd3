package config

import (
	"time"

	"github.com/Klingon-tech/klingpay/pkg/types"
)

// DefaultMainnet returns the default wallet configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Chain: ChainConfig{
			Endpoint: "http://127.0.0.1:8545",
			Timeout:  30 * time.Second,
			PageSize: 100,
		},
		Resolver: ResolverConfig{
			Timeout:     10 * time.Second,
			CacheTTL:    10 * time.Minute,
			NegativeTTL: time.Minute,
			Concurrency: 8,
		},
		Price: PriceConfig{
			Currency: "USD",
			TTL:      time.Minute,
		},
		Payment: PaymentConfig{
			CommissionBps:   100,
			CommissionFloor: types.Coin,
			TipFloor:        types.Coin,
			FeePadding:      200_000,
			TTLWindow:       7200,
			RefreshTimeout:  30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default wallet configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Chain.Endpoint = "http://127.0.0.1:8645"
	return cfg
}

// Default returns the default wallet configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}

// AddressHRP returns the bech32 prefix addresses use on network.
func AddressHRP(network NetworkType) string {
	if network == Testnet {
		return types.TestnetHRP
	}
	return types.MainnetHRP
}
