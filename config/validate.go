package config

import (
	"fmt"
	"net/url"

	"github.com/Klingon-tech/klingpay/internal/commission"
	"github.com/Klingon-tech/klingpay/pkg/types"
)

// Validate checks the configuration for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if err := validateEndpoint(cfg.Chain.Endpoint, "chain.endpoint", true); err != nil {
		return err
	}
	if err := validateEndpoint(cfg.Resolver.Endpoint, "resolver.endpoint", false); err != nil {
		return err
	}
	if err := validateEndpoint(cfg.Price.Endpoint, "price.endpoint", false); err != nil {
		return err
	}
	if cfg.Chain.Timeout < 0 || cfg.Resolver.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if cfg.Chain.PageSize < 0 {
		return fmt.Errorf("chain.pagesize must not be negative")
	}
	if cfg.Resolver.Concurrency < 0 {
		return fmt.Errorf("resolver.concurrency must not be negative")
	}

	policy := commission.Policy{RateBps: cfg.Payment.CommissionBps, Floor: cfg.Payment.CommissionFloor}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("payment: %w", err)
	}
	if _, err := ParseOptionalAddress(cfg.Payment.FeeAddress); err != nil {
		return fmt.Errorf("payment.fee_address: %w", err)
	}
	if _, err := ParseOptionalAddress(cfg.Payment.TipAddress); err != nil {
		return fmt.Errorf("payment.tip_address: %w", err)
	}
	return nil
}

// ValidatePayment checks what spending needs on top of Validate: a
// commission needs somewhere to go.
func ValidatePayment(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if cfg.Payment.CommissionBps > 0 && cfg.Payment.FeeAddress == "" {
		return fmt.Errorf("payment.fee_address is required when payment.commission_bps is set")
	}
	return nil
}

// ParseOptionalAddress parses s, treating the empty string as the zero
// address.
func ParseOptionalAddress(s string) (types.Address, error) {
	if s == "" {
		return types.Address{}, nil
	}
	return types.ParseAddress(s)
}

func validateEndpoint(raw, field string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", field)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", field)
	}
	return nil
}
