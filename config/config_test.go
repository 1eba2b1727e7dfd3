package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Klingon-tech/klingpay/pkg/types"
)

func TestDefault(t *testing.T) {
	mn := Default(Mainnet)
	tn := Default(Testnet)
	if mn.Network != Mainnet || tn.Network != Testnet {
		t.Fatalf("networks = %s, %s", mn.Network, tn.Network)
	}
	if mn.Chain.Endpoint == tn.Chain.Endpoint {
		t.Error("mainnet and testnet share an RPC endpoint")
	}
	if mn.Payment.TipFloor != types.Coin {
		t.Errorf("TipFloor = %d, want one coin", mn.Payment.TipFloor)
	}
	if err := Validate(mn); err != nil {
		t.Errorf("Validate(DefaultMainnet()) = %v", err)
	}
	if err := Validate(tn); err != nil {
		t.Errorf("Validate(DefaultTestnet()) = %v", err)
	}
	if AddressHRP(Testnet) != types.TestnetHRP || AddressHRP(Mainnet) != types.MainnetHRP {
		t.Error("AddressHRP mismatch")
	}
}

func TestDirs(t *testing.T) {
	cfg := &Config{Network: Testnet, DataDir: "/data"}
	if got := cfg.KeystoreDir(); got != filepath.Join("/data", "testnet", "keystore") {
		t.Errorf("KeystoreDir() = %s", got)
	}
	if got := cfg.ConfigFile(); got != filepath.Join("/data", "klingpay.conf") {
		t.Errorf("ConfigFile() = %s", got)
	}
}

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "klingpay.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile_Apply(t *testing.T) {
	path := writeConf(t, `
# comment
network = testnet
chain.endpoint = "http://node:9000"
chain.timeout = 5s
chain.pagesize = 50
resolver.endpoint = 'https://dir.example.com'
resolver.concurrency = 4
price.currency = eur
payment.commission_bps = 250
payment.commission_floor = 0.5
payment.tip_floor = 2
payment.fee_padding = 0.2
payment.ttl_window = 600
log.json = yes
unknown.key = whatever
`)
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	cfg := DefaultMainnet()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}

	if cfg.Network != Testnet {
		t.Errorf("Network = %s", cfg.Network)
	}
	if cfg.Chain.Endpoint != "http://node:9000" {
		t.Errorf("Chain.Endpoint = %q", cfg.Chain.Endpoint)
	}
	if cfg.Chain.Timeout != 5*time.Second || cfg.Chain.PageSize != 50 {
		t.Errorf("Chain = %+v", cfg.Chain)
	}
	if cfg.Resolver.Endpoint != "https://dir.example.com" || cfg.Resolver.Concurrency != 4 {
		t.Errorf("Resolver = %+v", cfg.Resolver)
	}
	if cfg.Price.Currency != "EUR" {
		t.Errorf("Price.Currency = %q", cfg.Price.Currency)
	}
	p := cfg.Payment
	if p.CommissionBps != 250 || p.CommissionFloor != 500_000 || p.TipFloor != 2_000_000 || p.FeePadding != 200_000 || p.TTLWindow != 600 {
		t.Errorf("Payment = %+v", p)
	}
	if !cfg.Log.JSON {
		t.Error("Log.JSON not set")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("values = %v, want empty", values)
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	_, err := LoadFile(writeConf(t, "network = mainnet\njust words\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("LoadFile() error = %v, want line 2", err)
	}
}

func TestApplyFileConfig_BadValues(t *testing.T) {
	tests := map[string]string{
		"chain.timeout":            "soon",
		"chain.pagesize":           "many",
		"payment.commission_bps":   "-1",
		"payment.tip_floor":        "0.0000001",
		"payment.commission_floor": "-2",
	}
	for key, value := range tests {
		err := ApplyFileConfig(DefaultMainnet(), map[string]string{key: value})
		if err == nil {
			t.Errorf("%s = %q accepted", key, value)
		}
	}
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klingpay.conf")
	if err := WriteDefaultConfig(path, Testnet); err != nil {
		t.Fatalf("WriteDefaultConfig() error: %v", err)
	}
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	cfg := DefaultMainnet()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}
	want := DefaultTestnet()
	if cfg.Network != want.Network || cfg.Chain != want.Chain || cfg.Payment != want.Payment {
		t.Errorf("round trip = %+v, want %+v", cfg, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad network", func(c *Config) { c.Network = "regtest" }},
		{"no chain endpoint", func(c *Config) { c.Chain.Endpoint = "" }},
		{"chain endpoint scheme", func(c *Config) { c.Chain.Endpoint = "ftp://node" }},
		{"resolver endpoint host", func(c *Config) { c.Resolver.Endpoint = "http://" }},
		{"negative timeout", func(c *Config) { c.Chain.Timeout = -time.Second }},
		{"negative concurrency", func(c *Config) { c.Resolver.Concurrency = -1 }},
		{"rate above 100%", func(c *Config) { c.Payment.CommissionBps = 10_001 }},
		{"bad fee address", func(c *Config) { c.Payment.FeeAddress = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMainnet()
			tt.modify(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}
	if err := Validate(nil); err == nil {
		t.Error("Validate(nil) accepted")
	}
}

func TestValidatePayment(t *testing.T) {
	cfg := DefaultMainnet()
	if err := ValidatePayment(cfg); err == nil {
		t.Error("commission without fee address accepted")
	}
	cfg.Payment.FeeAddress = types.Address{1}.String()
	if err := ValidatePayment(cfg); err != nil {
		t.Errorf("ValidatePayment() = %v", err)
	}
	cfg.Payment.CommissionBps = 0
	cfg.Payment.FeeAddress = ""
	if err := ValidatePayment(cfg); err != nil {
		t.Errorf("ValidatePayment() without commission = %v", err)
	}
}
