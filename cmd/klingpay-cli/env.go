package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/Klingon-tech/klingpay/config"
	"github.com/Klingon-tech/klingpay/internal/chainclient"
	"github.com/Klingon-tech/klingpay/internal/commission"
	"github.com/Klingon-tech/klingpay/internal/handle"
	"github.com/Klingon-tech/klingpay/internal/history"
	klog "github.com/Klingon-tech/klingpay/internal/log"
	"github.com/Klingon-tech/klingpay/internal/metrics"
	"github.com/Klingon-tech/klingpay/internal/payment"
	"github.com/Klingon-tech/klingpay/internal/price"
	"github.com/Klingon-tech/klingpay/internal/rpcclient"
	"github.com/Klingon-tech/klingpay/internal/storage"
	"github.com/Klingon-tech/klingpay/internal/wallet"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// passwordEnv, when set, is used instead of prompting.
const passwordEnv = "KLINGPAY_PASSWORD"

// loadConfig layers defaults, the config file and global flags, then
// configures logging and the address prefix.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default(config.NetworkType(c.String("network")))
	if dir := c.String("datadir"); dir != "" {
		cfg.DataDir = dir
	}

	path := c.String("config")
	if path == "" {
		path = cfg.ConfigFile()
	}
	values, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.ApplyFileConfig(cfg, values); err != nil {
		return nil, err
	}

	if c.IsSet("network") {
		cfg.Network = config.NetworkType(c.String("network"))
	}
	if c.IsSet("datadir") {
		cfg.DataDir = c.String("datadir")
	}
	if c.IsSet("rpc") {
		cfg.Chain.Endpoint = c.String("rpc")
	}
	if c.IsSet("resolver") {
		cfg.Resolver.Endpoint = c.String("resolver")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-json") {
		cfg.Log.JSON = c.Bool("log-json")
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	types.SetAddressHRP(config.AddressHRP(cfg.Network))
	return cfg, nil
}

// env is everything a wallet command works with. close must be called.
type env struct {
	cfg      *config.Config
	name     string
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	cache    storage.Store

	chain    *chainclient.Client
	session  *wallet.Session
	accounts []wallet.Account
	resolver handle.Resolver
	prices   price.Feed

	metricsOut string
}

// openEnv unlocks the wallet and connects its services.
func openEnv(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, name: c.String("wallet"), metricsOut: c.String("metrics-out")}
	e.registry = prometheus.NewRegistry()
	e.metrics = metrics.New(e.registry)

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		return nil, err
	}
	password, err := passwordFor(fmt.Sprintf("Password for %q: ", e.name))
	if err != nil {
		return nil, err
	}
	seed, err := ks.Unlock(e.name, password)
	if err != nil {
		return nil, fmt.Errorf("unlock wallet %q: %w", e.name, err)
	}
	master, err := wallet.NewMasterKey(seed)
	clear(seed)
	if err != nil {
		return nil, err
	}
	change, err := ks.ChangeAccount(e.name, master)
	if err != nil {
		return nil, fmt.Errorf("change account: %w", err)
	}
	if e.accounts, err = ks.Accounts(e.name); err != nil {
		return nil, err
	}
	kr, err := wallet.KeyringFromMaster(master, e.accounts)
	if err != nil {
		return nil, err
	}

	if e.cache, err = openCache(cfg); err != nil {
		return nil, err
	}

	node := rpcclient.New(cfg.Chain.Endpoint, e.rpcOptions(cfg.Chain.Timeout, cfg.Chain.Token)...)
	e.chain = chainclient.New(node, kr)
	if cfg.Chain.PageSize > 0 {
		e.chain.PageSize = cfg.Chain.PageSize
	}
	e.session = wallet.NewSession(e.chain, kr)
	e.session.SetAccounts(e.accounts, change.Address)
	e.session.OnBalance(e.metrics.SetBalance)

	if cfg.Resolver.Endpoint != "" {
		dir := handle.NewRPCResolver(rpcclient.New(cfg.Resolver.Endpoint, e.rpcOptions(cfg.Resolver.Timeout, "")...))
		cached := handle.NewCachedResolver(dir, storage.NewPrefixStore(e.cache, []byte("handle/")), e.metrics)
		cached.TTL = cfg.Resolver.CacheTTL
		cached.NegativeTTL = cfg.Resolver.NegativeTTL
		e.resolver = cached
	}
	if cfg.Price.Endpoint != "" {
		feed := price.NewRPCFeed(rpcclient.New(cfg.Price.Endpoint, e.rpcOptions(cfg.Chain.Timeout, "")...))
		cached := price.NewCache(feed, storage.NewPrefixStore(e.cache, []byte("price/")), e.metrics)
		cached.TTL = cfg.Price.TTL
		e.prices = cached
	}
	return e, nil
}

func (e *env) rpcOptions(timeout time.Duration, token string) []rpcclient.Option {
	opts := []rpcclient.Option{rpcclient.WithMetrics(e.metrics)}
	if timeout > 0 {
		opts = append(opts, rpcclient.WithTimeout(timeout))
	}
	if token != "" {
		opts = append(opts, rpcclient.WithBearerToken(token))
	}
	return opts
}

// openCache opens the on-disk response cache, falling back to memory when
// another process holds it.
func openCache(cfg *config.Config) (storage.Store, error) {
	if err := os.MkdirAll(cfg.CacheDir(), 0700); err != nil {
		return nil, err
	}
	db, err := storage.NewBadger(cfg.CacheDir())
	if err != nil {
		klog.Storage.Warn().Err(err).Msg("Response cache unavailable, using memory")
		return storage.NewMemory(), nil
	}
	return db, nil
}

// orchestrator returns the payment orchestrator over e's session.
func (e *env) orchestrator() (*payment.Orchestrator, error) {
	if err := config.ValidatePayment(e.cfg); err != nil {
		return nil, err
	}
	p := e.cfg.Payment
	feeAddr, err := config.ParseOptionalAddress(p.FeeAddress)
	if err != nil {
		return nil, err
	}
	tipAddr, err := config.ParseOptionalAddress(p.TipAddress)
	if err != nil {
		return nil, err
	}
	return payment.New(e.session, e.chain, e.resolver, payment.Config{
		Commission:     commission.Policy{RateBps: p.CommissionBps, Floor: p.CommissionFloor},
		FeePadding:     p.FeePadding,
		FeeAddress:     feeAddr,
		TipAddress:     tipAddr,
		TipFloor:       p.TipFloor,
		TTLWindow:      p.TTLWindow,
		RefreshTimeout: p.RefreshTimeout,
	}, e.metrics), nil
}

// history returns the history service over e's chain client.
func (e *env) history() *history.Service {
	return history.NewService(e.chain, history.NewReconstructor(e.resolver, e.cfg.Resolver.Concurrency), e.metrics)
}

func (e *env) close() {
	e.session.Wait()
	e.session.Keyring().Wipe()
	if e.metricsOut != "" {
		if err := prometheus.WriteToTextfile(e.metricsOut, e.registry); err != nil {
			klog.Logger.Warn().Err(err).Msg("Writing metrics failed")
		}
	}
	if e.cache != nil {
		e.cache.Close()
	}
}

// passwordFor reads the wallet password from the environment or the
// terminal.
func passwordFor(prompt string) ([]byte, error) {
	if pw, ok := os.LookupEnv(passwordEnv); ok {
		return []byte(pw), nil
	}
	return readPassword(prompt)
}

func readPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return nil, errors.New("no terminal for the password prompt; set " + passwordEnv)
	}
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}
