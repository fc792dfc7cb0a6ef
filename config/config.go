package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Secrets come from the environment, never from the yaml file.
const (
	EnvLighterROToken   = "LIGHTER_RO_TOKEN"
	EnvBinanceAPIKey    = "BINANCE_API_KEY"
	EnvBinanceAPISecret = "BINANCE_API_SECRET"
	EnvBybitAPIKey      = "BYBIT_API_KEY"
	EnvBybitAPISecret   = "BYBIT_API_SECRET"
)

// CEXConfig holds one centralized exchange's settings. Keys are read
// from the environment when Enabled is set.
type CEXConfig struct {
	Enabled   bool
	Symbols   []string
	APIKey    string
	APISecret string
}

// Config is the fully parsed run configuration.
type Config struct {
	LighterBaseURL      string
	ExplorerBaseURL     string
	LighterROToken      string
	AccountIndex        int64
	MarketID            int64
	L1Address           string
	MaxPages            int
	TokenKeywords       []string
	TokenKeyword        string
	CoreEndpoints       []string
	ApproxDepositTarget decimal.Decimal
	ApproxDepositBand   decimal.Decimal
	InjectInferredDep   bool
	FxRate              decimal.Decimal
	OutputDir           string
	RawWALDir           string
	RequestTimeout      time.Duration
	Binance             CEXConfig
	Bybit               CEXConfig
}

// ConfigTmp mirrors the yaml layout; numeric fields come in as strings
// and are validated during conversion.
type ConfigTmp struct {
	LighterBaseURL         string   `yaml:"lighter_base_url,omitempty"`
	ExplorerBaseURL        string   `yaml:"explorer_base_url,omitempty"`
	AccountIndexStr        string   `yaml:"account_index"`
	MarketIDStr            string   `yaml:"market_id,omitempty"`
	L1Address              string   `yaml:"l1_address,omitempty"`
	MaxPagesStr            string   `yaml:"max_pages,omitempty"`
	TokenKeywords          []string `yaml:"token_keywords,omitempty"`
	TokenKeyword           string   `yaml:"token_keyword,omitempty"`
	CoreEndpoints          []string `yaml:"core_endpoints,omitempty"`
	ApproxDepositTargetStr string   `yaml:"approx_deposit_target,omitempty"`
	ApproxDepositBandStr   string   `yaml:"approx_deposit_band,omitempty"`
	InjectInferredDeposit  bool     `yaml:"inject_inferred_deposit,omitempty"`
	FxRateStr              string   `yaml:"fx_rate,omitempty"`
	OutputDir              string   `yaml:"output_dir,omitempty"`
	RawWALDir              string   `yaml:"raw_wal_dir,omitempty"`
	BinanceEnabled         bool     `yaml:"binance_enabled,omitempty"`
	BinanceSymbols         []string `yaml:"binance_symbols,omitempty"`
	BybitEnabled           bool     `yaml:"bybit_enabled,omitempty"`
	BybitSymbols           []string `yaml:"bybit_symbols,omitempty"`
}

// Get reads and validates the yaml config at path.
func Get(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	return tmp.Parse()
}

// Parse validates the raw yaml values and fills defaults.
func (c ConfigTmp) Parse() (Config, error) {
	cfg := Config{
		LighterBaseURL:      c.LighterBaseURL,
		ExplorerBaseURL:     c.ExplorerBaseURL,
		LighterROToken:      os.Getenv(EnvLighterROToken),
		L1Address:           c.L1Address,
		TokenKeywords:       c.TokenKeywords,
		TokenKeyword:        c.TokenKeyword,
		CoreEndpoints:       c.CoreEndpoints,
		InjectInferredDep:   c.InjectInferredDeposit,
		OutputDir:           c.OutputDir,
		RawWALDir:           c.RawWALDir,
		RequestTimeout:      30 * time.Second,
		ApproxDepositTarget: decimal.NewFromInt(600),
		ApproxDepositBand:   decimal.NewFromInt(75),
		FxRate:              decimal.NewFromInt(1),
		MaxPages:            50,
	}

	if c.AccountIndexStr == "" {
		return Config{}, fmt.Errorf("'account_index' param is required in yaml config")
	}
	accountIndex, err := strconv.ParseInt(c.AccountIndexStr, 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'account_index' param in yaml config (must be an integer), error: %w", err)
	}
	cfg.AccountIndex = accountIndex

	if c.MarketIDStr != "" {
		marketID, err := strconv.ParseInt(c.MarketIDStr, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'market_id' param in yaml config (must be an integer), error: %w", err)
		}
		cfg.MarketID = marketID
	}

	if c.L1Address != "" && !ethcommon.IsHexAddress(c.L1Address) {
		return Config{}, fmt.Errorf("incorrect 'l1_address' param in yaml config: %s is not a hex address", c.L1Address)
	}

	if c.MaxPagesStr != "" {
		maxPages, err := strconv.Atoi(c.MaxPagesStr)
		if err != nil || maxPages <= 0 {
			return Config{}, fmt.Errorf("incorrect 'max_pages' param in yaml config (must be a positive integer)")
		}
		cfg.MaxPages = maxPages
	}

	if c.ApproxDepositTargetStr != "" {
		target, err := decimal.NewFromString(c.ApproxDepositTargetStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'approx_deposit_target' param in yaml config (must be a decimal), error: %w", err)
		}
		cfg.ApproxDepositTarget = target
	}

	if c.ApproxDepositBandStr != "" {
		band, err := decimal.NewFromString(c.ApproxDepositBandStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'approx_deposit_band' param in yaml config (must be a decimal), error: %w", err)
		}
		cfg.ApproxDepositBand = band
	}

	if c.FxRateStr != "" {
		fx, err := decimal.NewFromString(c.FxRateStr)
		if err != nil || !fx.IsPositive() {
			return Config{}, fmt.Errorf("incorrect 'fx_rate' param in yaml config (must be a positive decimal)")
		}
		cfg.FxRate = fx
	}

	if c.BinanceEnabled {
		cfg.Binance = CEXConfig{
			Enabled:   true,
			Symbols:   c.BinanceSymbols,
			APIKey:    os.Getenv(EnvBinanceAPIKey),
			APISecret: os.Getenv(EnvBinanceAPISecret),
		}
		if cfg.Binance.APIKey == "" || cfg.Binance.APISecret == "" {
			return Config{}, fmt.Errorf("binance is enabled but %s/%s are not set", EnvBinanceAPIKey, EnvBinanceAPISecret)
		}
	}

	if c.BybitEnabled {
		cfg.Bybit = CEXConfig{
			Enabled:   true,
			Symbols:   c.BybitSymbols,
			APIKey:    os.Getenv(EnvBybitAPIKey),
			APISecret: os.Getenv(EnvBybitAPISecret),
		}
		if cfg.Bybit.APIKey == "" || cfg.Bybit.APISecret == "" {
			return Config{}, fmt.Errorf("bybit is enabled but %s/%s are not set", EnvBybitAPIKey, EnvBybitAPISecret)
		}
	}

	return cfg, nil
}
