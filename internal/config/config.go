// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Trading holds the screening and exit thresholds. Loaded once at startup
// and never mutated afterwards; reconfiguration means a restart.
type Trading struct {
	MinMarketCap      float64  `mapstructure:"min_market_cap"`
	MinLiquidity      float64  `mapstructure:"min_liquidity"`
	MinVolume24h      float64  `mapstructure:"min_volume_24h"`
	StopLossPercent   float64  `mapstructure:"stop_loss_percent"`
	TakeProfitPercent float64  `mapstructure:"take_profit_percent"`
	MaxDailyTrades    int      `mapstructure:"max_daily_trades"`
	Keywords          []string `mapstructure:"keywords"`
	MaxRiskScore      int      `mapstructure:"max_risk_score"`
}

type Config struct {
	RPCList        []string `mapstructure:"rpc_list"`
	PrivateKey     string   `mapstructure:"private_key"`
	BuyAmountSol   float64  `mapstructure:"buy_amount_sol"`
	SlippageBps    int      `mapstructure:"slippage_bps"`
	TickIntervalMs int      `mapstructure:"tick_interval_ms"`
	MonitorDelayMs int      `mapstructure:"monitor_delay_ms"`
	DryRun         bool     `mapstructure:"dry_run"`
	Retries        int      `mapstructure:"retries"`
	DatabasePath   string   `mapstructure:"database_path"`
	DebugLogging   bool     `mapstructure:"debug_logging"`
	LogFile        string   `mapstructure:"log_file"`

	// ExportDir enables a trade history export on shutdown when non-empty.
	ExportDir string `mapstructure:"export_dir"`

	MarketFeedURL string `mapstructure:"market_feed_url"`
	RugScanURL    string `mapstructure:"rug_scan_url"`
	HoneypotURL   string `mapstructure:"honeypot_url"`
	QuoteURL      string `mapstructure:"quote_url"`
	SwapURL       string `mapstructure:"swap_url"`

	Trading Trading `mapstructure:"trading"`
}

const (
	DefaultMonitorDelayMs = 5000
	DefaultRetries        = 3
	DefaultMaxRiskScore   = 1000
	DefaultDatabasePath   = "sniper.db"
	DefaultLogFile        = "logs/sniper.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// slippage_bps and tick_interval_ms deliberately have no defaults:
	// both are required keys and an absent value must refuse to start.
	defaults := map[string]interface{}{
		"monitor_delay_ms":            DefaultMonitorDelayMs,
		"retries":                     DefaultRetries,
		"database_path":               DefaultDatabasePath,
		"log_file":                    DefaultLogFile,
		"market_feed_url":             "https://api.dexscreener.com/latest/dex",
		"rug_scan_url":                "https://api.rugcheck.xyz/v1/tokens",
		"honeypot_url":                "https://api.honeypot.is/v2/IsHoneypot",
		"quote_url":                   "https://quote-api.jup.ag/v6/quote",
		"swap_url":                    "https://quote-api.jup.ag/v6/swap",
		"trading.max_daily_trades":    5,
		"trading.stop_loss_percent":   15.0,
		"trading.take_profit_percent": 30.0,
		"trading.max_risk_score":      DefaultMaxRiskScore,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURL(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.PrivateKey == "" {
		return errors.New("missing private_key in configuration")
	}
	if cfg.BuyAmountSol <= 0 {
		return errors.New("buy_amount_sol must be positive")
	}
	if cfg.SlippageBps <= 0 {
		return errors.New("missing or invalid slippage_bps")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.TickIntervalMs <= 0 {
		return errors.New("missing or invalid tick_interval_ms")
	}
	if cfg.MonitorDelayMs <= 0 {
		return errors.New("invalid monitor_delay_ms")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.Trading.StopLossPercent <= 0 || cfg.Trading.StopLossPercent >= 100 {
		return errors.New("stop_loss_percent must be in (0, 100)")
	}
	if cfg.Trading.TakeProfitPercent <= 0 {
		return errors.New("take_profit_percent must be positive")
	}
	if cfg.Trading.MaxDailyTrades <= 0 {
		return errors.New("invalid max_daily_trades")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SNIPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envKey := v.GetString("PRIVATE_KEY")
	if envKey != "" {
		cfg.PrivateKey = envKey
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}

// TickInterval returns the orchestrator schedule as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// MonitorDelay returns the per-position polling period.
func (c *Config) MonitorDelay() time.Duration {
	return time.Duration(c.MonitorDelayMs) * time.Millisecond
}
