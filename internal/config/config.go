// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "SOLANA_BUNDLER"

type PriorityFee struct {
	ComputeUnits  uint32 `mapstructure:"compute_units"`
	MicroLamports uint64 `mapstructure:"micro_lamports"`
}

type Jito struct {
	BlockEngineURL   string `mapstructure:"block_engine_url"`
	UUID             string `mapstructure:"uuid"`
	TipLamports      uint64 `mapstructure:"tip_lamports"`
	LandingTimeoutMs int    `mapstructure:"landing_timeout_ms"`
}

type Jupiter struct {
	BaseURL     string  `mapstructure:"base_url"`
	SlippageBps uint64  `mapstructure:"slippage_bps"`
	RateLimit   float64 `mapstructure:"rate_limit"`
}

type DaosFun struct {
	ProgramID string `mapstructure:"program_id"`
}

type Config struct {
	RPCList          []string    `mapstructure:"rpc_list"`
	WebSocketURL     string      `mapstructure:"websocket_url"`
	RPCRateLimit     float64     `mapstructure:"rpc_rate_limit"`
	Retries          int         `mapstructure:"retries"`
	Workers          int         `mapstructure:"workers"`
	Commitment       string      `mapstructure:"commitment"`
	ConfirmTimeoutMs int         `mapstructure:"confirm_timeout_ms"`
	PoolCacheTTLMs   int         `mapstructure:"pool_cache_ttl_ms"`
	DebugLogging     bool        `mapstructure:"debug_logging"`
	LogFile          string      `mapstructure:"log_file"`
	ResultsFile      string      `mapstructure:"results_file"`
	Simulate         bool        `mapstructure:"simulate"`
	SlippageBps      uint64      `mapstructure:"slippage_bps"`
	PriorityFee      PriorityFee `mapstructure:"priority_fee"`
	Jito             Jito        `mapstructure:"jito"`
	Jupiter          Jupiter     `mapstructure:"jupiter"`
	DaosFun          DaosFun     `mapstructure:"daosfun"`
	LookupTable      string      `mapstructure:"lookup_table"`
	WalletsFile      string      `mapstructure:"wallets_file"`
	TasksFile        string      `mapstructure:"tasks_file"`
}

const (
	DefaultWorkers          = 5
	DefaultRetries          = 3
	DefaultRPCRateLimit     = 20
	DefaultConfirmTimeoutMs = 60_000
	DefaultPoolCacheTTLMs   = 600_000
	DefaultComputeUnits     = 200_000
	DefaultMicroLamports    = 1_000
	DefaultTipLamports      = 100_000
	DefaultLandingTimeoutMs = 30_000
	DefaultSlippageBps      = 100
	maxComputeUnits         = 1_400_000
)

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"rpc_list":                    []string{},
		"websocket_url":               "",
		"rpc_rate_limit":              DefaultRPCRateLimit,
		"retries":                     DefaultRetries,
		"workers":                     DefaultWorkers,
		"commitment":                  string(rpc.CommitmentConfirmed),
		"confirm_timeout_ms":          DefaultConfirmTimeoutMs,
		"pool_cache_ttl_ms":           DefaultPoolCacheTTLMs,
		"debug_logging":               false,
		"log_file":                    "",
		"results_file":                "",
		"simulate":                    false,
		"slippage_bps":                DefaultSlippageBps,
		"priority_fee.compute_units":  DefaultComputeUnits,
		"priority_fee.micro_lamports": DefaultMicroLamports,
		"jito.block_engine_url":       "https://mainnet.block-engine.jito.wtf/api/v1",
		"jito.uuid":                   "",
		"jito.tip_lamports":           DefaultTipLamports,
		"jito.landing_timeout_ms":     DefaultLandingTimeoutMs,
		"jupiter.base_url":            "https://lite-api.jup.ag/swap/v1",
		"jupiter.slippage_bps":        DefaultSlippageBps,
		"jupiter.rate_limit":          1,
		"daosfun.program_id":          "",
		"lookup_table":                "",
		"wallets_file":                "configs/wallets.yaml",
		"tasks_file":                  "configs/tasks.yaml",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// LoadConfig reads path, applies SOLANA_BUNDLER_* environment overrides and validates the result.
// A .env file next to the working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	loadEnvironmentVariables(&cfg)

	return &cfg, cfg.validate()
}

// loadEnvironmentVariables handles overrides viper cannot map on its own, such as a comma separated RPC list.
func loadEnvironmentVariables(cfg *Config) {
	envRPCList := os.Getenv(EnvPrefix + "_RPC_LIST")
	if envRPCList == "" {
		return
	}
	var cleanRPCs []string
	for _, rpcURL := range strings.Split(envRPCList, ",") {
		if clean := strings.TrimSpace(rpcURL); clean != "" {
			cleanRPCs = append(cleanRPCs, clean)
		}
	}
	if len(cleanRPCs) > 0 {
		cfg.RPCList = cleanRPCs
	}
}

func (c *Config) validate() error {
	if len(c.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range c.RPCList {
		if err := validateURL(rpcURL, "http", "https"); err != nil {
			return fmt.Errorf("rpc_list: %w", err)
		}
	}
	if c.WebSocketURL != "" {
		if err := validateURL(c.WebSocketURL, "ws", "wss"); err != nil {
			return fmt.Errorf("websocket_url: %w", err)
		}
	}
	if err := c.validateNumericParams(); err != nil {
		return err
	}
	switch rpc.CommitmentType(c.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("invalid commitment %q", c.Commitment)
	}
	if c.Jito.BlockEngineURL != "" {
		if err := validateURL(c.Jito.BlockEngineURL, "http", "https"); err != nil {
			return fmt.Errorf("jito.block_engine_url: %w", err)
		}
	}
	if err := validateURL(c.Jupiter.BaseURL, "http", "https"); err != nil {
		return fmt.Errorf("jupiter.base_url: %w", err)
	}
	if _, err := c.DaosFunProgram(); err != nil {
		return err
	}
	if _, err := c.LookupTableAddress(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNumericParams() error {
	if c.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	if c.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if c.RPCRateLimit < 0 {
		return errors.New("invalid rpc_rate_limit")
	}
	if c.ConfirmTimeoutMs <= 0 {
		return errors.New("invalid confirm_timeout_ms")
	}
	if c.PriorityFee.ComputeUnits == 0 || c.PriorityFee.ComputeUnits > maxComputeUnits {
		return fmt.Errorf("priority_fee.compute_units must be in 1..%d", maxComputeUnits)
	}
	if c.SlippageBps > 10_000 {
		return errors.New("slippage_bps exceeds 10000")
	}
	if c.Jupiter.SlippageBps > 10_000 {
		return errors.New("jupiter.slippage_bps exceeds 10000")
	}
	if c.Jito.LandingTimeoutMs <= 0 {
		return errors.New("invalid jito.landing_timeout_ms")
	}
	return nil
}

func validateURL(rawURL string, schemes ...string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL %q has no host", rawURL)
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("URL %q must use one of %v", rawURL, schemes)
}

func optionalKey(field, value string) (solana.PublicKey, error) {
	if strings.TrimSpace(value) == "" {
		return solana.PublicKey{}, nil
	}
	value = strings.TrimSpace(value)
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		// YAML reads an unquoted all-digit address as a number and viper hands it back reformatted.
		if _, numErr := strconv.ParseFloat(value, 64); numErr == nil {
			return solana.PublicKey{}, fmt.Errorf("%s: %q parsed as a number, quote the address in the config file: %w", field, value, err)
		}
		return solana.PublicKey{}, fmt.Errorf("%s: %w", field, err)
	}
	return pk, nil
}

// DaosFunProgram returns the configured program id, zero when unset.
func (c *Config) DaosFunProgram() (solana.PublicKey, error) {
	return optionalKey("daosfun.program_id", c.DaosFun.ProgramID)
}

// LookupTableAddress returns the configured lookup table, zero when unset.
func (c *Config) LookupTableAddress() (solana.PublicKey, error) {
	return optionalKey("lookup_table", c.LookupTable)
}

func (c *Config) CommitmentType() rpc.CommitmentType { return rpc.CommitmentType(c.Commitment) }

func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutMs) * time.Millisecond
}

func (c *Config) PoolCacheTTL() time.Duration {
	return time.Duration(c.PoolCacheTTLMs) * time.Millisecond
}

func (c *Config) LandingTimeout() time.Duration {
	return time.Duration(c.Jito.LandingTimeoutMs) * time.Millisecond
}
