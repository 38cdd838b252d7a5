// Package config provides a reusable loader for the classifier's
// configuration files and environment variables, adapted from the
// teacher's pkg/config.Load shape (viper + YAML, mapstructure tags,
// environment overrides).
//
// Version: v0.1.0
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// envString, envBool return the named environment variable or fallback if
// it is unset, empty, or (for envBool) unparseable.
func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// wrapErr adds context to an error message; nil in, nil out.
func wrapErr(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Detectors carries every tunable constant named in spec.md §6's defaults
// table plus the suspicious-multiplier weight table.
type Detectors struct {
	TickInterval               time.Duration `mapstructure:"tick_interval"`
	AirdropWindow              time.Duration `mapstructure:"airdrop_window"`
	MinReceiversPerTx          int           `mapstructure:"min_receivers_per_tx"`
	MinReceiversPerSender      int           `mapstructure:"min_receivers_per_sender"`
	AirdropDurationThreshold   time.Duration `mapstructure:"airdrop_duration_threshold"`
	ReceiversThreshold         int           `mapstructure:"receivers_threshold"`
	DelayAfterAirdrop          time.Duration `mapstructure:"delay_after_airdrop"`
	MinActiveReceiversRate     float64       `mapstructure:"min_active_receivers_rate"`
	MinAirdropReceivers        int           `mapstructure:"min_airdrop_receivers"`
	CreationWindow             time.Duration `mapstructure:"creation_window"`
	TokenCreationsThreshold    int           `mapstructure:"token_creations_threshold"`
	HoneypotShareThreshold     float64       `mapstructure:"honeypot_share_threshold"`
	ObservationTime            time.Duration `mapstructure:"observation_time"`
	HighActivityTotalSenders   int           `mapstructure:"high_activity_total_senders"`
	HighActivityWindowSenders  int           `mapstructure:"high_activity_window_senders"`
	HighActivityWindow         time.Duration `mapstructure:"high_activity_window"`
	MaxNumberOfTokens          int           `mapstructure:"max_number_of_tokens"`
	MinNumberOfDuplicateTokens int           `mapstructure:"min_number_of_duplicate_tokens"`
	MaxHoneypotAccounts        int           `mapstructure:"max_honeypot_accounts"`
	MinHoneypotAccounts        int           `mapstructure:"min_honeypot_accounts"`
	MinHoneypotRatio           float64       `mapstructure:"min_honeypot_ratio"`
	SleepMintReceiversThresh   int           `mapstructure:"sleep_mint_receivers_threshold"`
	PhishingDescriptionBudget  int           `mapstructure:"phishing_description_budget"`

	// ProviderConcurrency bounds a module's parallel chain-provider calls
	// (e.g. Airdrop's per-receiver CodeAt probe); FetchConcurrency bounds
	// parallel calls to external oracles/metadata endpoints (e.g.
	// TooManyHoneyPotOwners' per-address honeypot probe), per spec.md §5.
	ProviderConcurrency int `mapstructure:"provider_concurrency"`
	FetchConcurrency    int `mapstructure:"fetch_concurrency"`

	Weights ModuleWeights `mapstructure:"weights"`
}

// ModuleWeights are the suspicious-multiplier weights HighActivity applies
// per currently-detected module, per spec.md §6.
type ModuleWeights struct {
	TooMuchAirdropActivity  float64 `mapstructure:"too_much_airdrop_activity"`
	LowActivityAfterAirdrop float64 `mapstructure:"low_activity_after_airdrop"`
	MultipleOwners          float64 `mapstructure:"multiple_owners"`
	NonUniqueTokens         float64 `mapstructure:"non_unique_tokens"`
	FalseTotalSupply        float64 `mapstructure:"false_total_supply"`
	SilentMint              float64 `mapstructure:"silent_mint"`
	SleepMint               float64 `mapstructure:"sleep_mint"`
	TooManyCreations        float64 `mapstructure:"too_many_creations"`
	PhishingMetadata        float64 `mapstructure:"phishing_metadata"`
	TooManyHoneyPotOwners   float64 `mapstructure:"too_many_honeypot_owners"`
	HoneypotShareDominance  float64 `mapstructure:"honeypot_share_dominance"`
	TokenImpersonation      float64 `mapstructure:"token_impersonation"`
}

// Config represents the unified classifier configuration.
type Config struct {
	Network struct {
		RPCURL  string `mapstructure:"rpc_url" json:"rpc_url"`
		ChainID int    `mapstructure:"chain_id" json:"chain_id"`
	} `mapstructure:"network" json:"network"`

	Storage struct {
		DBPath string `mapstructure:"db_path" json:"db_path"`
	} `mapstructure:"storage" json:"storage"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
	} `mapstructure:"logging" json:"logging"`

	Data struct {
		Dir             string `mapstructure:"dir" json:"dir"`
		LeadersFile     string `mapstructure:"leaders_file" json:"leaders_file"`
		HoneypotsFile   string `mapstructure:"honeypots_file" json:"honeypots_file"`
		TokensFile      string `mapstructure:"tokens_file" json:"tokens_file"`
	} `mapstructure:"data" json:"data"`

	Debug       bool   `mapstructure:"debug" json:"debug"`
	TargetToken string `mapstructure:"target_token" json:"target_token"`
	NodeEnv     string `mapstructure:"node_env" json:"node_env"`

	Detectors Detectors `mapstructure:"detectors" json:"detectors"`
}

// AppConfig holds the configuration loaded via Load.
var AppConfig Config

// Load reads the configuration file at path (if non-empty) merged with
// environment overrides, mirroring the teacher's Load(env string) shape.
func Load(path string) (*Config, error) {
	Defaults(&AppConfig)

	viper.SetConfigType("yaml")
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, wrapErr(err, "load config")
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TOKENWATCH")

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, wrapErr(err, "unmarshal config")
	}

	applyEnvOverrides(&AppConfig)
	return &AppConfig, nil
}

// applyEnvOverrides honors the three environment variables spec.md §6
// names directly, regardless of whether a config file set them.
func applyEnvOverrides(c *Config) {
	c.Debug = envBool("DEBUG", c.Debug)
	c.TargetToken = envString("TARGET_TOKEN", c.TargetToken)
	c.NodeEnv = envString("NODE_ENV", c.NodeEnv)

	if c.Debug {
		// DEBUG disables the tick interval wait (tick every block).
		c.Detectors.TickInterval = 0
	}
	if c.NodeEnv == "production" {
		c.Detectors.ProviderConcurrency = 2
		c.Detectors.FetchConcurrency = 25
	} else {
		c.Detectors.ProviderConcurrency = 40
		c.Detectors.FetchConcurrency = 50
	}
}

// Defaults populates c with spec.md §6's canonical constant values.
func Defaults(c *Config) {
	c.Storage.DBPath = "tokenwatch.db"
	c.Logging.Level = "info"
	c.Data.Dir = "data"
	c.Data.LeadersFile = "leaders.json"
	c.Data.HoneypotsFile = "honeypots.json"
	c.Data.TokensFile = "tokens.json"
	c.NodeEnv = "development"

	d := &c.Detectors
	d.TickInterval = 4 * time.Hour
	d.AirdropWindow = 5 * 24 * time.Hour
	d.MinReceiversPerTx = 9
	d.MinReceiversPerSender = 20
	d.AirdropDurationThreshold = 30 * 24 * time.Hour
	d.ReceiversThreshold = 15_000
	d.DelayAfterAirdrop = 20 * 24 * time.Hour
	d.MinActiveReceiversRate = 0.0025
	d.MinAirdropReceivers = 200
	d.CreationWindow = 90 * 24 * time.Hour
	d.TokenCreationsThreshold = 6
	d.HoneypotShareThreshold = 0.5
	d.ObservationTime = 124 * 24 * time.Hour
	d.HighActivityTotalSenders = 400
	d.HighActivityWindowSenders = 120
	d.HighActivityWindow = 7 * 24 * time.Hour
	d.MaxNumberOfTokens = 700
	d.MinNumberOfDuplicateTokens = 4
	d.MaxHoneypotAccounts = 1000
	d.MinHoneypotAccounts = 100
	d.MinHoneypotRatio = 0.35
	d.SleepMintReceiversThresh = 3
	d.PhishingDescriptionBudget = 2000
	d.ProviderConcurrency = 40
	d.FetchConcurrency = 50

	w := &d.Weights
	w.TooMuchAirdropActivity = 1.5
	w.LowActivityAfterAirdrop = 1.3
	w.MultipleOwners = 4
	w.NonUniqueTokens = 4
	w.FalseTotalSupply = 4
	w.SilentMint = 1.1
	w.SleepMint = 1.5
	w.TooManyCreations = 1.5
	w.PhishingMetadata = 4
	w.TooManyHoneyPotOwners = 2
	w.HoneypotShareDominance = 1.5
	w.TokenImpersonation = 5
}
