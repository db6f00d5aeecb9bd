package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token    string `yaml:"token" envconfig:"BOT_TOKEN"`
	Username string `yaml:"username" envconfig:"BOT_USERNAME"`
	AdminID  int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode  string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// ChainConfig carries blockchain settings consumed by the deployment flow.
type ChainConfig struct {
	ChainID       int64   `yaml:"chain_id" envconfig:"CHAIN_ID"`
	RPCURL        string  `yaml:"rpc_url" envconfig:"RPC_URL"`
	GasReserveEth float64 `yaml:"gas_reserve_eth" envconfig:"GAS_RESERVE_ETH"`
	MinBuyInEth   float64 `yaml:"min_buyin_eth" envconfig:"MIN_CONTRACT_DEV_BUY_ETH"`
	MaxBuyInEth   float64 `yaml:"max_buyin_eth" envconfig:"MAX_DEV_BUY_ETH"`
	DeployerURL   string  `yaml:"deployer_url" envconfig:"DEPLOYER_URL"`
}

// WizardConfig tunes the token-creation wizard timings.
type WizardConfig struct {
	BalancePollInterval time.Duration `yaml:"balance_poll_interval" envconfig:"BALANCE_POLL_INTERVAL"`
	LinkPollInterval    time.Duration `yaml:"link_poll_interval" envconfig:"LINK_POLL_INTERVAL"`
	LinkPollTimeout     time.Duration `yaml:"link_poll_timeout" envconfig:"LINK_POLL_TIMEOUT"`
}

// IPFSConfig points at the IPFS HTTP API used for token images.
type IPFSConfig struct {
	APIURL     string `yaml:"api_url" envconfig:"IPFS_API_URL"`
	GatewayURL string `yaml:"gateway_url" envconfig:"IPFS_GATEWAY_URL"`
}

// WalletLinkConfig configures the external wallet-connect flow.
type WalletLinkConfig struct {
	StatusURL string `yaml:"status_url" envconfig:"WALLET_STATUS_URL"`
	WebAppURL string `yaml:"web_app_url" envconfig:"WEB_APP_URL"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates all bot configuration.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Chain      ChainConfig      `yaml:"chain"`
	Wizard     WizardConfig     `yaml:"wizard"`
	IPFS       IPFSConfig       `yaml:"ipfs"`
	WalletLink WalletLinkConfig `yaml:"wallet_link"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Chain.ChainID == 0 {
		cfg.Chain.ChainID = 8453
	}
	if strings.TrimSpace(cfg.Chain.RPCURL) == "" {
		cfg.Chain.RPCURL = "https://mainnet.base.org"
	}
	if cfg.Chain.GasReserveEth <= 0 {
		cfg.Chain.GasReserveEth = 0.005
	}
	if cfg.Chain.MinBuyInEth <= 0 {
		cfg.Chain.MinBuyInEth = 0.01
	}
	if cfg.Chain.MaxBuyInEth <= 0 {
		cfg.Chain.MaxBuyInEth = 1
	}
	if cfg.Chain.MaxBuyInEth < cfg.Chain.MinBuyInEth {
		return fmt.Errorf("chain.max_buyin_eth must be >= chain.min_buyin_eth")
	}

	if cfg.Wizard.BalancePollInterval <= 0 {
		cfg.Wizard.BalancePollInterval = 30 * time.Second
	}
	if cfg.Wizard.LinkPollInterval <= 0 {
		cfg.Wizard.LinkPollInterval = 2 * time.Second
	}
	if cfg.Wizard.LinkPollTimeout <= 0 {
		cfg.Wizard.LinkPollTimeout = 5 * time.Minute
	}

	if strings.TrimSpace(cfg.IPFS.GatewayURL) == "" {
		cfg.IPFS.GatewayURL = "https://ipfs.io/ipfs"
	}

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}
