package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the bot.
type Config struct {
	General  GeneralConfig  `mapstructure:"general"`
	Server   ServerConfig   `mapstructure:"server"`
	Lark     LarkConfig     `mapstructure:"lark"`
	LLM      LLMConfig      `mapstructure:"llm"`
	News     NewsConfig     `mapstructure:"news"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LarkConfig contains credentials and endpoints for the messaging platform.
type LarkConfig struct {
	AppID             string        `mapstructure:"app_id"`
	AppSecret         string        `mapstructure:"app_secret"`
	BaseURL           string        `mapstructure:"base_url"`
	VerificationToken string        `mapstructure:"verification_token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// LLMConfig contains the inference provider configuration.
type LLMConfig struct {
	Type        string        `mapstructure:"type"` // openai
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// NewsConfig contains the news search API configuration.
type NewsConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FetchConfig controls article body fetching.
type FetchConfig struct {
	Type     string        `mapstructure:"type"` // http or chromedp
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// DedupConfig controls the inbound message deduplication cache.
type DedupConfig struct {
	Store         string        `mapstructure:"store"` // inmemory or redis
	Capacity      int           `mapstructure:"capacity"`
	Expiry        time.Duration `mapstructure:"expiry"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// WorkflowConfig carries the tunables of the news research loop.
type WorkflowConfig struct {
	SearchAttempts   int `mapstructure:"search_attempts"`
	SummaryCount     int `mapstructure:"summary_count"`
	CandidateCeiling int `mapstructure:"candidate_ceiling"`
}

func (w WorkflowConfig) Validate() error {
	if w.SearchAttempts <= 0 {
		return fmt.Errorf("workflow.search_attempts must be > 0")
	}
	if w.SummaryCount <= 0 {
		return fmt.Errorf("workflow.summary_count must be > 0")
	}
	if w.CandidateCeiling < w.SummaryCount {
		return fmt.Errorf("workflow.candidate_ceiling must be >= workflow.summary_count")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.max_processing_time", 5*time.Minute)
	viper.SetDefault("general.default_timeout", 30*time.Second)
	viper.SetDefault("server.address", ":10002")
	viper.SetDefault("lark.base_url", "https://open.feishu.cn")
	viper.SetDefault("lark.timeout", 15*time.Second)
	viper.SetDefault("lark.max_retries", 2)
	viper.SetDefault("llm.type", "openai")
	viper.SetDefault("llm.base_url", "https://api.openai.com")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout", 60*time.Second)
	viper.SetDefault("llm.max_retries", 0)
	viper.SetDefault("news.endpoint", "https://newsapi.org/v2/everything")
	viper.SetDefault("news.timeout", 15*time.Second)
	viper.SetDefault("fetch.type", "http")
	viper.SetDefault("fetch.timeout", 15*time.Second)
	viper.SetDefault("fetch.max_chars", 20000)
	viper.SetDefault("dedup.store", "inmemory")
	viper.SetDefault("dedup.capacity", 1000)
	viper.SetDefault("dedup.expiry", 60*time.Second)
	viper.SetDefault("workflow.search_attempts", 5)
	viper.SetDefault("workflow.summary_count", 3)
	viper.SetDefault("workflow.candidate_ceiling", 10)
}

// LoadConfig reads configuration from an optional file plus LARKBOT_* env
// overrides and returns the merged result.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	setDefaults()

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("LARKBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine: defaults plus env cover the full surface.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Workflow.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
