package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "AGENTRADAR_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	redisAddrEnv      = "REDIS_ADDR"
	redisPasswordEnv  = "REDIS_PASSWORD"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	propertyAPIKeyEnv = "PROPERTY_API_KEY"
	logLevelEnv       = "LOG_LEVEL"
	metricsAddrEnv    = "METRICS_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Notifications NotificationConfig `yaml:"notifications"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	PropertyAPI   PropertyAPIConfig  `yaml:"propertyApi"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Regions       []RegionConfig     `yaml:"regions" validate:"required,min=1,dive"`
	Subscribers   []SubscriberConfig `yaml:"subscribers" validate:"dive"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN keeps alerts in memory.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the best-effort alert cache. An empty address disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	TTL      time.Duration `yaml:"ttl"`
}

// SchedulerConfig defines when jobs run.
type SchedulerConfig struct {
	Timezone     string         `yaml:"timezone"`
	DispatchSpec string         `yaml:"dispatchSpec"`
	RegionDelay  time.Duration  `yaml:"regionDelay" validate:"gte=0"`
	location     *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig holds the score thresholds and alerting knobs.
type PipelineConfig struct {
	QualityThreshold    float64       `yaml:"qualityThreshold" validate:"gte=0,lte=1"`
	NERThreshold        float64       `yaml:"nerThreshold" validate:"gte=0,lte=1"`
	ValidationThreshold float64       `yaml:"validationThreshold" validate:"gte=0,lte=1"`
	AlertThreshold      float64       `yaml:"alertThreshold" validate:"gte=0,lte=100"`
	CacheThreshold      float64       `yaml:"cacheThreshold" validate:"gte=0,lte=100"`
	NotificationDelay   time.Duration `yaml:"notificationDelay" validate:"gte=0"`
	MaxNotifyAttempts   int           `yaml:"maxNotifyAttempts" validate:"gte=1"`
	DispatchBatch       int           `yaml:"dispatchBatch" validate:"gte=1"`
	DescribeMinScore    float64       `yaml:"describeMinScore" validate:"gte=0,lte=100"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages. UserChats maps user IDs to chat IDs.
type TelegramConfig struct {
	BotToken  string            `yaml:"botToken"`
	ChatID    string            `yaml:"chatId"`
	UserChats map[string]string `yaml:"userChats"`
}

// ChatGPTConfig defines how to contact the ChatGPT API for alert descriptions.
type ChatGPTConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	SystemPrompt      string        `yaml:"systemPrompt"`
	RequestsPerMinute int           `yaml:"requestsPerMinute" validate:"gte=0"`
	MaxRetries        int           `yaml:"maxRetries" validate:"gte=0"`
	BaseBackoff       time.Duration `yaml:"baseBackoff"`
	DailyBudget       int           `yaml:"dailyBudget" validate:"gte=0"`
	Timeout           time.Duration `yaml:"timeout"`
}

// PropertyAPIConfig points at an address/property lookup service. Empty endpoint means stubs.
type PropertyAPIConfig struct {
	Endpoint string        `yaml:"endpoint" validate:"omitempty,url"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// RegionConfig is a market processed on its own schedule.
type RegionConfig struct {
	Name     string         `yaml:"name" validate:"required"`
	Schedule string         `yaml:"schedule" validate:"required"`
	Sources  []SourceConfig `yaml:"sources" validate:"dive"`
}

// SourceConfig describes a single collector with its scanner strategy.
type SourceConfig struct {
	Name      string            `yaml:"name" validate:"required"`
	Scanner   string            `yaml:"scanner" validate:"required"`
	Endpoints []EndpointConfig  `yaml:"endpoints" validate:"dive"`
	Options   map[string]string `yaml:"options"`
}

// EndpointConfig holds a concrete URL to collect from.
type EndpointConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url" validate:"required"`
}

// SubscriberConfig subscribes a user to alerts for regions.
type SubscriberConfig struct {
	UserID   string   `yaml:"userId" validate:"required"`
	Regions  []string `yaml:"regions"`
	MinScore float64  `yaml:"minScore" validate:"gte=0,lte=100"`
}

// Region returns the named region config.
func (c Config) Region(name string) (RegionConfig, bool) {
	for _, r := range c.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return RegionConfig{}, false
}

// RegionNames lists configured regions in order.
func (c Config) RegionNames() []string {
	names := make([]string, 0, len(c.Regions))
	for _, r := range c.Regions {
		names = append(names, r.Name)
	}
	return names
}

// Validate checks structural constraints of the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := map[string]bool{}
	for _, r := range c.Regions {
		if seen[r.Name] {
			return fmt.Errorf("invalid config: duplicate region %s", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if fileCfg, err := ReadFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Regions) == 0 {
		cfg.Regions = defaultConfig().Regions
	}

	return cfg
}

// ReadFile parses a YAML configuration file without applying defaults.
func ReadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Redis.Password = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(propertyAPIKeyEnv); v != "" {
		c.PropertyAPI.APIKey = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(metricsAddrEnv); v != "" {
		c.Metrics.Addr = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Redis.Addr != "" {
		base.Redis.Addr = override.Redis.Addr
		base.Redis.Password = override.Redis.Password
		base.Redis.DB = override.Redis.DB
	}
	if override.Redis.TTL > 0 {
		base.Redis.TTL = override.Redis.TTL
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.DispatchSpec != "" {
		base.Scheduler.DispatchSpec = override.Scheduler.DispatchSpec
	}
	if override.Scheduler.RegionDelay > 0 {
		base.Scheduler.RegionDelay = override.Scheduler.RegionDelay
	}

	base.Pipeline = mergePipeline(base.Pipeline, override.Pipeline)

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if len(override.Notifications.Telegram.UserChats) > 0 {
		base.Notifications.Telegram.UserChats = override.Notifications.Telegram.UserChats
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}
	if override.ChatGPT.RequestsPerMinute > 0 {
		base.ChatGPT.RequestsPerMinute = override.ChatGPT.RequestsPerMinute
	}
	if override.ChatGPT.MaxRetries > 0 {
		base.ChatGPT.MaxRetries = override.ChatGPT.MaxRetries
	}
	if override.ChatGPT.BaseBackoff > 0 {
		base.ChatGPT.BaseBackoff = override.ChatGPT.BaseBackoff
	}
	if override.ChatGPT.DailyBudget > 0 {
		base.ChatGPT.DailyBudget = override.ChatGPT.DailyBudget
	}
	if override.ChatGPT.Timeout > 0 {
		base.ChatGPT.Timeout = override.ChatGPT.Timeout
	}

	if override.PropertyAPI.Endpoint != "" {
		base.PropertyAPI = override.PropertyAPI
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}

	if len(override.Regions) > 0 {
		base.Regions = override.Regions
	}
	if len(override.Subscribers) > 0 {
		base.Subscribers = override.Subscribers
	}

	return base
}

func mergePipeline(base, override PipelineConfig) PipelineConfig {
	if override.QualityThreshold > 0 {
		base.QualityThreshold = override.QualityThreshold
	}
	if override.NERThreshold > 0 {
		base.NERThreshold = override.NERThreshold
	}
	if override.ValidationThreshold > 0 {
		base.ValidationThreshold = override.ValidationThreshold
	}
	if override.AlertThreshold > 0 {
		base.AlertThreshold = override.AlertThreshold
	}
	if override.CacheThreshold > 0 {
		base.CacheThreshold = override.CacheThreshold
	}
	if override.NotificationDelay > 0 {
		base.NotificationDelay = override.NotificationDelay
	}
	if override.MaxNotifyAttempts > 0 {
		base.MaxNotifyAttempts = override.MaxNotifyAttempts
	}
	if override.DispatchBatch > 0 {
		base.DispatchBatch = override.DispatchBatch
	}
	if override.DescribeMinScore > 0 {
		base.DescribeMinScore = override.DescribeMinScore
	}
	return base
}

// EveryHours builds a cron spec for a fixed interval in hours.
func EveryHours(hours int) string {
	return "@every " + strconv.Itoa(hours) + "h"
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{DSN: ""},
		Redis:    RedisConfig{TTL: time.Hour},
		Scheduler: SchedulerConfig{
			Timezone:     defaultTimezone,
			DispatchSpec: "@every 1m",
			RegionDelay:  5 * time.Second,
			location:     tz,
		},
		Pipeline: PipelineConfig{
			QualityThreshold:    0.75,
			NERThreshold:        0.6,
			ValidationThreshold: 0.7,
			AlertThreshold:      80,
			CacheThreshold:      80,
			NotificationDelay:   0,
			MaxNotifyAttempts:   5,
			DispatchBatch:       50,
			DescribeMinScore:    60,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:          "https://api.openai.com/v1/chat/completions",
			Model:             "gpt-4o-mini",
			SystemPrompt:      "You write two-sentence briefings for real-estate agents about estate and probate leads.",
			RequestsPerMinute: 20,
			MaxRetries:        3,
			BaseBackoff:       time.Second,
			DailyBudget:       500,
			Timeout:           20 * time.Second,
		},
		PropertyAPI: PropertyAPIConfig{Timeout: 15 * time.Second},
		Regions: []RegionConfig{
			{
				Name:     "toronto",
				Schedule: EveryHours(6),
				Sources: []SourceConfig{
					{
						Name:    "ontario-estate-notices",
						Scanner: "feed",
						Endpoints: []EndpointConfig{
							{Name: "estate-notices", URL: "https://www.example.org/feeds/estate-notices/toronto.xml"},
						},
					},
				},
			},
		},
	}
}
