package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Store   StoreConfig
	Session SessionConfig
	Log     LogConfig
	Admin   AdminConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	addr, err := normalizeAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port        string   `env:"PORT" envDefault:"8080"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Addr is derived from Port by Load.
	Addr string
}

// normalizeAddr 解析服务器监听地址。
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AI providers.
const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string `env:"AI_PROVIDER" envDefault:"ark"`

	APIKey    string `env:"ARK_API_KEY"`
	AccessKey string `env:"ARK_ACCESS_KEY"`
	SecretKey string `env:"ARK_SECRET_KEY"`
	Model     string `env:"Model"`
	BaseURL   string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region    string `env:"ARK_REGION" envDefault:"cn-beijing"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	Temperature float64       `env:"AI_TEMPERATURE" envDefault:"0.8"`
	MaxTokens   int           `env:"AI_MAX_TOKENS" envDefault:"500"`
	Timeout     time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != "" && c.OpenAIModel != ""
	default:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	}
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	temperature := float32(c.Temperature)
	var maxTokens *int
	if c.MaxTokens > 0 {
		val := c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig selects the throw persistence backend.
type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" envDefault:"memory"`
	DSN    string `env:"DATABASE_URL" envDefault:"insight_dice.db"`
}

// SessionConfig 控制会话缓存与状态机的行为。
type SessionConfig struct {
	TTL             time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"10m"`
	RetryAttempts   uint          `env:"UPDATE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay      time.Duration `env:"UPDATE_RETRY_DELAY" envDefault:"200ms"`

	// MaxSituationLength is counted in runes after trimming.
	MaxSituationLength   int `env:"MAX_SITUATION_LENGTH" envDefault:"4000"`
	MaxReflectionPrompts int `env:"MAX_REFLECTION_PROMPTS" envDefault:"5"`
}

// LogConfig 描述日志输出。
type LogConfig struct {
	FilePath    string `env:"LOG_FILE_PATH" envDefault:"insight_dice.log"`
	Environment string `env:"APP_ENV" envDefault:"development"`
}

// Production reports whether logs should be JSON-only.
func (c LogConfig) Production() bool {
	return c.Environment == "production"
}

// AdminConfig lists the user IDs allowed to read statistics.
type AdminConfig struct {
	IDs []string `env:"ADMIN_IDS" envSeparator:","`
}

// IsAdmin reports whether id is a configured admin.
func (c AdminConfig) IsAdmin(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	for _, admin := range c.IDs {
		if strings.TrimSpace(admin) == id {
			return true
		}
	}
	return false
}

func (c *Config) validate() error {
	switch c.AI.Provider {
	case ProviderArk, ProviderOpenAI:
	default:
		return fmt.Errorf("invalid AI_PROVIDER value %q", c.AI.Provider)
	}

	switch c.Store.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("invalid STORE_DRIVER value %q", c.Store.Driver)
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("invalid AI_TIMEOUT value %s", c.AI.Timeout)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("invalid SESSION_TTL value %s", c.Session.TTL)
	}
	if c.Session.MaxSituationLength <= 0 {
		return fmt.Errorf("invalid MAX_SITUATION_LENGTH value %d", c.Session.MaxSituationLength)
	}
	if c.Session.MaxReflectionPrompts <= 0 {
		return fmt.Errorf("invalid MAX_REFLECTION_PROMPTS value %d", c.Session.MaxReflectionPrompts)
	}
	if c.Session.RetryAttempts < 1 {
		c.Session.RetryAttempts = 1
	}
	return nil
}
