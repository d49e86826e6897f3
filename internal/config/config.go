package config

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"

	"github.com/zhouzirui/dealer-chat/backend/internal/provider/openaicompat"
	"github.com/zhouzirui/dealer-chat/backend/internal/store"
)

const (
	ProviderTogether = "together"
	ProviderArk      = "ark"

	defaultTogetherBaseURL = "https://api.together.xyz/v1"
	defaultModel           = "deepseek-ai/DeepSeek-V3"
	defaultTemperature     = 0.7
	defaultMaxTokens       = 150
)

// DefaultAllowedDomains 是默认允许接入的经销商域名，包括本地开发用的 localhost。
var DefaultAllowedDomains = []string{
	"toyota.com",
	"honda.com",
	"ford.com",
	"bmw.com",
	"mercedes.com",
	"localhost",
}

// Config 聚合整个服务的配置项。
type Config struct {
	Server      ServerConfig
	AI          AIConfig
	Store       store.Config
	Log         LogConfig
	PersonaFile string
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	st, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:      server,
		AI:          ai,
		Store:       st,
		Log:         loadLogConfig(),
		PersonaFile: strings.TrimSpace(os.Getenv("PERSONA_FILE")),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedDomains []string
	CORSOrigins    []string
}

// loadServerConfig 解析服务器监听地址、域名白名单与跨域来源。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	cfg := ServerConfig{
		AllowedDomains: parseListEnv("ALLOWED_DOMAINS", DefaultAllowedDomains),
		CORSOrigins:    parseListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, errors.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider    string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature float64
	MaxTokens   int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	if c.Model == "" {
		return false
	}
	if c.Provider == ProviderArk {
		return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
	}
	return c.APIKey != ""
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, errors.Errorf("completion provider %q is missing credentials or model", c.Provider)
	}

	temperature := float32(c.Temperature)
	maxTokens := c.MaxTokens

	switch c.Provider {
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			AccessKey:   c.AccessKey,
			SecretKey:   c.SecretKey,
			Model:       c.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
	case ProviderTogether:
		return openaicompat.NewChatModel(ctx, openaicompat.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
	default:
		return nil, errors.Errorf("unknown LLM_PROVIDER %q", c.Provider)
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderTogether))

	temperature, err := parseOptionalFloatEnv("LLM_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	maxTokens, err := parseOptionalIntEnv("LLM_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:    provider,
		Model:       getEnvOrDefault("LLM_MODEL", defaultModel),
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
	if temperature != nil {
		cfg.Temperature = *temperature
	}
	if maxTokens != nil {
		if *maxTokens < 1 {
			return AIConfig{}, errors.Errorf("invalid LLM_MAX_TOKENS value %d", *maxTokens)
		}
		cfg.MaxTokens = *maxTokens
	}

	switch provider {
	case ProviderTogether:
		cfg.APIKey = strings.TrimSpace(os.Getenv("TOGETHER_API_KEY"))
		cfg.BaseURL = getEnvOrDefault("LLM_BASE_URL", defaultTogetherBaseURL)
	case ProviderArk:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
	default:
		return AIConfig{}, errors.Errorf("invalid LLM_PROVIDER value %q", provider)
	}

	return cfg, nil
}

// loadStoreConfig 解析持久化后端配置。
func loadStoreConfig() (store.Config, error) {
	redisDB, err := parseOptionalIntEnv("REDIS_DB")
	if err != nil {
		return store.Config{}, err
	}

	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", "memory"))
	cfg := store.Config{
		Driver:        driver,
		DSN:           strings.TrimSpace(os.Getenv("STORE_DSN")),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}
	if redisDB != nil {
		cfg.RedisDB = *redisDB
	}

	switch driver {
	case "memory", "redis":
	case "sqlite":
		if cfg.DSN == "" {
			cfg.DSN = "data/chat.db"
		}
	case "bolt":
		if cfg.DSN == "" {
			cfg.DSN = "data/chat.bolt"
		}
	default:
		return store.Config{}, errors.Errorf("invalid STORE_DRIVER value %q", driver)
	}
	return cfg, nil
}

// LogConfig 描述日志输出配置。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return append([]string(nil), defaultValue...)
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s value %q", key, value)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s value %q", key, value)
	}
	return &val, nil
}
