package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/bellhop-widget/internal/storage"
	"github.com/zhouzirui/bellhop-widget/pkg/widget"
)

// Config 聚合客户端与开发后端的配置项。
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	AI      AIConfig
	Widget  WidgetConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	backend, err := loadBackendConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	w, err := loadWidgetConfig()
	if err != nil {
		return nil, err
	}

	lg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Backend: backend, AI: ai, Widget: w, Log: lg}, nil
}

// fileConfig is the YAML layout accepted by LoadFile.
type fileConfig struct {
	Widget struct {
		widget.Config `yaml:",inline"`
		Storage       struct {
			Kind       string `yaml:"kind"`
			SQLitePath string `yaml:"sqlitePath"`
			RedisAddr  string `yaml:"redisAddr"`
			RedisDB    *int   `yaml:"redisDb"`
		} `yaml:"storage"`
	} `yaml:"widget"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// LoadFile 在环境变量之上叠加 YAML 文件中的非空字段。
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	cfg.Widget.overlay(fc)
	if fc.Log.Level != "" {
		level, err := zerolog.ParseLevel(fc.Log.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", fc.Log.Level)
		}
		cfg.Log.Level = level
	}
	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// BackendConfig 描述开发后端的行为。
type BackendConfig struct {
	// APIKeys 为空时不校验 Bearer 凭证。
	APIKeys    []string
	ReplyDelay time.Duration
}

func loadBackendConfig() (BackendConfig, error) {
	delay, err := parseDurationEnv("BACKEND_REPLY_DELAY", 40*time.Millisecond)
	if err != nil {
		return BackendConfig{}, err
	}
	return BackendConfig{
		APIKeys:    splitList(os.Getenv("BACKEND_API_KEYS")),
		ReplyDelay: delay,
	}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	SystemPrompt string
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("Model")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		SystemPrompt: getEnvOrDefault("ARK_SYSTEM_PROMPT", "You are a friendly customer support assistant. Keep answers short."),
	}, nil
}

// WidgetConfig 描述嵌入式聊天客户端的配置。
type WidgetConfig struct {
	widget.Config
	Storage storage.Options
}

func loadWidgetConfig() (WidgetConfig, error) {
	timeout, err := parseDurationEnv("WIDGET_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return WidgetConfig{}, err
	}

	redisDB := 0
	if db, err := parseOptionalIntEnv("WIDGET_REDIS_DB"); err != nil {
		return WidgetConfig{}, err
	} else if db != nil {
		redisDB = *db
	}

	return WidgetConfig{
		Config: widget.Config{
			APIKey:         strings.TrimSpace(os.Getenv("WIDGET_API_KEY")),
			CustomerID:     strings.TrimSpace(os.Getenv("WIDGET_CUSTOMER_ID")),
			APIURL:         getEnvOrDefault("WIDGET_API_URL", widget.DefaultAPIURL),
			Inline:         strings.TrimSpace(os.Getenv("WIDGET_INLINE")),
			Greeting:       strings.TrimSpace(os.Getenv("WIDGET_GREETING")),
			RequestTimeout: timeout,
		},
		Storage: storage.Options{
			Kind:       storage.Kind(getEnvOrDefault("WIDGET_STORAGE", string(storage.KindSQLite))),
			SQLitePath: getEnvOrDefault("WIDGET_SQLITE_PATH", "widget-sessions.db"),
			RedisAddr:  getEnvOrDefault("WIDGET_REDIS_ADDR", "localhost:6379"),
			RedisDB:    redisDB,
		},
	}, nil
}

func (w *WidgetConfig) overlay(fc fileConfig) {
	src := fc.Widget
	setIfNotEmpty(&w.APIKey, src.APIKey)
	setIfNotEmpty(&w.CustomerID, src.CustomerID)
	setIfNotEmpty(&w.APIURL, src.APIURL)
	setIfNotEmpty(&w.Inline, src.Inline)
	setIfNotEmpty(&w.Greeting, src.Greeting)
	if src.RequestTimeout > 0 {
		w.RequestTimeout = src.RequestTimeout
	}
	if src.Storage.Kind != "" {
		w.Storage.Kind = storage.Kind(src.Storage.Kind)
	}
	setIfNotEmpty(&w.Storage.SQLitePath, src.Storage.SQLitePath)
	setIfNotEmpty(&w.Storage.RedisAddr, src.Storage.RedisAddr)
	if src.Storage.RedisDB != nil {
		w.Storage.RedisDB = *src.Storage.RedisDB
	}
}

// LogConfig 日志级别。
type LogConfig struct {
	Level zerolog.Level
}

func loadLogConfig() (LogConfig, error) {
	raw := getEnvOrDefault("LOG_LEVEL", "info")
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q: %w", raw, err)
	}
	return LogConfig{Level: level}, nil
}

func setIfNotEmpty(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
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
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
