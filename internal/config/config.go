// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Log        LogConfig        `mapstructure:"log"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Session    SessionConfig    `mapstructure:"session"`
	Chatbot    ChatbotConfig    `mapstructure:"chatbot"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Search     SearchConfig     `mapstructure:"search"`
	RateLimits RateLimitConfig  `mapstructure:"rate_limits"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                string `mapstructure:"secret"`
	ClientTokenExpireDays int    `mapstructure:"client_token_expire_days"`
	ChatTokenExpireMins   int    `mapstructure:"chat_token_expire_mins"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// SessionConfig 配置会话存储：存储后端、容量上限与过期时间。
type SessionConfig struct {
	Store                string `mapstructure:"store"` // "memory" 或 "redis"
	MaxTurns             int    `mapstructure:"max_turns"`
	IdleTimeoutSeconds   int    `mapstructure:"idle_timeout_seconds"`
	SweepIntervalSeconds int    `mapstructure:"sweep_interval_seconds"`
}

// ChatbotConfig 配置对话行为与多语言支持。
type ChatbotConfig struct {
	DefaultLanguage     string   `mapstructure:"default_language"`
	SupportedLanguages  []string `mapstructure:"supported_languages"`
	ShortMessageRunes   int      `mapstructure:"short_message_runes"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold"`
	HistoryTurns        int      `mapstructure:"history_turns"`
}

// GuardrailsConfig 配置话题守卫的关键词列表（为空时使用内置默认值）。
type GuardrailsConfig struct {
	RestrictedTopics []string `mapstructure:"restricted_topics"`
	WarningKeywords  []string `mapstructure:"warning_keywords"`
	ResumeKeywords   []string `mapstructure:"resume_keywords"`
}

// SearchConfig 配置外部网页搜索与内容抽取。
type SearchConfig struct {
	ProviderURL      string   `mapstructure:"provider_url"`
	APIKey           string   `mapstructure:"api_key"`
	MaxResults       int      `mapstructure:"max_results"`
	TimeoutSeconds   int      `mapstructure:"timeout_seconds"`
	MaxContentLength int      `mapstructure:"max_content_length"`
	UserAgent        string   `mapstructure:"user_agent"`
	AllowedDomains   []string `mapstructure:"allowed_domains"`
	Triggers         []string `mapstructure:"triggers"`
}

// RateLimitConfig 配置按客户端的请求与搜索配额。
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	RequestsPerHour   int `mapstructure:"requests_per_hour"`
	SearchesPerHour   int `mapstructure:"searches_per_hour"`
}

// AuditConfig 配置对话审计日志（Kafka + MySQL）。
type AuditConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	RetentionDays      int  `mapstructure:"retention_days"`
	PurgeIntervalHours int  `mapstructure:"purge_interval_hours"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}

// setDefaults 注册默认值，配置文件只需覆盖差异项。
func setDefaults() {
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("jwt.client_token_expire_days", 30)
	viper.SetDefault("jwt.chat_token_expire_mins", 5)

	viper.SetDefault("llm.timeout_seconds", 30)
	viper.SetDefault("llm.generation.temperature", 0.7)
	viper.SetDefault("llm.generation.max_tokens", 800)

	viper.SetDefault("session.store", "memory")
	viper.SetDefault("session.max_turns", 50)
	viper.SetDefault("session.idle_timeout_seconds", 3600)
	viper.SetDefault("session.sweep_interval_seconds", 300)

	viper.SetDefault("chatbot.default_language", "en")
	viper.SetDefault("chatbot.short_message_runes", 20)
	viper.SetDefault("chatbot.confidence_threshold", 0.6)
	viper.SetDefault("chatbot.history_turns", 6)

	viper.SetDefault("search.max_results", 3)
	viper.SetDefault("search.timeout_seconds", 10)
	viper.SetDefault("search.max_content_length", 1000)

	viper.SetDefault("rate_limits.requests_per_minute", 30)
	viper.SetDefault("rate_limits.requests_per_hour", 500)
	viper.SetDefault("rate_limits.searches_per_hour", 50)

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.retention_days", 30)
	viper.SetDefault("audit.purge_interval_hours", 6)
}
