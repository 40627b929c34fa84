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
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Index         IndexConfig         `mapstructure:"index"`
	History       HistoryConfig       `mapstructure:"history"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// PipelineConfig 存储文本处理管道相关的配置。
type PipelineConfig struct {
	ChunkSize        int `mapstructure:"chunk_size"`
	ChunkOverlap     int `mapstructure:"chunk_overlap"`
	TopK             int `mapstructure:"top_k"`
	BoundaryLookback int `mapstructure:"boundary_lookback"`
}

// IndexConfig 选择向量索引的后端实现。
type IndexConfig struct {
	// Backend 可选 "memory"（默认，进程内精确检索）或 "elasticsearch"。
	Backend string `mapstructure:"backend"`
}

// HistoryConfig 存储对话历史相关的配置。
type HistoryConfig struct {
	// Backend 可选 "memory"（默认）或 "redis"。
	Backend string `mapstructure:"backend"`
	// Window 保留的最近消息条数（一问一答算两条），0 表示使用默认值。
	Window int `mapstructure:"window"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses   string `mapstructure:"addresses"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	IndexPrefix string `mapstructure:"index_prefix"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	Dimensions     int    `mapstructure:"dimensions"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
	Prompt         LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置系统提示与上下文包裹格式（可选）。
type LLMPromptConfig struct {
	Rules        string `mapstructure:"rules"`
	RefStart     string `mapstructure:"ref_start"`
	RefEnd       string `mapstructure:"ref_end"`
	NoResultText string `mapstructure:"no_result_text"`
}

// 管道参数的默认值。
const (
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
	DefaultTopK             = 4
	DefaultBoundaryLookback = 100
	DefaultHistoryWindow    = 20
)

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	applyDefaults(&Conf)
}

// applyDefaults 为未配置的管道参数填充默认值。
func applyDefaults(c *Config) {
	if c.Pipeline.ChunkSize <= 0 {
		c.Pipeline.ChunkSize = DefaultChunkSize
	}
	if c.Pipeline.ChunkOverlap < 0 {
		c.Pipeline.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		// 重叠必须严格小于分块大小，退化为五分之一
		c.Pipeline.ChunkOverlap = c.Pipeline.ChunkSize / 5
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = DefaultTopK
	}
	if c.Pipeline.BoundaryLookback <= 0 {
		c.Pipeline.BoundaryLookback = DefaultBoundaryLookback
	}
	if c.History.Window <= 0 {
		c.History.Window = DefaultHistoryWindow
	}
	if c.Index.Backend == "" {
		c.Index.Backend = "memory"
	}
	if c.History.Backend == "" {
		c.History.Backend = "memory"
	}
}
