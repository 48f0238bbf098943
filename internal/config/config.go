package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	AI       AIConfig       `mapstructure:"ai"`
	Gaceta   GacetaConfig   `mapstructure:"gaceta"`
	QA       QAConfig       `mapstructure:"qa"`
	Twitter  TwitterConfig  `mapstructure:"twitter"`
	APIKey   string         `mapstructure:"api_key"` // X-API-KEY 校验值
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	AutoMigrate     bool   `mapstructure:"auto_migrate"`      // 是否自动迁移表结构
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`      // 连接池大小
	MinIdleConns int    `mapstructure:"min_idle_conns"` // 最小空闲连接数
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// AIConfig AI 模型配置
type AIConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`           // 默认 gpt-4o-mini
	EmbeddingModel string  `mapstructure:"embedding_model"` // 默认 text-embedding-3-small
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
}

// GacetaConfig 公报抓取配置
type GacetaConfig struct {
	BaseURL     string `mapstructure:"base_url"`     // 默认 https://www.imprentanacional.go.cr
	DownloadDir string `mapstructure:"download_dir"` // PDF 落盘目录，默认 ./gaceta_pdfs
	Cron        string `mapstructure:"cron"`         // 每日任务 cron 表达式
	Timezone    string `mapstructure:"timezone"`     // 默认 America/Costa_Rica
}

// QAConfig 检索问答配置
type QAConfig struct {
	TopK            int `mapstructure:"top_k"`             // 相似检索数量，默认 5
	ContextTokens   int `mapstructure:"context_tokens"`    // 上下文 token 预算
	AnswerTimeout   int `mapstructure:"answer_timeout"`    // 单次问答超时（秒）
	DailyQueryLimit int `mapstructure:"daily_query_limit"` // 全局每日问答上限，默认 50
}

// TwitterConfig Twitter OAuth2 配置
type TwitterConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件名和路径
	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_DATABASE_HOST

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	globalConfig = &cfg
	return &cfg, nil
}

// applyDefaults 填充未配置项的默认值
func applyDefaults(cfg *Config) {
	if cfg.AI.OpenAI.Model == "" {
		cfg.AI.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.AI.OpenAI.EmbeddingModel == "" {
		cfg.AI.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.AI.OpenAI.MaxTokens == 0 {
		cfg.AI.OpenAI.MaxTokens = 1024
	}
	if cfg.Gaceta.BaseURL == "" {
		cfg.Gaceta.BaseURL = "https://www.imprentanacional.go.cr"
	}
	if cfg.Gaceta.DownloadDir == "" {
		cfg.Gaceta.DownloadDir = "./gaceta_pdfs"
	}
	if cfg.Gaceta.Timezone == "" {
		cfg.Gaceta.Timezone = "America/Costa_Rica"
	}
	if cfg.Gaceta.Cron == "" {
		cfg.Gaceta.Cron = "0 * * * *" // 每小时检查一次当日公报
	}
	if cfg.QA.TopK <= 0 {
		cfg.QA.TopK = 5
	}
	if cfg.QA.ContextTokens <= 0 {
		cfg.QA.ContextTokens = 6000
	}
	if cfg.QA.AnswerTimeout <= 0 {
		cfg.QA.AnswerTimeout = 120
	}
	if cfg.QA.DailyQueryLimit <= 0 {
		cfg.QA.DailyQueryLimit = 50
	}
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
