// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Chat          ChatConfig          `mapstructure:"chat"`
	Model         ModelConfig         `mapstructure:"model"`
	Translation   TranslationConfig   `mapstructure:"translation"`
	Upload        UploadConfig        `mapstructure:"upload"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Export        ExportConfig        `mapstructure:"export"`
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
// DSN 非空时优先使用，否则由 Host/User/Password/Name/Port 拼接。
type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// BuildDSN 返回 go-sql-driver 格式的连接串。
func (c MySQLConfig) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// RedisConfig 存储 Redis 的配置。Addr 为空表示不启用。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ChatConfig 存储对话流程相关的配置。
type ChatConfig struct {
	// PivotLanguage 是发送给模型前统一翻译到的中间语言。
	PivotLanguage string `mapstructure:"pivot_language"`
}

// ModelConfig 存储本地大模型相关的配置。
type ModelConfig struct {
	Provider string        `mapstructure:"provider"` // "cli" 或 "http"
	Name     string        `mapstructure:"name"`
	Command  string        `mapstructure:"command"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TranslationConfig 存储翻译服务相关的配置。
type TranslationConfig struct {
	Provider string        `mapstructure:"provider"` // "http" 或 "lambda"
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Lambda   LambdaConfig  `mapstructure:"lambda"`
}

// LambdaConfig 存储 Lambda 翻译函数的配置。
type LambdaConfig struct {
	Region       string `mapstructure:"region"`
	FunctionName string `mapstructure:"function_name"`
}

// UploadConfig 存储文件上传相关的配置。
type UploadConfig struct {
	Backend     string `mapstructure:"backend"` // "local" 或 "minio"
	Dir         string `mapstructure:"dir"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空表示不启用。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。Addresses 为空表示不启用。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// ExportConfig 存储 PDF 导出相关的配置。
type ExportConfig struct {
	Title    string `mapstructure:"title"`
	FontPath string `mapstructure:"font_path"`
}

// envBindings 将沿用的环境变量名映射到配置键。
var envBindings = map[string]string{
	"database.mysql.host":     "DB_HOST",
	"database.mysql.user":     "DB_USER",
	"database.mysql.password": "DB_PASSWORD",
	"database.mysql.name":     "DB_NAME",
	"database.mysql.port":     "DB_PORT",
	"model.name":              "MODEL_NAME",
	"server.port":             "PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.mysql.host", "127.0.0.1")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.max_idle_conns", 10)
	v.SetDefault("database.mysql.max_open_conns", 100)
	v.SetDefault("database.mysql.conn_max_lifetime", time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("chat.pivot_language", "en")
	v.SetDefault("model.provider", "cli")
	v.SetDefault("model.name", "llama3.2:1b")
	v.SetDefault("model.command", "ollama")
	v.SetDefault("model.base_url", "http://127.0.0.1:11434")
	v.SetDefault("model.timeout", 120*time.Second)
	v.SetDefault("translation.provider", "http")
	v.SetDefault("translation.base_url", "http://127.0.0.1:5000")
	v.SetDefault("translation.timeout", 15*time.Second)
	v.SetDefault("translation.cache_ttl", 24*time.Hour)
	v.SetDefault("upload.backend", "local")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_file_size", 32<<20)
	v.SetDefault("kafka.topic", "chat-turns")
	v.SetDefault("kafka.group_id", "polyglot-chat-indexer")
	v.SetDefault("elasticsearch.index_name", "chat_turns")
	v.SetDefault("export.title", "AI Chat History")
}

// Load 读取指定路径的 YAML 文件（可缺省）并叠加环境变量，返回解析后的配置。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("绑定环境变量 %s 失败: %w", env, err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	cfg.Chat.PivotLanguage = strings.ToLower(strings.TrimSpace(cfg.Chat.PivotLanguage))
	if cfg.Chat.PivotLanguage == "" {
		return Config{}, fmt.Errorf("chat.pivot_language 不能为空")
	}
	if cfg.Model.Timeout <= 0 {
		return Config{}, fmt.Errorf("model.timeout 必须为正数")
	}
	return cfg, nil
}

// Init 初始化配置加载，解析结果写入全局 Conf 变量。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
