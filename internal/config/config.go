// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找，并允许环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"contact_book/pkg/constants"

	"github.com/BurntSushi/toml" // TOML 配置文件解析库
	"github.com/caarlos0/env/v6" // 环境变量覆盖
	"github.com/joho/godotenv"   // 加载 .env 文件
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName     string `toml:"appName" env:"CONTACT_BOOK_APP_NAME"`         // 应用名称，用于日志标识等
	Host        string `toml:"host" env:"CONTACT_BOOK_HOST"`                // 服务器监听地址，如 "0.0.0.0"
	Port        int    `toml:"port" env:"CONTACT_BOOK_PORT"`                // 服务器监听端口，如 3000
	Mode        string `toml:"mode" env:"CONTACT_BOOK_MODE"`                // 运行模式：dev 或 release
	SSLRedirect bool   `toml:"sslRedirect" env:"CONTACT_BOOK_SSL_REDIRECT"` // 是否把 HTTP 请求重定向到 HTTPS
	Locale      string `toml:"locale" env:"CONTACT_BOOK_LOCALE"`            // 表单校验提示语言：en 或 zh
}

// ApiConfig 后端联系人 API 配置
type ApiConfig struct {
	BaseURL       string        `toml:"baseURL" env:"CONTACT_BOOK_API_BASE_URL"`             // 后端地址，如 http://localhost:4000
	BasePath      string        `toml:"basePath" env:"CONTACT_BOOK_API_BASE_PATH"`           // 联系人接口前缀
	Timeout       time.Duration `toml:"timeout" env:"CONTACT_BOOK_API_TIMEOUT"`              // 单次请求超时
	DefaultLimit  int           `toml:"defaultLimit" env:"CONTACT_BOOK_API_DEFAULT_LIMIT"`   // 列表默认每页条数
	DefaultAvatar string        `toml:"defaultAvatar" env:"CONTACT_BOOK_API_DEFAULT_AVATAR"` // 默认头像地址
}

// QueryConfig 查询缓存配置
type QueryConfig struct {
	StaleTime     time.Duration `toml:"staleTime" env:"CONTACT_BOOK_QUERY_STALE_TIME"`         // 数据新鲜期
	CacheTime     time.Duration `toml:"cacheTime" env:"CONTACT_BOOK_QUERY_CACHE_TIME"`         // 缓存保留时间
	Retry         int           `toml:"retry" env:"CONTACT_BOOK_QUERY_RETRY"`                  // 查询失败重试次数
	MutationRetry int           `toml:"mutationRetry" env:"CONTACT_BOOK_QUERY_MUTATION_RETRY"` // 写操作失败重试次数
	RetryDelay    time.Duration `toml:"retryDelay" env:"CONTACT_BOOK_QUERY_RETRY_DELAY"`       // 首次重试间隔
	MaxRetryDelay time.Duration `toml:"maxRetryDelay" env:"CONTACT_BOOK_QUERY_MAX_RETRY_DELAY"` // 最大重试间隔
	KeyPrefix     string        `toml:"keyPrefix" env:"CONTACT_BOOK_QUERY_KEY_PREFIX"`         // 缓存键前缀
}

// CacheConfig 缓存存储配置
type CacheConfig struct {
	Backend      string `toml:"backend" env:"CONTACT_BOOK_CACHE_BACKEND"`             // memory 或 redis
	WorkerNum    int    `toml:"workerNum" env:"CONTACT_BOOK_CACHE_WORKER_NUM"`        // 后台刷新 Worker 数量
	TaskChanSize int    `toml:"taskChanSize" env:"CONTACT_BOOK_CACHE_TASK_CHAN_SIZE"` // 任务队列长度
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string `toml:"host" env:"CONTACT_BOOK_REDIS_HOST"`         // Redis 服务器地址
	Port     int    `toml:"port" env:"CONTACT_BOOK_REDIS_PORT"`         // Redis 端口，默认 6379
	Password string `toml:"password" env:"CONTACT_BOOK_REDIS_PASSWORD"` // Redis 密码，无密码留空
	Db       int    `toml:"db" env:"CONTACT_BOOK_REDIS_DB"`             // Redis 数据库编号，默认 0
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath" env:"CONTACT_BOOK_LOG_PATH"`   // 日志文件存储目录，为空时只输出到控制台
	FileName   string `toml:"fileName" env:"CONTACT_BOOK_LOG_FILE"`  // 日志文件名
	MaxSize    int    `toml:"maxSize"`                               // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"`                            // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`                                // 保留旧日志文件的最大天数
	Level      string `toml:"level" env:"CONTACT_BOOK_LOG_LEVEL"`    // 日志级别：debug, info, warn, error
}

// StaticSrcConfig 静态资源路径配置
type StaticSrcConfig struct {
	StaticPath string `toml:"staticPath" env:"CONTACT_BOOK_STATIC_PATH"` // 本地静态资源目录（样式、图片），为空时不挂载
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`      // 主配置
	ApiConfig       `toml:"apiConfig"`       // 后端 API 配置
	QueryConfig     `toml:"queryConfig"`     // 查询缓存配置
	CacheConfig     `toml:"cacheConfig"`     // 缓存存储配置
	RedisConfig     `toml:"redisConfig"`     // Redis 配置
	LogConfig       `toml:"logConfig"`       // 日志配置
	StaticSrcConfig `toml:"staticSrcConfig"` // 静态资源配置
}

// DefaultPaths 候选配置文件路径（优先加载本地配置）
var DefaultPaths = []string{
	"configs/config_local.toml",       // 本地开发配置（优先）
	"configs/config.toml",             // 默认配置
	"../../configs/config_local.toml", // 从子目录运行时的路径
	"../../configs/config.toml",       // 从子目录运行时的路径
}

var (
	config     *Config
	configOnce sync.Once
)

// Default 返回内置默认配置
// 查询缓存默认：新鲜期 5 分钟，缓存 10 分钟，查询重试 3 次，写操作重试 1 次
func Default() *Config {
	return &Config{
		MainConfig: MainConfig{
			AppName: "contact_book",
			Host:    "0.0.0.0",
			Port:    3000,
			Mode:    "dev",
			Locale:  "en",
		},
		ApiConfig: ApiConfig{
			BaseURL:       "http://localhost:4000",
			BasePath:      constants.CONTACTS_BASE_PATH,
			Timeout:       10 * time.Second,
			DefaultLimit:  constants.DEFAULT_PAGE_LIMIT,
			DefaultAvatar: constants.DEFAULT_AVATAR,
		},
		QueryConfig: QueryConfig{
			StaleTime:     5 * time.Minute,
			CacheTime:     10 * time.Minute,
			Retry:         3,
			MutationRetry: 1,
			RetryDelay:    time.Second,
			MaxRetryDelay: 30 * time.Second,
			KeyPrefix:     "contact_book",
		},
		CacheConfig: CacheConfig{
			Backend:      "memory",
			WorkerNum:    4,
			TaskChanSize: 256,
		},
		RedisConfig: RedisConfig{
			Host: "127.0.0.1",
			Port: 6379,
		},
		LogConfig: LogConfig{
			Level: "info",
		},
	}
}

// Load 依次尝试候选路径，找到第一个可用的配置文件后叠加到默认配置上
// 随后加载 .env 并应用环境变量覆盖
// 所有路径都不存在时只使用默认配置和环境变量，不视为错误；文件存在但无法解析时返回错误
func Load(paths ...string) (*Config, error) {
	conf := Default()
	for _, path := range paths {
		_, err := toml.DecodeFile(path, conf)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		break
	}

	_ = godotenv.Load() // .env 不存在时忽略
	if err := env.Parse(conf); err != nil {
		return nil, fmt.Errorf("parse environment overrides: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate 校验必填项与取值范围
func (c *Config) Validate() error {
	if c.ApiConfig.BaseURL == "" {
		return fmt.Errorf("apiConfig.baseURL is required")
	}
	switch c.CacheConfig.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cacheConfig.backend must be memory or redis, got %q", c.CacheConfig.Backend)
	}
	if c.QueryConfig.Retry < 0 || c.QueryConfig.MutationRetry < 0 {
		return fmt.Errorf("queryConfig retry counts must not be negative")
	}
	if c.QueryConfig.CacheTime < c.QueryConfig.StaleTime {
		return fmt.Errorf("queryConfig.cacheTime (%s) must not be shorter than staleTime (%s)",
			c.QueryConfig.CacheTime, c.QueryConfig.StaleTime)
	}
	return nil
}

// GetConfig 获取全局配置实例（单例模式）
// 首次调用时从 DefaultPaths 加载，加载失败时退回默认配置
func GetConfig() *Config {
	configOnce.Do(func() {
		conf, err := Load(DefaultPaths...)
		if err != nil {
			conf = Default()
		}
		config = conf
	})
	return config
}
