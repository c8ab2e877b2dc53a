package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 定义了服务的全部运行配置
type Config struct {
	Listen        string `yaml:"listen"`
	DataDir       string `yaml:"data_dir"`
	AdminToken    string `yaml:"admin_token"`
	PublicBaseURL string `yaml:"public_base_url"`

	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Upload    UploadConfig    `yaml:"upload"`
	Notify    NotifyConfig    `yaml:"notify"`
	Guard     GuardConfig     `yaml:"guard"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type DatabaseConfig struct {
	Driver  string        `yaml:"driver"` // sqlite | postgres
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Type          string `yaml:"type"` // fs | s3 | gcs
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type UploadConfig struct {
	MaxBytes int64         `yaml:"max_bytes"`
	Timeout  time.Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	// Mode 决定提交流程如何调用确认邮件函数: local 直接调用, http 走远程函数
	Mode         string        `yaml:"mode"`
	FunctionURL  string        `yaml:"function_url"`
	APIKey       string        `yaml:"-"`
	ProviderURL  string        `yaml:"provider_url"`
	From         string        `yaml:"from"`
	ReplyTo      string        `yaml:"reply_to"`
	SupportPhone string        `yaml:"support_phone"`
	Timeout      time.Duration `yaml:"timeout"`
	DedupWindow  time.Duration `yaml:"dedup_window"`
}

type GuardConfig struct {
	Type      string        `yaml:"type"` // memory | redis
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	TTL       time.Duration `yaml:"ttl"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	Environment  string `yaml:"environment"`
}

var (
	loadedConfig *Config
	configOnce   sync.Once
	configLock   sync.RWMutex
)

// Default 返回未经任何覆盖的默认配置
func Default() *Config {
	return &Config{
		Listen:        ":8088",
		DataDir:       "./.data",
		PublicBaseURL: "http://localhost:8088",
		Log:           LogConfig{Level: "info", Format: "json"},
		Database:      DatabaseConfig{Driver: "sqlite", Timeout: 15 * time.Second},
		Storage:       StorageConfig{Type: "fs", Bucket: "repair-requests", Region: "us-east-1"},
		Upload:        UploadConfig{MaxBytes: 10 << 20, Timeout: 60 * time.Second},
		Notify: NotifyConfig{
			Mode:         "local",
			ProviderURL:  "https://api.resend.com/emails",
			From:         "PayFix <noreply@resend.dev>",
			SupportPhone: "+234 805 268 9119",
			Timeout:      15 * time.Second,
			DedupWindow:  10 * time.Minute,
		},
		Guard:     GuardConfig{Type: "memory", TTL: 2 * time.Minute},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
		Telemetry: TelemetryConfig{OTLPEndpoint: "localhost:4317", Environment: "development"},
	}
}

// Parse 解析 YAML 内容并叠加到默认配置上，再应用环境变量覆盖
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load 从指定路径加载配置，只执行一次。文件不存在时使用默认值。
func Load(path string) (*Config, error) {
	var loadErr error
	configOnce.Do(func() {
		var data []byte
		if path != "" {
			b, err := os.ReadFile(path)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				loadErr = fmt.Errorf("read config %s: %w", path, err)
				return
			}
			data = b
		}

		cfg, err := Parse(data, os.Getenv)
		if err != nil {
			loadErr = err
			return
		}

		configLock.Lock()
		loadedConfig = cfg
		configLock.Unlock()
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return Get(), nil
}

// Get 返回已加载配置的副本
func Get() *Config {
	configLock.RLock()
	defer configLock.RUnlock()
	if loadedConfig == nil {
		return Default()
	}
	c := *loadedConfig
	return &c
}

// Validate checks the combinations the factories cannot recover from.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Notify.Mode {
	case "local", "off":
	case "http":
		if c.Notify.FunctionURL == "" {
			return errors.New("notify.function_url is required when notify.mode is http")
		}
	default:
		return fmt.Errorf("unsupported notify mode: %s", c.Notify.Mode)
	}

	switch c.Guard.Type {
	case "memory":
	case "redis":
		if c.Guard.RedisAddr == "" {
			return errors.New("guard.redis_addr is required for redis guard")
		}
	default:
		return fmt.Errorf("unsupported guard type: %s", c.Guard.Type)
	}

	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket is required")
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&cfg.Listen, "REPAIR_LISTEN")
	setString(&cfg.DataDir, "REPAIR_DATA_DIR")
	setString(&cfg.AdminToken, "REPAIR_ADMIN_TOKEN")
	setString(&cfg.PublicBaseURL, "REPAIR_PUBLIC_BASE_URL")
	setString(&cfg.Log.Level, "REPAIR_LOG_LEVEL")
	setString(&cfg.Database.Driver, "REPAIR_DB_DRIVER")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Storage.Type, "REPAIR_STORAGE_TYPE")
	setString(&cfg.Storage.Bucket, "REPAIR_STORAGE_BUCKET")
	setString(&cfg.Storage.Region, "AWS_REGION")
	setString(&cfg.Storage.Endpoint, "REPAIR_STORAGE_ENDPOINT")
	setString(&cfg.Notify.Mode, "REPAIR_NOTIFY_MODE")
	setString(&cfg.Notify.FunctionURL, "REPAIR_NOTIFY_URL")
	setString(&cfg.Notify.APIKey, "RESEND_API_KEY")
	setString(&cfg.Guard.Type, "REPAIR_GUARD")
	setString(&cfg.Guard.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := getenv("REPAIR_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("REPAIR_MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.Upload.MaxBytes = n
	}
	if v := getenv("REPAIR_TELEMETRY"); v != "" {
		cfg.Telemetry.Enabled = v == "true" || v == "1"
	}
	return nil
}
