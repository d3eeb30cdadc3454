package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	Mode      string          `mapstructure:"mode"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// RateLimitConfig limits chat sends per client IP.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`   // sqlite file
	URL             string        `mapstructure:"url"`    // postgres DSN
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type StorageConfig struct {
	Type       string           `mapstructure:"type"` // s3compatible, r2, minio, cloudinary
	Endpoint   string           `mapstructure:"endpoint"`
	AccessKey  string           `mapstructure:"access_key"`
	SecretKey  string           `mapstructure:"secret_key"`
	UseSSL     bool             `mapstructure:"use_ssl"`
	Bucket     string           `mapstructure:"bucket"`
	Region     string           `mapstructure:"region"`
	PublicURL  string           `mapstructure:"public_url"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
}

type CloudinaryConfig struct {
	CloudName    string `mapstructure:"cloud_name"`
	UploadPreset string `mapstructure:"upload_preset"`
	BaseURL      string `mapstructure:"base_url"`
}

type LLMConfig struct {
	Provider   string        `mapstructure:"provider"` // gemini, openai, ollama, langchain-openai
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type UploadConfig struct {
	InterJobDelay     time.Duration `mapstructure:"inter_job_delay"`
	ProgressSubmitted int           `mapstructure:"progress_submitted"`
	ProgressUploaded  int           `mapstructure:"progress_uploaded"`
	ProgressSaving    int           `mapstructure:"progress_saving"`
	ProgressDone      int           `mapstructure:"progress_done"`
	DefaultCategory   string        `mapstructure:"default_category"`
	AssetFolder       string        `mapstructure:"asset_folder"`
	DatasetPath       string        `mapstructure:"dataset_path"`
}

type ChatConfig struct {
	MaxInputLength       int           `mapstructure:"max_input_length"`
	HistoryCap           int           `mapstructure:"history_cap"`
	HistoryWindow        int           `mapstructure:"history_window"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	TypingBase           time.Duration `mapstructure:"typing_base"`
	TypingWordsPerSecond float64       `mapstructure:"typing_words_per_second"`
	TypingMax            time.Duration `mapstructure:"typing_max"`
	WelcomeDelay         time.Duration `mapstructure:"welcome_delay"`
	ErrorDelay           time.Duration `mapstructure:"error_delay"`
	ContactEmail         string        `mapstructure:"contact_email"`
	ContextItems         int           `mapstructure:"context_items"`
	OwnerName            string        `mapstructure:"owner_name"`
	SessionIdleTimeout   time.Duration `mapstructure:"session_idle_timeout"`
	SessionSweepInterval time.Duration `mapstructure:"session_sweep_interval"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment-specific values
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	v.BindEnv("storage.cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("storage.cloudinary.upload_preset", "CLOUDINARY_UPLOAD_PRESET")
	v.BindEnv("llm.provider", "LLM_PROVIDER")
	v.BindEnv("llm.api_key", "LLM_API_KEY")
	v.BindEnv("llm.base_url", "LLM_BASE_URL")
	v.BindEnv("llm.model", "LLM_MODEL")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("chat.contact_email", "CONTACT_EMAIL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.rate_limit.rps", 2.0)
	v.SetDefault("server.rate_limit.burst", 5)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/folio.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.type", "s3compatible")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "portfolio")
	v.SetDefault("storage.cloudinary.base_url", "https://api.cloudinary.com/v1_1")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-1.5-flash")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_retries", 2)

	v.SetDefault("upload.inter_job_delay", time.Second)
	v.SetDefault("upload.progress_submitted", 30)
	v.SetDefault("upload.progress_uploaded", 60)
	v.SetDefault("upload.progress_saving", 90)
	v.SetDefault("upload.progress_done", 100)
	v.SetDefault("upload.default_category", "Certification")
	v.SetDefault("upload.asset_folder", "certificates")
	v.SetDefault("upload.dataset_path", "./data/certificates")

	v.SetDefault("chat.max_input_length", 500)
	v.SetDefault("chat.history_cap", 50)
	v.SetDefault("chat.history_window", 5)
	v.SetDefault("chat.request_timeout", 30*time.Second)
	v.SetDefault("chat.typing_base", time.Second)
	v.SetDefault("chat.typing_words_per_second", 3.0)
	v.SetDefault("chat.typing_max", 4*time.Second)
	v.SetDefault("chat.welcome_delay", 1500*time.Millisecond)
	v.SetDefault("chat.error_delay", time.Second)
	v.SetDefault("chat.contact_email", "hello@example.com")
	v.SetDefault("chat.context_items", 5)
	v.SetDefault("chat.owner_name", "the portfolio owner")
	v.SetDefault("chat.session_idle_timeout", 30*time.Minute)
	v.SetDefault("chat.session_sweep_interval", time.Minute)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "folio:suggestions")
}

// Validate checks values that would make the services misbehave.
func (c *Config) Validate() error {
	u := c.Upload
	if u.InterJobDelay < 0 {
		return fmt.Errorf("upload.inter_job_delay must not be negative")
	}
	steps := []int{u.ProgressSubmitted, u.ProgressUploaded, u.ProgressSaving, u.ProgressDone}
	prev := 0
	for _, step := range steps {
		if step < prev || step > 100 {
			return fmt.Errorf("upload progress steps must be non-decreasing within 0-100, got %v", steps)
		}
		prev = step
	}
	if c.Chat.MaxInputLength <= 0 {
		return fmt.Errorf("chat.max_input_length must be positive")
	}
	if c.Chat.HistoryCap <= 0 {
		return fmt.Errorf("chat.history_cap must be positive")
	}
	if c.Chat.SessionIdleTimeout <= 0 || c.Chat.SessionSweepInterval <= 0 {
		return fmt.Errorf("chat.session_idle_timeout and chat.session_sweep_interval must be positive")
	}
	if c.Chat.TypingWordsPerSecond <= 0 {
		return fmt.Errorf("chat.typing_words_per_second must be positive")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	return nil
}
