package conf

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MinIO   MinIOConfig   `mapstructure:"minio"`
	Content ContentConfig `mapstructure:"content"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ContentConfig configures the content pipeline
type ContentConfig struct {
	// Bucket is the object storage bucket holding all three stage namespaces
	Bucket string `mapstructure:"bucket"`
	// PublicBaseURL is the externally reachable URL prefix for serving files
	PublicBaseURL string `mapstructure:"public_base_url"`
	// MaxUploadBytes caps ingest payload size (default 10 MiB)
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	// AllowedMIMETypes lists accepted upload content types
	AllowedMIMETypes []string `mapstructure:"allowed_mime_types"`
	// EventBufferSize is the per-observer SSE channel buffer
	EventBufferSize int `mapstructure:"event_buffer_size"`
	// DeleteWorkers sizes the batch-delete worker pool
	DeleteWorkers int `mapstructure:"delete_workers"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

func (c *Config) setDefaults() {
	if c.Content.MaxUploadBytes == 0 {
		c.Content.MaxUploadBytes = 10 << 20
	}
	if len(c.Content.AllowedMIMETypes) == 0 {
		c.Content.AllowedMIMETypes = []string{"image/jpeg", "image/png", "image/gif"}
	}
	if c.Content.EventBufferSize == 0 {
		c.Content.EventBufferSize = 16
	}
	if c.Content.DeleteWorkers == 0 {
		c.Content.DeleteWorkers = 16
	}
	if c.Content.Bucket == "" {
		c.Content.Bucket = "signage"
	}
}
