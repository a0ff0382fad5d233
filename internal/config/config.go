package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hello-pool/internal/logger"
	"hello-pool/internal/server"
)

// 環境変数名
const (
	EnvAddr        = "HELLO_ADDR"
	EnvWorkers     = "HELLO_WORKERS"
	EnvDocRoot     = "HELLO_DOC_ROOT"
	EnvLogLevel    = "HELLO_LOG_LEVEL"
	EnvMetricsAddr = "HELLO_METRICS_ADDR"
	EnvMaxConns    = "HELLO_MAX_CONNS"
	EnvSleepDelay  = "HELLO_SLEEP_DELAY"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Pool    PoolConfig    `yaml:"pool" json:"pool"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// ServerConfig はフロントエンドの設定
type ServerConfig struct {
	Addr         string `yaml:"addr" json:"addr"`
	DocRoot      string `yaml:"doc_root" json:"doc_root"`
	MaxConns     int    `yaml:"max_conns" json:"max_conns"`
	SleepDelay   string `yaml:"sleep_delay" json:"sleep_delay"`
	ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
}

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// MetricsConfig はメトリクス配信の設定。Addr が空なら無効
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Config は実行時の設定
type Config struct {
	Server      server.Config
	Workers     int
	LogLevel    logger.Level
	MetricsAddr string
}

// DefaultWorkers はデフォルトのワーカー数
const DefaultWorkers = 5

// Default はデフォルト設定を返す
func Default() Config {
	return Config{
		Server:   server.DefaultConfig(),
		Workers:  DefaultWorkers,
		LogLevel: logger.LevelInfo,
	}
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// LoadEnv は .env ファイル（あれば）を読み込み、環境変数の値で上書きする
// 環境変数は .env より優先される
func (f *FileConfig) LoadEnv(files ...string) error {
	// 明示されていない .env は無くてもよいが、壊れていればエラーにする
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if v := os.Getenv(EnvAddr); v != "" {
		f.Server.Addr = v
	}
	if v := os.Getenv(EnvDocRoot); v != "" {
		f.Server.DocRoot = v
	}
	if v := os.Getenv(EnvSleepDelay); v != "" {
		f.Server.SleepDelay = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		f.Log.Level = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		f.Metrics.Addr = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not an integer: %w", EnvWorkers, v, err)
		}
		f.Pool.Workers = n
	}
	if v := os.Getenv(EnvMaxConns); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not an integer: %w", EnvMaxConns, v, err)
		}
		f.Server.MaxConns = n
	}
	return nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	if f.Pool.Workers < 0 {
		return fmt.Errorf("pool.workers must be non-negative")
	}
	if f.Server.MaxConns < 0 {
		return fmt.Errorf("server.max_conns must be non-negative")
	}
	if _, err := logger.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ToConfig はFileConfigを実行時のConfigに変換する
// 未指定の項目はデフォルト値になる
func (f *FileConfig) ToConfig() (Config, error) {
	config := Default()

	if f.Server.Addr != "" {
		config.Server.Addr = f.Server.Addr
	}
	if f.Server.DocRoot != "" {
		config.Server.DocRoot = f.Server.DocRoot
	}
	if f.Server.MaxConns > 0 {
		config.Server.MaxConns = f.Server.MaxConns
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"server.sleep_delay", f.Server.SleepDelay, &config.Server.SleepDelay},
		{"server.read_timeout", f.Server.ReadTimeout, &config.Server.ReadTimeout},
		{"server.write_timeout", f.Server.WriteTimeout, &config.Server.WriteTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return config, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if f.Pool.Workers > 0 {
		config.Workers = f.Pool.Workers
	}

	level, err := logger.ParseLevel(f.Log.Level)
	if err != nil {
		return config, err
	}
	config.LogLevel = level
	config.MetricsAddr = f.Metrics.Addr

	return config, nil
}
