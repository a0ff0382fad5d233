package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hello-pool/internal/logger"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return path
}

func TestLoadFileYAML(t *testing.T) {
	content := `
server:
  addr: 0.0.0.0:8080
  doc_root: /srv/www
  max_conns: 64
  sleep_delay: 2s
  read_timeout: 3s
  write_timeout: 4s
pool:
  workers: 8
log:
  level: debug
metrics:
  addr: :9090
`
	cfg, err := LoadFile(writeFile(t, "config.yaml", content))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("expected addr '0.0.0.0:8080', got '%s'", cfg.Server.Addr)
	}
	if cfg.Pool.Workers != 8 {
		t.Errorf("expected workers 8, got %d", cfg.Pool.Workers)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Log.Level)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("expected metrics addr ':9090', got '%s'", cfg.Metrics.Addr)
	}
}

func TestLoadFileJSON(t *testing.T) {
	content := `{
  "server": {
    "addr": "127.0.0.1:9000",
    "sleep_delay": "1s"
  },
  "pool": {
    "workers": 3
  }
}`
	cfg, err := LoadFile(writeFile(t, "config.json", content))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("expected addr '127.0.0.1:9000', got '%s'", cfg.Server.Addr)
	}
	if cfg.Pool.Workers != 3 {
		t.Errorf("expected workers 3, got %d", cfg.Pool.Workers)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	_, err := LoadFile(writeFile(t, "config.txt", "test"))
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	_, err := LoadFile(writeFile(t, "config.yaml", "pool: [unclosed"))
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestToConfigDefaults(t *testing.T) {
	cfg, err := (&FileConfig{}).ToConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def := Default()
	if cfg.Workers != DefaultWorkers {
		t.Errorf("expected %d workers, got %d", DefaultWorkers, cfg.Workers)
	}
	if cfg.Server != def.Server {
		t.Errorf("expected default server config %+v, got %+v", def.Server, cfg.Server)
	}
	if cfg.LogLevel != logger.LevelInfo {
		t.Errorf("expected INFO, got %s", cfg.LogLevel)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("expected metrics disabled, got %q", cfg.MetricsAddr)
	}
}

func TestToConfig(t *testing.T) {
	fc := &FileConfig{
		Server: ServerConfig{
			Addr:         ":7000",
			DocRoot:      "www",
			MaxConns:     10,
			SleepDelay:   "250ms",
			ReadTimeout:  "1s",
			WriteTimeout: "2s",
		},
		Pool:    PoolConfig{Workers: 12},
		Log:     LogConfig{Level: "warn"},
		Metrics: MetricsConfig{Addr: ":9100"},
	}

	cfg, err := fc.ToConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":7000" || cfg.Server.DocRoot != "www" || cfg.Server.MaxConns != 10 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.SleepDelay != 250*time.Millisecond {
		t.Errorf("expected sleep delay 250ms, got %v", cfg.Server.SleepDelay)
	}
	if cfg.Server.ReadTimeout != time.Second || cfg.Server.WriteTimeout != 2*time.Second {
		t.Errorf("unexpected timeouts: %v / %v", cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}
	if cfg.Workers != 12 {
		t.Errorf("expected 12 workers, got %d", cfg.Workers)
	}
	if cfg.LogLevel != logger.LevelWarn {
		t.Errorf("expected WARN, got %s", cfg.LogLevel)
	}
	if cfg.MetricsAddr != ":9100" {
		t.Errorf("expected metrics addr ':9100', got %q", cfg.MetricsAddr)
	}
}

func TestToConfigInvalidDuration(t *testing.T) {
	fc := &FileConfig{Server: ServerConfig{SleepDelay: "soon"}}
	if _, err := fc.ToConfig(); err == nil {
		t.Error("expected error for invalid sleep_delay")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  FileConfig
		wantErr bool
	}{
		{"empty", FileConfig{}, false},
		{"negative workers", FileConfig{Pool: PoolConfig{Workers: -1}}, true},
		{"negative max conns", FileConfig{Server: ServerConfig{MaxConns: -1}}, true},
		{"bad log level", FileConfig{Log: LogConfig{Level: "loud"}}, true},
		{"valid", FileConfig{Pool: PoolConfig{Workers: 4}, Log: LogConfig{Level: "error"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvAddr, ":6000")
	t.Setenv(EnvWorkers, "7")
	t.Setenv(EnvDocRoot, "/var/www")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvMetricsAddr, ":9200")
	t.Setenv(EnvMaxConns, "32")
	t.Setenv(EnvSleepDelay, "3s")

	fc := &FileConfig{Pool: PoolConfig{Workers: 2}}
	if err := fc.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}

	if fc.Server.Addr != ":6000" || fc.Server.DocRoot != "/var/www" {
		t.Errorf("unexpected server config: %+v", fc.Server)
	}
	if fc.Pool.Workers != 7 {
		t.Errorf("expected env to override workers to 7, got %d", fc.Pool.Workers)
	}
	if fc.Server.MaxConns != 32 || fc.Server.SleepDelay != "3s" {
		t.Errorf("unexpected server config: %+v", fc.Server)
	}
	if fc.Log.Level != "error" || fc.Metrics.Addr != ":9200" {
		t.Errorf("unexpected log/metrics config: %+v %+v", fc.Log, fc.Metrics)
	}
}

func TestLoadEnvInvalidInteger(t *testing.T) {
	t.Setenv(EnvWorkers, "many")

	fc := &FileConfig{}
	if err := fc.LoadEnv(); err == nil {
		t.Error("expected error for non-integer worker count")
	}
}

func TestLoadEnvFile(t *testing.T) {
	// t.Setenv を経由すると終了時に元の値へ戻る
	t.Setenv(EnvWorkers, "")
	if err := os.Unsetenv(EnvWorkers); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAddr, ":5000")

	path := writeFile(t, ".env", "HELLO_WORKERS=9\nHELLO_ADDR=:1111\n")

	fc := &FileConfig{}
	if err := fc.LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if fc.Pool.Workers != 9 {
		t.Errorf("expected workers 9 from env file, got %d", fc.Pool.Workers)
	}
	// 既に設定済みの環境変数は .env より優先される
	if fc.Server.Addr != ":5000" {
		t.Errorf("expected process env to win, got %q", fc.Server.Addr)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	fc := &FileConfig{}
	if err := fc.LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for missing env file")
	}
}

func TestLoadEnvDefaultFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	fc := &FileConfig{}
	if err := fc.LoadEnv(); err != nil {
		t.Errorf("expected missing default .env to be ignored, got %v", err)
	}
}

func TestLoadEnvDefaultFileMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HELLO-WORKERS=3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	fc := &FileConfig{}
	if err := fc.LoadEnv(); err == nil {
		t.Error("expected error for malformed default .env")
	}
}
