// Package main is the entry point for hello-pool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"hello-pool/internal/config"
	"hello-pool/internal/logger"
	"hello-pool/internal/metrics"
	"hello-pool/internal/server"
	"hello-pool/internal/worker"
)

var (
	version = "dev"
)

// options はコマンドラインフラグの値
type options struct {
	configFile  string
	envFile     string
	addr        string
	workers     int
	docRoot     string
	logLevel    string
	metricsAddr string
}

func main() {
	var opts options
	showVersion := flag.Bool("version", false, "バージョンを表示")
	flag.StringVar(&opts.configFile, "config", "", "設定ファイルパス (YAML/JSON)")
	flag.StringVar(&opts.envFile, "env", "", ".env ファイルパス（省略時はカレントの .env があれば読む）")
	flag.StringVar(&opts.addr, "addr", "", "待ち受けアドレス (例: 127.0.0.1:7878)")
	flag.IntVar(&opts.workers, "workers", 0, "ワーカー数")
	flag.StringVar(&opts.docRoot, "docroot", "", "公開ディレクトリ")
	flag.StringVar(&opts.logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Prometheus メトリクスの待ち受けアドレス (例: :9090)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `hello-pool - Fixed-size worker pool behind a tiny TCP server

Usage:
  hello-pool [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # デフォルト設定で起動 (127.0.0.1:7878, 5 workers)
  hello-pool

  # 設定ファイルから起動
  hello-pool --config hello-pool.yaml

  # フラグでカスタマイズ
  hello-pool --workers 8 --addr :8080 --metrics-addr :9090
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("hello-pool version %s\n", version)
		return
	}

	cfg, err := buildConfig(opts)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	if err := run(cfg); err != nil {
		logger.Error("", "サーバーエラー: %v", err)
		os.Exit(1)
	}
}

// buildConfig は設定ファイル、環境変数、フラグの順に設定を重ねる
func buildConfig(opts options) (config.Config, error) {
	fileConfig := &config.FileConfig{}
	if opts.configFile != "" {
		loaded, err := config.LoadFile(opts.configFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		fileConfig = loaded
	}

	var envFiles []string
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}
	if err := fileConfig.LoadEnv(envFiles...); err != nil {
		return config.Config{}, err
	}

	// フラグでオーバーライド
	if opts.addr != "" {
		fileConfig.Server.Addr = opts.addr
	}
	if opts.workers != 0 {
		fileConfig.Pool.Workers = opts.workers
	}
	if opts.docRoot != "" {
		fileConfig.Server.DocRoot = opts.docRoot
	}
	if opts.logLevel != "" {
		fileConfig.Log.Level = opts.logLevel
	}
	if opts.metricsAddr != "" {
		fileConfig.Metrics.Addr = opts.metricsAddr
	}

	if err := fileConfig.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("設定検証エラー: %w", err)
	}
	return fileConfig.ToConfig()
}

// run はプールとフロントエンドを起動し、シグナルを受けるまで動かす
func run(cfg config.Config) error {
	fmt.Println("hello-pool - Fixed-size worker pool")
	fmt.Println("===================================")
	fmt.Printf("Listen: %s, Workers: %d, DocRoot: %s\n", cfg.Server.Addr, cfg.Workers, cfg.Server.DocRoot)
	fmt.Println("===================================")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	pool, err := worker.NewPoolWithConfig(worker.PoolConfig{
		NumWorkers: cfg.Workers,
		Observer:   m,
	})
	if err != nil {
		return err
	}
	defer func() {
		pool.Shutdown()
		snap := m.Snapshot()
		logger.Info("", "Jobs: %d submitted, %d completed, %d panicked, %d rejected (avg %v, p99 %v)",
			snap.Submitted, snap.Completed, snap.Panicked, snap.Rejected, snap.AverageLatency, snap.P99Latency)
	}()

	srv := server.New(cfg.Server, pool)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, m)
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		fmt.Println("\n中断シグナルを受信、処理中のジョブを待っています...")
	}
	return err
}

// serveMetrics は /metrics を HTTP で公開する
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics", "Serving metrics on http://%s/metrics", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
