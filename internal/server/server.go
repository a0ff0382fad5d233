package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/netutil"

	"hello-pool/internal/logger"
	"hello-pool/internal/worker"
)

// リクエストは先頭 1024 バイトだけ読む
const requestBufferSize = 1024

// Config はフロントエンドの設定
type Config struct {
	Addr         string
	DocRoot      string
	MaxConns     int // 同時接続数の上限（0で無制限）
	SleepDelay   time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:7878",
		DocRoot:      "public",
		SleepDelay:   5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Submitter はジョブの投入先。*worker.Pool が実装する
type Submitter interface {
	Submit(job worker.Job) error
}

// Server は接続ごとにジョブを一つプールへ投入する TCP フロントエンド
type Server struct {
	config Config
	pool   Submitter
	docs   fs.FS

	accepted atomic.Uint64
	served   atomic.Uint64
	rejected atomic.Uint64
}

// New は DocRoot を公開ディレクトリとするサーバーを作成する
func New(config Config, pool Submitter) *Server {
	return NewWithFS(config, pool, os.DirFS(config.DocRoot))
}

// NewWithFS は任意のファイルシステムから本文を読むサーバーを作成する
func NewWithFS(config Config, pool Submitter, docs fs.FS) *Server {
	return &Server{
		config: config,
		pool:   pool,
		docs:   docs,
	}
}

// ListenAndServe は Addr で待ち受け、ctx が終了するまで接続を受け付ける
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve は ln で接続を受け付ける。ctx が終了すると ln を閉じて nil を返す
// 受け付け済みの接続はプール側で処理が続く
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.config.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConns)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	logger.Info("server", "Listening on %s", ln.Addr())

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Info("server", "Listener closed")
				return nil
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(backoff*2, time.Second)
			}
			logger.Warn("server", "Accept error: %v; retrying in %v", err, backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0
		s.accepted.Add(1)
		s.dispatch(conn)
	}
}

// dispatch は接続をジョブとしてプールに投入する
func (s *Server) dispatch(conn net.Conn) {
	id := uuid.NewString()
	if err := s.pool.Submit(func() { s.handle(id, conn) }); err != nil {
		s.rejected.Add(1)
		logger.Warn("server", "Dropping connection from %s: %v", conn.RemoteAddr(), err)
		_ = conn.Close()
	}
}

// handle はリクエストを読み、応答を書き込んで接続を閉じる
func (s *Server) handle(id string, conn net.Conn) {
	defer conn.Close()
	scope := "conn-" + id[:8]

	if s.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}
	buf := make([]byte, requestBufferSize)
	n, err := conn.Read(buf)
	if n == 0 {
		logger.Warn(scope, "Failed to read request from %s: %v", conn.RemoteAddr(), err)
		return
	}
	request := buf[:n]
	logger.Debug(scope, "Request: %q", requestLine(request))

	route := Match(request)
	if route.Sleep && s.config.SleepDelay > 0 {
		time.Sleep(s.config.SleepDelay)
	}

	status := route.Status
	body, err := fs.ReadFile(s.docs, route.Page)
	if err != nil {
		logger.Error(scope, "Failed to read %s: %v", route.Page, err)
		status = StatusInternal
		body = nil
	}

	if s.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	if _, err := conn.Write(Response(status, body)); err != nil {
		logger.Warn(scope, "Failed to write response: %v", err)
		return
	}
	s.served.Add(1)
	logger.Info(scope, "%s -> %s (%d bytes)", requestLine(request), status, len(body))
}

// Response は応答メッセージを組み立てる
func Response(status string, body []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\r\nContent-Length: %d\r\n\r\n", status, len(body))
	b.Write(body)
	return b.Bytes()
}

// requestLine はリクエストの先頭行を返す
func requestLine(request []byte) string {
	if i := bytes.Index(request, []byte("\r\n")); i >= 0 {
		return string(request[:i])
	}
	return string(request)
}

// Accepted は受け付けた接続数を返す
func (s *Server) Accepted() uint64 {
	return s.accepted.Load()
}

// Served は応答を書き終えた接続数を返す
func (s *Server) Served() uint64 {
	return s.served.Load()
}

// Rejected はプールに投入できなかった接続数を返す
func (s *Server) Rejected() uint64 {
	return s.rejected.Load()
}
