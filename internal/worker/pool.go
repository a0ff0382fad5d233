package worker

import (
	"errors"
	"sync"

	"hello-pool/internal/logger"
)

var (
	// ErrInvalidPoolSize はワーカー数が 1 未満のときに返る
	ErrInvalidPoolSize = errors.New("worker: pool size must be positive")
	// ErrPoolShutDown はシャットダウン開始後に Submit したときに返る
	ErrPoolShutDown = errors.New("worker: pool shut down")
)

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	NumWorkers int            // ワーカー数（1以上）
	Observer   Observer       // nil ならメトリクスを記録しない
	Logger     *logger.Logger // nil なら logger.Default
}

// Pool は固定数のワーカーとキューの投入側を所有する
type Pool struct {
	queue    *Queue
	workers  []*Worker
	observer Observer
	log      *logger.Logger

	// mu は stopping とキューのクローズを Submit に対して直列化する
	mu        sync.RWMutex
	stopping  bool
	closeOnce sync.Once
	stopped   chan struct{}
}

// NewPool は numWorkers 個のワーカーを持つプールを作成する
func NewPool(numWorkers int) (*Pool, error) {
	return NewPoolWithConfig(PoolConfig{NumWorkers: numWorkers})
}

// MustNewPool は NewPool と同じだが、失敗時は panic する
func MustNewPool(numWorkers int) *Pool {
	p, err := NewPool(numWorkers)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPoolWithConfig は設定を指定してプールを作成し、全ワーカーを起動する
func NewPoolWithConfig(config PoolConfig) (*Pool, error) {
	if config.NumWorkers <= 0 {
		return nil, ErrInvalidPoolSize
	}
	observer := config.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	log := config.Logger
	if log == nil {
		log = logger.Default
	}

	p := &Pool{
		queue:    NewQueue(),
		workers:  make([]*Worker, config.NumWorkers),
		observer: observer,
		log:      log,
		stopped:  make(chan struct{}),
	}
	for i := range config.NumWorkers {
		p.workers[i] = newWorker(i, p.queue, log, observer)
	}

	log.Info("", "WorkerPool started with %d workers", config.NumWorkers)
	return p, nil
}

// Submit はジョブをキューに投入する。ブロックせず、結果も返さない
// JobSubmitted は投入前に通知されるので、ワーカー側の JobStarted より必ず先に届く
func (p *Pool) Submit(job Job) error {
	if job == nil {
		p.observer.JobRejected()
		return ErrNilJob
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopping {
		p.observer.JobRejected()
		return ErrPoolShutDown
	}

	p.observer.JobSubmitted()
	if err := p.queue.Enqueue(job); err != nil {
		// stopping が偽の間はキューはクローズされないので、ここには来ない
		p.observer.JobRejected()
		return err
	}
	return nil
}

// Shutdown はキューをクローズし、全ワーカーの終了を待つ
// 投入済みのジョブは全て実行されてから戻る。複数回呼んでもよい
// ジョブの中から呼ぶと自分自身の終了を待つことになりデッドロックする。その場合は別のゴルーチンで呼ぶ
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.stopping = true
		pending := p.queue.Len()
		p.queue.Close()
		p.mu.Unlock()
		p.log.Info("", "WorkerPool shutting down, draining %d pending jobs", pending)

		for _, w := range p.workers {
			<-w.Done()
		}
		close(p.stopped)

		p.log.Info("", "WorkerPool stopped")
	})
	<-p.stopped
}

// Close は io.Closer 用の Shutdown
func (p *Pool) Close() error {
	p.Shutdown()
	return nil
}

// NumWorkers はワーカー数を返す
func (p *Pool) NumWorkers() int {
	return len(p.workers)
}

// LiveWorkers は実行中のワーカー数を返す
func (p *Pool) LiveWorkers() int {
	n := 0
	for _, w := range p.workers {
		if w.State() == StateRunning {
			n++
		}
	}
	return n
}

// Workers はワーカーの一覧を返す（診断用）
func (p *Pool) Workers() []*Worker {
	out := make([]*Worker, len(p.workers))
	copy(out, p.workers)
	return out
}

// QueueSize は現在のキューサイズを返す
func (p *Pool) QueueSize() int {
	return p.queue.Len()
}
