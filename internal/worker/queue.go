package worker

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

var (
	// ErrQueueClosed はクローズ済みのキューへ投入したときに返る
	ErrQueueClosed = errors.New("worker: queue closed")
	// ErrNilJob は nil のジョブを投入したときに返る
	ErrNilJob = errors.New("worker: nil job")
)

// Job はワーカーが実行するジョブを表す
// 一度だけ呼ばれ、戻り値は投入側に返らない
type Job func()

// Queue は複数の投入者と複数のワーカーで共有する無制限の FIFO キュー
// 保留中のジョブとクローズフラグは mu でまとめて保護する
type Queue struct {
	mu      sync.Mutex
	nonIdle *sync.Cond
	pending *queue.Queue
	closed  bool
}

// NewQueue は空のオープン状態のキューを作成する
func NewQueue() *Queue {
	q := &Queue{pending: queue.New()}
	q.nonIdle = sync.NewCond(&q.mu)
	return q
}

// Enqueue はジョブを末尾に追加する。ブロックしない
func (q *Queue) Enqueue(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.pending.Add(job)
	q.nonIdle.Signal()
	return nil
}

// Dequeue は先頭のジョブを取り出す
// ジョブが無ければ届くまで待つ。クローズ済みかつ空なら (nil, false) を返す
func (q *Queue) Dequeue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending.Length() == 0 && !q.closed {
		q.nonIdle.Wait()
	}
	if q.pending.Length() == 0 {
		return nil, false
	}
	return q.pending.Remove().(Job), true
}

// Close はキューをクローズし、待機中の全ワーカーを起こす
// 二回目以降の呼び出しは何もしない
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.nonIdle.Broadcast()
}

// Closed はクローズ済みかどうかを返す
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len は保留中のジョブ数を返す
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Length()
}
