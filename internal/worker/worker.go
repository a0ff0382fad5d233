package worker

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"hello-pool/internal/logger"
)

// State はワーカーの状態
type State int32

const (
	StateRunning State = iota
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Observer はジョブのライフサイクルを受け取る
// 複数のワーカーから同時に呼ばれる
type Observer interface {
	JobSubmitted()
	JobRejected()
	JobStarted(workerID int)
	JobFinished(workerID int, elapsed time.Duration, panicked bool)
}

type nopObserver struct{}

func (nopObserver) JobSubmitted() {}
func (nopObserver) JobRejected() {}
func (nopObserver) JobStarted(int) {}
func (nopObserver) JobFinished(int, time.Duration, bool) {}

// Worker はキューからジョブを取り出して一つずつ実行するゴルーチン
type Worker struct {
	id       int
	scope    string
	queue    *Queue
	log      *logger.Logger
	observer Observer

	state    atomic.Int32
	executed atomic.Uint64
	panics   atomic.Uint64
	done     chan struct{}
}

// newWorker はワーカーを作成し、ゴルーチンを一つ起動する
func newWorker(id int, q *Queue, log *logger.Logger, observer Observer) *Worker {
	w := &Worker{
		id:       id,
		scope:    fmt.Sprintf("worker-%d", id),
		queue:    q,
		log:      log,
		observer: observer,
		done:     make(chan struct{}),
	}
	w.state.Store(int32(StateRunning))
	go w.run()
	return w
}

// run はキューがクローズされて空になるまでジョブを実行し続ける
func (w *Worker) run() {
	exited := true
	defer func() {
		if exited {
			// ジョブが runtime.Goexit を呼んだ。ゴルーチンを張り直してキューの処理を続ける
			go w.run()
			return
		}
		w.state.Store(int32(StateStopped))
		close(w.done)
	}()

	w.log.Debug(w.scope, "started")
	for {
		job, ok := w.queue.Dequeue()
		if !ok {
			w.log.Debug(w.scope, "stopped after %d jobs", w.executed.Load())
			exited = false
			return
		}
		w.execute(job)
	}
}

// execute はジョブを実行する。ジョブ内の panic はここで止める
func (w *Worker) execute(job Job) {
	w.observer.JobStarted(w.id)
	start := time.Now()
	returned := false

	defer func() {
		r := recover()
		switch {
		case r != nil:
			w.panics.Add(1)
			w.log.Error(w.scope, "job panicked: %v\n%s", r, debug.Stack())
		case !returned:
			w.panics.Add(1)
			w.log.Error(w.scope, "job called runtime.Goexit, restarting worker")
		}
		w.executed.Add(1)
		w.observer.JobFinished(w.id, time.Since(start), !returned)
	}()

	job()
	returned = true
}

// ID はワーカーの序数を返す
func (w *Worker) ID() int {
	return w.id
}

// State は現在の状態を返す
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Done はワーカーのゴルーチンが終了するとクローズされる
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Executed は実行したジョブ数（panic を含む）を返す
func (w *Worker) Executed() uint64 {
	return w.executed.Load()
}

// Panics は panic または runtime.Goexit で終わったジョブ数を返す
func (w *Worker) Panics() uint64 {
	return w.panics.Load()
}
