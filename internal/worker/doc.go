// Package worker provides a fixed-size goroutine pool for fire-and-forget jobs.
//
// A Pool owns a fixed number of Workers and the producer side of a shared,
// unbounded FIFO Queue. Submit never blocks; each job is handed to exactly
// one worker and run once. Workers wait on a condition variable, so idle
// workers consume no CPU.
//
// # Basic Usage
//
//	pool, err := worker.NewPool(4) // 4 workers
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	for i := 0; i < 100; i++ {
//	    if err := pool.Submit(func() {
//	        // do work
//	    }); err != nil {
//	        // worker.ErrPoolShutDown
//	    }
//	}
//
// A pool size below one is refused with ErrInvalidPoolSize.
//
// # Panics
//
// A job that panics is recovered at the worker boundary and logged with its
// stack. The worker keeps serving the queue. A job that calls runtime.Goexit
// is logged the same way and the worker's goroutine is replaced, so the
// pool never loses a worker to a misbehaving job.
//
// # Graceful Shutdown
//
// Shutdown (or Close) closes the queue and waits for every worker to exit.
// Jobs accepted before shutdown began are drained: workers keep dequeuing
// until the queue is both closed and empty. Submit after shutdown returns
// ErrPoolShutDown and the job does not run.
//
// Shutdown must not be called from inside a job: it waits for every worker,
// including the one running the caller, and would never return. A job that
// needs to stop the pool should start Shutdown on a new goroutine.
package worker
