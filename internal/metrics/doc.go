// Package metrics collects job statistics for the worker pool.
//
// Metrics implements worker.Observer, so it can be handed straight to
// worker.NewPoolWithConfig. It counts submitted, rejected, completed and
// panicked jobs, tracks the number of jobs in flight, and keeps a bounded
// sample of execution times for P99.
//
// # Basic Usage
//
//	m := metrics.New()
//	pool, err := worker.NewPoolWithConfig(worker.PoolConfig{
//	    NumWorkers: 4,
//	    Observer:   m,
//	})
//
//	snap := m.Snapshot()
//	fmt.Printf("completed: %d, p99: %v\n", snap.Completed, snap.P99Latency)
//
// # Prometheus
//
// Register exposes the same counters as hello_pool_* collectors:
//
//	reg := prometheus.NewRegistry()
//	if err := m.Register(reg); err != nil {
//	    return err
//	}
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Thread Safety
//
// All methods use atomic counters or an internal lock and are safe for
// concurrent use by every worker.
package metrics
