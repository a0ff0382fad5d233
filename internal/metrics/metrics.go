package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultMaxLatencySamples = 1000

// Config はメトリクスの設定
type Config struct {
	MaxLatencySamples int // P99 計算に使うサンプル数の上限
}

// Metrics はワーカープールのジョブ統計を収集する
// worker.Observer を実装する
type Metrics struct {
	submitted atomic.Uint64
	rejected  atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64
	inFlight  atomic.Int64
	totalNs   atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	latencies         []time.Duration
	maxLatencySamples int

	promSubmitted prometheus.Counter
	promRejected  prometheus.Counter
	promFinished  *prometheus.CounterVec
	promInFlight  prometheus.Gauge
	promLatency   prometheus.Histogram
}

// New はデフォルト設定でメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(Config{MaxLatencySamples: defaultMaxLatencySamples})
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	samples := config.MaxLatencySamples
	if samples <= 0 {
		samples = defaultMaxLatencySamples
	}
	return &Metrics{
		startTime:         time.Now(),
		latencies:         make([]time.Duration, 0, samples),
		maxLatencySamples: samples,

		promSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hello_pool",
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs accepted by the pool",
		}),
		promRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hello_pool",
			Name:      "jobs_rejected_total",
			Help:      "Total number of jobs refused because the pool was shut down",
		}),
		promFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hello_pool",
			Name:      "jobs_finished_total",
			Help:      "Total number of jobs that finished, by outcome",
		}, []string{"outcome"}),
		promInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hello_pool",
			Name:      "jobs_in_flight",
			Help:      "Number of jobs currently running on a worker",
		}),
		promLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hello_pool",
			Name:      "job_duration_seconds",
			Help:      "Histogram of job execution time",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register は Prometheus のレジストリにコレクタを登録する
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.promSubmitted,
		m.promRejected,
		m.promFinished,
		m.promInFlight,
		m.promLatency,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// JobSubmitted は受け付けたジョブを記録する
func (m *Metrics) JobSubmitted() {
	m.submitted.Add(1)
	m.promSubmitted.Inc()
}

// JobRejected は拒否したジョブを記録する
func (m *Metrics) JobRejected() {
	m.rejected.Add(1)
	m.promRejected.Inc()
}

// JobStarted はジョブの実行開始を記録する
func (m *Metrics) JobStarted(int) {
	m.inFlight.Add(1)
	m.promInFlight.Inc()
}

// JobFinished はジョブの実行終了を記録する
func (m *Metrics) JobFinished(_ int, elapsed time.Duration, panicked bool) {
	m.inFlight.Add(-1)
	m.promInFlight.Dec()
	m.totalNs.Add(uint64(elapsed.Nanoseconds()))
	m.promLatency.Observe(elapsed.Seconds())

	if panicked {
		m.panicked.Add(1)
		m.promFinished.WithLabelValues("panic").Inc()
	} else {
		m.completed.Add(1)
		m.promFinished.WithLabelValues("ok").Inc()
	}

	m.mu.Lock()
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, elapsed)
	}
	m.mu.Unlock()
}

// Submitted は受け付けたジョブ数を返す
func (m *Metrics) Submitted() uint64 {
	return m.submitted.Load()
}

// Rejected は拒否したジョブ数を返す
func (m *Metrics) Rejected() uint64 {
	return m.rejected.Load()
}

// Completed は正常終了したジョブ数を返す
func (m *Metrics) Completed() uint64 {
	return m.completed.Load()
}

// Panicked は panic で終了したジョブ数を返す
func (m *Metrics) Panicked() uint64 {
	return m.panicked.Load()
}

// InFlight は実行中のジョブ数を返す
func (m *Metrics) InFlight() int64 {
	return m.inFlight.Load()
}

// Finished は終了したジョブ数を返す（panic を含む）
func (m *Metrics) Finished() uint64 {
	return m.completed.Load() + m.panicked.Load()
}

// AverageLatency は平均実行時間を返す
func (m *Metrics) AverageLatency() time.Duration {
	finished := m.Finished()
	if finished == 0 {
		return 0
	}
	return time.Duration(m.totalNs.Load() / finished)
}

// P99Latency はP99実行時間を返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Throughput は開始からの平均ジョブ/秒を返す
func (m *Metrics) Throughput() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.Finished()) / elapsed
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	Submitted      uint64
	Rejected       uint64
	Completed      uint64
	Panicked       uint64
	InFlight       int64
	Throughput     float64
	AverageLatency time.Duration
	P99Latency     time.Duration
	Elapsed        time.Duration
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Submitted:      m.Submitted(),
		Rejected:       m.Rejected(),
		Completed:      m.Completed(),
		Panicked:       m.Panicked(),
		InFlight:       m.InFlight(),
		Throughput:     m.Throughput(),
		AverageLatency: m.AverageLatency(),
		P99Latency:     m.P99Latency(),
		Elapsed:        time.Since(m.startTime),
	}
}
