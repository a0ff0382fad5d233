// Package logger provides a small levelled logger shared by the pool,
// the front end and the binary.
//
// Each entry carries a timestamp, a level, an optional scope tag naming the
// component that emitted it (for example "worker-2" or "server"), and a
// printf-formatted message.
//
//	logger.Info("", "pool started with %d workers", n)
//	logger.Error("worker-2", "job panicked: %v", r)
//
// Levels are ordered Debug < Info < Warn < Error; entries below the
// configured level are dropped. ParseLevel maps config strings onto levels.
//
// All methods are safe for concurrent use.
package logger
