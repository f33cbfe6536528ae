// Package analytics records the outcome of conversion passes.
//
// Recorders implement the converter's Analytics and PerformanceMonitor ports:
//
//   - LogRecorder writes every outcome to the structured log
//   - MemoryRecorder keeps counters in process, used by the HTTP API
//   - RedisRecorder keeps shared counters in a Redis hash and publishes
//     each pass on a pub/sub channel
//   - Metrics exposes Prometheus counters and histograms
//
// Multi fans a call out to several recorders.
package analytics
