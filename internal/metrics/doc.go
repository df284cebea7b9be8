// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection state and reconnect counts per venue
//   - Price update throughput
//   - Buffer overflow counts
//   - Writer flush latency and insert counts
package metrics
