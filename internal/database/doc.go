// Package database provides connection pool management for TimescaleDB.
//
// The feed daemon keeps a single time-series database holding the
// price_updates hypertable written by the batch writer.
package database
