// Package writer implements the batch writer persisting price updates.
//
// The writer drains a connector's price buffer, accumulates rows, and flushes
// them to the price_updates hypertable in TimescaleDB when the batch fills or
// the flush interval elapses.
//
// Inserts are append-only (never update) and deduplicated by the
// (exchange, symbol, exchange_ts) key via ON CONFLICT DO NOTHING.
package writer
