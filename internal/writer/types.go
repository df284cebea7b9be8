package writer

import (
	"time"

	"github.com/shopspring/decimal"
)

// WriterConfig contains configuration for the batch writer.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 1 * time.Second,
	}
}

// priceRow represents a row to be inserted into the price_updates table.
type priceRow struct {
	ExchangeTs int64 // Microseconds
	ReceivedAt int64 // Microseconds
	Exchange   string
	Symbol     string
	Bid        decimal.Decimal
	Ask        decimal.Decimal
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}
