package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDBPort                  = 5432
	DefaultDBSSLMode               = "prefer"
	DefaultMaxConns                = 10
	DefaultMinConns                = 2
	DefaultReconnectBaseDelay      = 1 * time.Second
	DefaultReconnectMultiplier     = 2.0
	DefaultReconnectMaxDelay       = 60 * time.Second
	DefaultBreakerFailureThreshold = 5
	DefaultBreakerResetTimeout     = 30 * time.Second
	DefaultHandshakeTimeout        = 10 * time.Second
	DefaultWriteTimeout            = 5 * time.Second
	DefaultReadTimeout             = 30 * time.Second
	DefaultBufferSize              = 100
	DefaultBatchSize               = 500
	DefaultFlushInterval           = 1 * time.Second
	DefaultLogLevel                = "info"
	DefaultLogMaxSizeMB            = 100
	DefaultLogMaxBackups           = 3
	DefaultLogMaxAgeDays           = 28
	DefaultMetricsPort             = 9090
	DefaultMetricsPath             = "/metrics"
)

func (c *FeedConfig) applyDefaults() {
	for i := range c.Venues {
		applyVenueDefaults(&c.Venues[i])
	}

	applyDBDefaults(&c.Database.Timescale)

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyVenueDefaults(v *VenueConfig) {
	if v.ReconnectBaseDelay == 0 {
		v.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if v.ReconnectMultiplier == 0 {
		v.ReconnectMultiplier = DefaultReconnectMultiplier
	}
	if v.ReconnectMaxDelay == 0 {
		v.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if v.BreakerFailureThreshold == 0 {
		v.BreakerFailureThreshold = DefaultBreakerFailureThreshold
	}
	if v.BreakerResetTimeout == 0 {
		v.BreakerResetTimeout = DefaultBreakerResetTimeout
	}
	if v.HandshakeTimeout == 0 {
		v.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if v.WriteTimeout == 0 {
		v.WriteTimeout = DefaultWriteTimeout
	}
	if v.ReadTimeout == 0 {
		v.ReadTimeout = DefaultReadTimeout
	}
	if v.BufferSize == 0 {
		v.BufferSize = DefaultBufferSize
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
