package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-feedd
  az: us-east-1a
venues:
  - name: coinbase
    url: wss://ws-feed.exchange.coinbase.com
    pairs: [BTC-USD, ETH-USD]
database:
  timescale:
    host: localhost
    port: 5432
    name: test_ts
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-feedd" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-feedd")
	}
	if len(cfg.Venues) != 1 || cfg.Venues[0].Name != "coinbase" {
		t.Fatalf("Venues = %+v, want one coinbase entry", cfg.Venues)
	}
	if got := cfg.Venues[0].Pairs; len(got) != 2 || got[0] != "BTC-USD" {
		t.Errorf("Venues[0].Pairs = %v, want [BTC-USD ETH-USD]", got)
	}
	if cfg.Database.Timescale.Host != "localhost" {
		t.Errorf("Database.Timescale.Host = %q, want %q", cfg.Database.Timescale.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-feedd
database:
  timescale:
    host: localhost
    name: test_ts
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Timescale.Password != "secret123" {
		t.Errorf("Database.Timescale.Password = %q, want %q", cfg.Database.Timescale.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-feedd
venues:
  - name: kraken
    url: wss://ws.kraken.com/v2
    pairs: [BTC/USD]
database:
  timescale:
    host: localhost
    name: test_ts
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	v := cfg.Venues[0]
	if v.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("ReconnectBaseDelay = %v, want default %v", v.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
	if v.ReconnectMultiplier != DefaultReconnectMultiplier {
		t.Errorf("ReconnectMultiplier = %v, want default %v", v.ReconnectMultiplier, DefaultReconnectMultiplier)
	}
	if v.BreakerFailureThreshold != DefaultBreakerFailureThreshold {
		t.Errorf("BreakerFailureThreshold = %d, want default %d", v.BreakerFailureThreshold, DefaultBreakerFailureThreshold)
	}
	if cfg.Database.Timescale.Port != DefaultDBPort {
		t.Errorf("Database.Timescale.Port = %d, want default %d", cfg.Database.Timescale.Port, DefaultDBPort)
	}
	if cfg.Database.Timescale.MaxConns != DefaultMaxConns {
		t.Errorf("Database.Timescale.MaxConns = %d, want default %d", cfg.Database.Timescale.MaxConns, DefaultMaxConns)
	}
	if cfg.Writer.BatchSize != DefaultBatchSize {
		t.Errorf("Writer.BatchSize = %d, want default %d", cfg.Writer.BatchSize, DefaultBatchSize)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, DefaultLogLevel)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestValidate(t *testing.T) {
	validDB := DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2}
	validVenue := VenueConfig{
		Name: "coinbase", URL: "wss://example.com", Pairs: []string{"BTC-USD"},
		ReconnectBaseDelay: time.Second, ReconnectMultiplier: 2.0, ReconnectMaxDelay: time.Minute,
	}

	tests := []struct {
		name    string
		cfg     FeedConfig
		wantErr string
	}{
		{
			name:    "missing instance id",
			cfg:     FeedConfig{},
			wantErr: "instance.id is required",
		},
		{
			name: "no venues",
			cfg: FeedConfig{
				Instance: InstanceConfig{ID: "test"},
			},
			wantErr: "at least one venue is required",
		},
		{
			name: "venue without pairs",
			cfg: FeedConfig{
				Instance: InstanceConfig{ID: "test"},
				Venues: []VenueConfig{{
					Name: "coinbase", URL: "wss://example.com",
					ReconnectMultiplier: 2.0, ReconnectMaxDelay: time.Minute,
				}},
			},
			wantErr: "venues[0].pairs must list at least one pair",
		},
		{
			name: "duplicate venue names",
			cfg: FeedConfig{
				Instance: InstanceConfig{ID: "test"},
				Venues:   []VenueConfig{validVenue, validVenue},
			},
			wantErr: `duplicate venue name "coinbase"`,
		},
		{
			name: "missing timescale password",
			cfg: FeedConfig{
				Instance: InstanceConfig{ID: "test"},
				Venues:   []VenueConfig{validVenue},
				Database: DatabaseConfig{
					Timescale: DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 10},
				},
			},
			wantErr: "database.timescale.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			cfg: FeedConfig{
				Instance: InstanceConfig{ID: "test"},
				Venues:   []VenueConfig{validVenue},
				Database: DatabaseConfig{
					Timescale: DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10},
				},
			},
			wantErr: "database.timescale.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name: "valid config",
			cfg: FeedConfig{
				Instance: InstanceConfig{ID: "test"},
				Venues:   []VenueConfig{validVenue},
				Database: DatabaseConfig{Timescale: validDB},
				Writer:   WriterConfig{BatchSize: 500, FlushInterval: time.Second},
				Metrics:  MetricsConfig{Port: 9090},
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
