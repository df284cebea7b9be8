package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if len(c.Venues) == 0 {
		return errors.New("at least one venue is required")
	}
	seen := make(map[string]bool, len(c.Venues))
	for i := range c.Venues {
		if err := c.Venues[i].validate(fmt.Sprintf("venues[%d]", i)); err != nil {
			return err
		}
		if seen[c.Venues[i].Name] {
			return fmt.Errorf("duplicate venue name %q", c.Venues[i].Name)
		}
		seen[c.Venues[i].Name] = true
	}

	if err := c.Database.Timescale.validate("database.timescale"); err != nil {
		return err
	}

	if c.Writer.BatchSize < 1 {
		return errors.New("writer.batch_size must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (v *VenueConfig) validate(prefix string) error {
	if v.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if v.URL == "" {
		return fmt.Errorf("%s.url is required", prefix)
	}
	if len(v.Pairs) == 0 {
		return fmt.Errorf("%s.pairs must list at least one pair", prefix)
	}
	if v.ReconnectMultiplier < 1.0 {
		return fmt.Errorf("%s.reconnect_multiplier must be >= 1.0", prefix)
	}
	if v.ReconnectMaxDelay < v.ReconnectBaseDelay {
		return fmt.Errorf("%s.reconnect_max_delay (%v) cannot be below reconnect_base_delay (%v)",
			prefix, v.ReconnectMaxDelay, v.ReconnectBaseDelay)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
