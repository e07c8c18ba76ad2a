package cliconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goforj/flyweight"
)

// Config holds CLI configuration for the flyweight command.
type Config struct {
	Driver string
	Prefix string
	Memo   bool

	FileDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SQLDriver string
	SQLDSN    string
	SQLTable  string

	NATSURL    string
	NATSBucket string

	DynamoEndpoint string
	DynamoRegion   string
	DynamoTable    string

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Driver:     string(flyweight.DriverMemory),
		Prefix:     "shapes",
		RedisAddr:  "127.0.0.1:6379",
		SQLDriver:  "sqlite",
		NATSURL:    "nats://127.0.0.1:4222",
		NATSBucket: "flyweight",
		LogLevel:   "info",
	}
}

// Validate checks the configuration for errors and normalises values.
func (c *Config) Validate() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	driver, ok := flyweight.ParseDriver(c.Driver)
	if !ok {
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	c.Driver = string(driver)

	switch driver {
	case flyweight.DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required for the redis driver")
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("redis-db must not be negative")
		}
	case flyweight.DriverSQL:
		if c.SQLDriver == "" || c.SQLDSN == "" {
			return fmt.Errorf("sql-driver and sql-dsn are required for the sql driver")
		}
	case flyweight.DriverNATS:
		if c.NATSURL == "" || c.NATSBucket == "" {
			return fmt.Errorf("nats-url and nats-bucket are required for the nats driver")
		}
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	s.setInt(flag, i, dst)
	return nil
}
