package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML tags. Store settings sit in their own tables.
type FileConfig struct {
	Driver   string `toml:"driver"`
	Prefix   string `toml:"prefix"`
	Memo     *bool  `toml:"memo"`
	LogLevel string `toml:"log_level"`

	File struct {
		Dir string `toml:"dir"`
	} `toml:"file"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	SQL struct {
		Driver string `toml:"driver"`
		DSN    string `toml:"dsn"`
		Table  string `toml:"table"`
	} `toml:"sql"`

	NATS struct {
		URL    string `toml:"url"`
		Bucket string `toml:"bucket"`
	} `toml:"nats"`

	Dynamo struct {
		Endpoint string `toml:"endpoint"`
		Region   string `toml:"region"`
		Table    string `toml:"table"`
	} `toml:"dynamodb"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.flyweight/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".flyweight", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("driver", fc.Driver, &cfg.Driver)
	s.setString("prefix", fc.Prefix, &cfg.Prefix)
	s.setBool("memo", fc.Memo, &cfg.Memo)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setString("file-dir", fc.File.Dir, &cfg.FileDir)

	s.setString("redis-addr", fc.Redis.Addr, &cfg.RedisAddr)
	s.setString("redis-password", fc.Redis.Password, &cfg.RedisPassword)
	s.setInt("redis-db", fc.Redis.DB, &cfg.RedisDB)

	s.setString("sql-driver", fc.SQL.Driver, &cfg.SQLDriver)
	s.setString("sql-dsn", fc.SQL.DSN, &cfg.SQLDSN)
	s.setString("sql-table", fc.SQL.Table, &cfg.SQLTable)

	s.setString("nats-url", fc.NATS.URL, &cfg.NATSURL)
	s.setString("nats-bucket", fc.NATS.Bucket, &cfg.NATSBucket)

	s.setString("dynamo-endpoint", fc.Dynamo.Endpoint, &cfg.DynamoEndpoint)
	s.setString("dynamo-region", fc.Dynamo.Region, &cfg.DynamoRegion)
	s.setString("dynamo-table", fc.Dynamo.Table, &cfg.DynamoTable)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
