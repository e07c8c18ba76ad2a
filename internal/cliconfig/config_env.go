package cliconfig

import "os"

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "FLYWEIGHT_"

// ApplyEnvConfig applies FLYWEIGHT_* environment variables to cfg.
// Env overrides file config but never a flag the user set explicitly.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("driver", env("DRIVER"), &cfg.Driver)
	s.setString("prefix", env("PREFIX"), &cfg.Prefix)
	s.setBoolFromString("memo", env("MEMO"), &cfg.Memo)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("file-dir", env("FILE_DIR"), &cfg.FileDir)

	s.setString("redis-addr", env("REDIS_ADDR"), &cfg.RedisAddr)
	s.setString("redis-password", env("REDIS_PASSWORD"), &cfg.RedisPassword)
	if err := s.setIntFromString("redis-db", env("REDIS_DB"), &cfg.RedisDB); err != nil {
		return err
	}

	s.setString("sql-driver", env("SQL_DRIVER"), &cfg.SQLDriver)
	s.setString("sql-dsn", env("SQL_DSN"), &cfg.SQLDSN)
	s.setString("sql-table", env("SQL_TABLE"), &cfg.SQLTable)

	s.setString("nats-url", env("NATS_URL"), &cfg.NATSURL)
	s.setString("nats-bucket", env("NATS_BUCKET"), &cfg.NATSBucket)

	s.setString("dynamo-endpoint", env("DYNAMO_ENDPOINT"), &cfg.DynamoEndpoint)
	s.setString("dynamo-region", env("DYNAMO_REGION"), &cfg.DynamoRegion)
	s.setString("dynamo-table", env("DYNAMO_TABLE"), &cfg.DynamoTable)
	return nil
}
