package cliconfig

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all env vars",
			envVars: map[string]string{
				"FLYWEIGHT_DRIVER":          "redis",
				"FLYWEIGHT_PREFIX":          "env",
				"FLYWEIGHT_MEMO":            "1",
				"FLYWEIGHT_LOG_LEVEL":       "debug",
				"FLYWEIGHT_FILE_DIR":        "/env/dir",
				"FLYWEIGHT_REDIS_ADDR":      "redis:6379",
				"FLYWEIGHT_REDIS_PASSWORD":  "secret",
				"FLYWEIGHT_REDIS_DB":        "2",
				"FLYWEIGHT_SQL_DRIVER":      "pgx",
				"FLYWEIGHT_SQL_DSN":         "postgres://x",
				"FLYWEIGHT_SQL_TABLE":       "shapes_tbl",
				"FLYWEIGHT_NATS_URL":        "nats://nats:4222",
				"FLYWEIGHT_NATS_BUCKET":     "bkt",
				"FLYWEIGHT_DYNAMO_ENDPOINT": "http://dynamo:8000",
				"FLYWEIGHT_DYNAMO_REGION":   "eu-west-1",
				"FLYWEIGHT_DYNAMO_TABLE":    "dyn_tbl",
			},
			changed: map[string]bool{},
			expected: Config{
				Driver:         "redis",
				Prefix:         "env",
				Memo:           true,
				LogLevel:       "debug",
				FileDir:        "/env/dir",
				RedisAddr:      "redis:6379",
				RedisPassword:  "secret",
				RedisDB:        2,
				SQLDriver:      "pgx",
				SQLDSN:         "postgres://x",
				SQLTable:       "shapes_tbl",
				NATSURL:        "nats://nats:4222",
				NATSBucket:     "bkt",
				DynamoEndpoint: "http://dynamo:8000",
				DynamoRegion:   "eu-west-1",
				DynamoTable:    "dyn_tbl",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"FLYWEIGHT_DRIVER": "nats",
				"FLYWEIGHT_PREFIX": "env",
			},
			changed:  map[string]bool{"driver": true},
			initial:  Config{Driver: "file"},
			expected: Config{Driver: "file", Prefix: "env"},
		},
		{
			name:     "empty values keep current config",
			envVars:  map[string]string{"FLYWEIGHT_PREFIX": ""},
			changed:  map[string]bool{},
			initial:  Config{Prefix: "kept"},
			expected: Config{Prefix: "kept"},
		},
		{
			name:    "returns error for invalid redis db",
			envVars: map[string]string{"FLYWEIGHT_REDIS_DB": "two"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.expected, cfg); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
