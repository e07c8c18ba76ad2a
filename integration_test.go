//go:build integration

package flyweight

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStoreContractIntegration(t *testing.T) {
	fixtures := []struct {
		name string
		new  func(t *testing.T) Store
	}{
		{"redis", newRedisIntegrationStore},
		{"nats", newNATSIntegrationStore},
		{"dynamodb", newDynamoIntegrationStore},
		{"sql_postgres", newPostgresIntegrationStore},
		{"sql_mysql", newMySQLIntegrationStore},
	}
	for _, fx := range fixtures {
		if !integrationDriverEnabled(fx.name) {
			continue
		}
		t.Run(fx.name, func(t *testing.T) {
			store := fx.new(t)
			runStoreContract(t, store)
			if fx.name != "nats" {
				runConcurrentIncr(t, store, 8, 25)
			}
		})
	}
}

func TestFactorySharesRegistryAcrossProcessesIntegration(t *testing.T) {
	if !integrationDriverEnabled("redis") {
		t.Skip("redis not selected")
	}
	ctx := context.Background()
	store := newRedisIntegrationStore(t)
	reg := NewRegistry(store)
	if err := reg.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	first := &recordingObserver{}
	second := &recordingObserver{}
	NewFactory(WithRegistry(reg), WithObserver(first)).Must("Red")
	NewFactory(WithRegistry(NewRegistry(store)), WithObserver(second)).Must("Red")

	if first.events[0].hit || !second.events[0].hit {
		t.Fatalf("expected only the first factory to write the record: %+v / %+v", first.events, second.events)
	}
	st, ok, err := reg.Stats(ctx, "Red")
	if err != nil || !ok || st.Requests != 2 {
		t.Fatalf("unexpected stats %+v ok=%v err=%v", st, ok, err)
	}
}

func newRedisIntegrationStore(t *testing.T) Store {
	ctx := context.Background()
	addr := startIntegrationContainer(t, ctx, testcontainers.ContainerRequest{
		Image:        "redis:7-bookworm",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}, "6379/tcp")
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(ctx, client, WithPrefix("itest"))
}

func newNATSIntegrationStore(t *testing.T) Store {
	ctx := context.Background()
	addr := startIntegrationContainer(t, ctx, testcontainers.ContainerRequest{
		Image:        "nats:2",
		Cmd:          []string{"-js"},
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
	}, "4222/tcp")
	nc, err := nats.Connect("nats://" + addr)
	if err != nil {
		t.Fatalf("connect nats: %v", err)
	}
	t.Cleanup(nc.Close)
	js, err := nc.JetStream()
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}
	kv, err := js.CreateKeyValue(&nats.KeyValueConfig{Bucket: "itest"})
	if err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	return NewNATSStore(ctx, kv, WithPrefix("itest"))
}

func newDynamoIntegrationStore(t *testing.T) Store {
	ctx := context.Background()
	addr := startIntegrationContainer(t, ctx, testcontainers.ContainerRequest{
		Image:        "amazon/dynamodb-local:latest",
		ExposedPorts: []string{"8000/tcp"},
		WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(45 * time.Second),
	}, "8000/tcp")
	store := NewStoreWith(ctx, DriverDynamo,
		WithDynamoEndpoint("http://"+addr),
		WithDynamoRegion("us-east-1"),
		WithPrefix("itest"),
	)
	if err := Ready(store); err != nil {
		t.Fatalf("create dynamo store: %v", err)
	}
	return store
}

func newPostgresIntegrationStore(t *testing.T) Store {
	ctx := context.Background()
	addr := startIntegrationContainer(t, ctx, testcontainers.ContainerRequest{
		Image:        "postgres:16-bookworm",
		Env:          map[string]string{"POSTGRES_PASSWORD": "pass", "POSTGRES_USER": "user", "POSTGRES_DB": "app"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}, "5432/tcp")
	return openIntegrationSQL(t, "pgx", fmt.Sprintf("postgres://user:pass@%s/app?sslmode=disable", addr))
}

func newMySQLIntegrationStore(t *testing.T) Store {
	ctx := context.Background()
	addr := startIntegrationContainer(t, ctx, testcontainers.ContainerRequest{
		Image: "mysql:8",
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "pass",
			"MYSQL_DATABASE":      "app",
			"MYSQL_USER":          "user",
			"MYSQL_PASSWORD":      "pass",
		},
		ExposedPorts: []string{"3306/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("3306/tcp").WithStartupTimeout(90*time.Second),
			wait.ForLog("ready for connections").WithOccurrence(2).WithStartupTimeout(90*time.Second),
		),
	}, "3306/tcp")
	return openIntegrationSQL(t, "mysql", fmt.Sprintf("user:pass@tcp(%s)/app?parseTime=true", addr))
}

// openIntegrationSQL retries until the server accepts connections; the
// listening port opens before the database is ready.
func openIntegrationSQL(t *testing.T, driverName, dsn string) Store {
	t.Helper()
	ctx := context.Background()
	var err error
	for attempt := 0; attempt < 30; attempt++ {
		store := NewSQLStore(ctx, driverName, dsn, WithPrefix("itest"))
		if err = Ready(store); err == nil {
			if c, ok := store.(*sqlStore); ok {
				t.Cleanup(func() { _ = c.Close() })
			}
			return store
		}
		time.Sleep(time.Second)
	}
	t.Fatalf("open %s store: %v", driverName, err)
	return nil
}

func startIntegrationContainer(t *testing.T, ctx context.Context, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s container: %v", req.Image, err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(shutdownCtx)
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("%s container host: %v", req.Image, err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("%s container port: %v", req.Image, err)
	}
	return net.JoinHostPort(host, mapped.Port())
}

func integrationDriverEnabled(name string) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv("INTEGRATION_DRIVER")))
	if value == "" || value == "all" {
		return true
	}
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == name {
			return true
		}
	}
	return false
}
