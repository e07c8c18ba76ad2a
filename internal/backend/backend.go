// Package backend turns CLI configuration into a live registry store.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/goforj/flyweight"
	"github.com/goforj/flyweight/internal/cliconfig"
)

// CloseFunc releases connections opened for a store.
type CloseFunc func() error

func noopClose() error { return nil }

// Open builds the store selected by cfg and checks that it is usable.
// The returned CloseFunc is never nil.
func Open(ctx context.Context, cfg cliconfig.Config) (flyweight.Store, CloseFunc, error) {
	driver, ok := flyweight.ParseDriver(cfg.Driver)
	if !ok {
		return nil, noopClose, fmt.Errorf("unknown driver %q", cfg.Driver)
	}

	opts := []flyweight.StoreOption{flyweight.WithPrefix(cfg.Prefix)}
	closer := CloseFunc(noopClose)

	switch driver {
	case flyweight.DriverFile:
		opts = append(opts, flyweight.WithFileDir(cfg.FileDir))
	case flyweight.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noopClose, fmt.Errorf("connect redis: %w", err)
		}
		opts = append(opts, flyweight.WithRedisClient(client))
		closer = client.Close
	case flyweight.DriverSQL:
		opts = append(opts, flyweight.WithSQL(cfg.SQLDriver, cfg.SQLDSN, cfg.SQLTable))
	case flyweight.DriverNATS:
		kv, nc, err := openNATSBucket(cfg.NATSURL, cfg.NATSBucket)
		if err != nil {
			return nil, noopClose, err
		}
		opts = append(opts, flyweight.WithNATSKeyValue(kv))
		closer = func() error {
			nc.Close()
			return nil
		}
	case flyweight.DriverDynamo:
		opts = append(opts,
			flyweight.WithDynamoEndpoint(cfg.DynamoEndpoint),
			flyweight.WithDynamoRegion(cfg.DynamoRegion),
			flyweight.WithDynamoTable(cfg.DynamoTable),
		)
	}

	store := flyweight.NewStoreWith(ctx, driver, opts...)
	if err := flyweight.Ready(store); err != nil {
		_ = closer()
		return nil, noopClose, fmt.Errorf("open %s store: %w", driver, err)
	}
	if cfg.Memo {
		store = flyweight.NewMemoStore(store)
	}
	if c, ok := store.(interface{ Close() error }); ok {
		inner := closer
		closer = func() error {
			return errors.Join(c.Close(), inner())
		}
	}
	return store, closer, nil
}

func openNATSBucket(url, bucket string) (nats.KeyValue, *nats.Conn, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: bucket})
	}
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("nats bucket %q: %w", bucket, err)
	}
	return kv, nc, nil
}
