package flyweight

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"
)

// natsIncrAttempts bounds the compare-and-swap loop used by Incr.
const natsIncrAttempts = 16

// NATSKeyValue captures the subset of nats.KeyValue used by the store.
type NATSKeyValue interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Create(key string, value []byte) (uint64, error)
	Update(key string, value []byte, last uint64) (uint64, error)
	Purge(key string, opts ...nats.DeleteOpt) error
	ListKeys(opts ...nats.WatchOpt) (nats.KeyLister, error)
}

var errNATSUnavailable = errors.New("nats registry key-value unavailable")

type natsStore struct {
	kv     NATSKeyValue
	prefix string
}

func newNATSStore(kv NATSKeyValue, prefix string) Store {
	if prefix == "" {
		prefix = defaultStorePrefix
	}
	return &natsStore{kv: kv, prefix: prefix}
}

func (s *natsStore) Driver() Driver { return DriverNATS }

func (s *natsStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	if s.kv == nil {
		return nil, false, errNATSUnavailable
	}
	entry, err := s.kv.Get(s.bucketKey(key))
	if isNATSMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Operation() != nats.KeyValuePut {
		return nil, false, nil
	}
	return cloneBytes(entry.Value()), true, nil
}

func (s *natsStore) Save(_ context.Context, key string, value []byte) error {
	if s.kv == nil {
		return errNATSUnavailable
	}
	_, err := s.kv.Put(s.bucketKey(key), cloneBytes(value))
	return err
}

func (s *natsStore) SaveNew(_ context.Context, key string, value []byte) (bool, error) {
	if s.kv == nil {
		return false, errNATSUnavailable
	}
	_, err := s.kv.Create(s.bucketKey(key), cloneBytes(value))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, nats.ErrKeyExists) {
		return false, nil
	}
	return false, err
}

func (s *natsStore) Incr(_ context.Context, key string, delta int64) (int64, error) {
	if s.kv == nil {
		return 0, errNATSUnavailable
	}
	bucketKey := s.bucketKey(key)
	for attempt := 0; attempt < natsIncrAttempts; attempt++ {
		var (
			current  int64
			revision uint64
		)
		entry, err := s.kv.Get(bucketKey)
		switch {
		case isNATSMiss(err):
		case err != nil:
			return 0, err
		case entry.Operation() == nats.KeyValuePut:
			revision = entry.Revision()
			if raw := entry.Value(); len(raw) > 0 {
				current, err = strconv.ParseInt(string(raw), 10, 64)
				if err != nil {
					return 0, fmt.Errorf("registry key %q does not contain a numeric value", key)
				}
			}
		}

		next := current + delta
		body := []byte(strconv.FormatInt(next, 10))
		if revision == 0 {
			_, err = s.kv.Create(bucketKey, body)
		} else {
			_, err = s.kv.Update(bucketKey, body, revision)
		}
		if err == nil {
			return next, nil
		}
		if errors.Is(err, nats.ErrKeyExists) || isNATSMiss(err) {
			continue
		}
		return 0, err
	}
	return 0, errors.New("nats increment exceeded retry limit")
}

func (s *natsStore) Remove(_ context.Context, keys ...string) error {
	if s.kv == nil {
		return errNATSUnavailable
	}
	for _, key := range keys {
		if err := s.kv.Purge(s.bucketKey(key)); err != nil && !isNATSMiss(err) {
			return err
		}
	}
	return nil
}

func (s *natsStore) Clear(_ context.Context) error {
	if s.kv == nil {
		return errNATSUnavailable
	}
	lister, err := s.kv.ListKeys(nats.IgnoreDeletes())
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}
		return err
	}
	defer func() { _ = lister.Stop() }()

	scope := s.scopePrefix()
	for key := range lister.Keys() {
		if !strings.HasPrefix(key, scope) {
			continue
		}
		if err := s.kv.Purge(key); err != nil && !isNATSMiss(err) {
			return err
		}
	}
	for err := range lister.Error() {
		if err != nil {
			return err
		}
	}
	return nil
}

// bucketKey encodes the key so arbitrary colours survive NATS subject rules.
func (s *natsStore) bucketKey(key string) string {
	return s.scopePrefix() + encodeNATSKeyPart(key)
}

func (s *natsStore) scopePrefix() string {
	return "fw." + encodeNATSKeyPart(s.prefix) + "."
}

func isNATSMiss(err error) bool {
	return errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted)
}

func encodeNATSKeyPart(part string) string {
	if part == "" {
		return "_"
	}
	return base64.RawURLEncoding.EncodeToString([]byte(part))
}
