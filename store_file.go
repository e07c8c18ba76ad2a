package flyweight

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var (
	createTempFile = os.CreateTemp
	renameFile     = os.Rename
	linkFile       = os.Link
)

var fileRecordMagic = []byte("FWR1")

const fileRecordExt = ".shape"

// fileStore writes one file per key. Writes go through a temp file so readers
// never observe a partial record; SaveNew hard-links the temp file into place
// which fails when the key already exists.
type fileStore struct {
	dir string
	mu  sync.Mutex
}

func newFileStore(dir string) (Store, error) {
	if dir == "" {
		dir = defaultFileDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) Driver() Driver {
	return DriverFile
}

func (s *fileStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	value, err := decodeFileRecord(data)
	if err != nil {
		return nil, false, fmt.Errorf("registry key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *fileStore) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(key, value)
}

func (s *fileStore) SaveNew(_ context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath, err := s.writeTemp(value)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmpPath)

	if err := linkFile(tmpPath, s.path(key)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *fileStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := int64(0)
	body, ok, err := s.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	if ok {
		n, err := strconv.ParseInt(string(body), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("registry key %q does not contain a numeric value", key)
		}
		current = n
	}
	next := current + delta
	if err := s.write(key, []byte(strconv.FormatInt(next, 10))); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *fileStore) Remove(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *fileStore) Clear(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileRecordExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *fileStore) write(key string, value []byte) error {
	tmpPath, err := s.writeTemp(value)
	if err != nil {
		return err
	}
	if err := renameFile(tmpPath, s.path(key)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *fileStore) writeTemp(value []byte) (string, error) {
	tmp, err := createTempFile(s.dir, "shape-*.tmp")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(fileRecordMagic); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

func (s *fileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+fileRecordExt)
}

func decodeFileRecord(data []byte) ([]byte, error) {
	if len(data) < len(fileRecordMagic) || !bytes.Equal(data[:len(fileRecordMagic)], fileRecordMagic) {
		return nil, errors.New("corrupt registry record")
	}
	return cloneBytes(data[len(fileRecordMagic):]), nil
}
