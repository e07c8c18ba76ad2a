package flyweight

import "context"

type nullStore struct{}

func newNullStore() Store { return &nullStore{} }

func (s *nullStore) Driver() Driver { return DriverNull }

func (s *nullStore) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *nullStore) Save(context.Context, string, []byte) error { return nil }

// SaveNew always claims the write so callers treat every record as fresh.
func (s *nullStore) SaveNew(context.Context, string, []byte) (bool, error) {
	return true, nil
}

func (s *nullStore) Incr(_ context.Context, _ string, delta int64) (int64, error) {
	return delta, nil
}

func (s *nullStore) Remove(context.Context, ...string) error { return nil }

func (s *nullStore) Clear(context.Context) error { return nil }
