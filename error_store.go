package flyweight

import "context"

// errorStore is returned when a driver fails to initialize; it preserves the driver
// identity while surfacing the construction error on every call.
type errorStore struct {
	driver Driver
	err    error
}

func (e *errorStore) Driver() Driver                                     { return e.driver }
func (e *errorStore) Load(context.Context, string) ([]byte, bool, error) { return nil, false, e.err }
func (e *errorStore) Save(context.Context, string, []byte) error         { return e.err }
func (e *errorStore) SaveNew(context.Context, string, []byte) (bool, error) {
	return false, e.err
}
func (e *errorStore) Incr(context.Context, string, int64) (int64, error) { return 0, e.err }
func (e *errorStore) Remove(context.Context, ...string) error            { return e.err }
func (e *errorStore) Clear(context.Context) error                        { return e.err }
