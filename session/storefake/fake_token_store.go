package storefake

import (
	"sync"

	"github.com/jrsteele09/go-tourbook/session"
)

var _ session.TokenStore = (*FakeTokenStore)(nil)

// FakeTokenStore is an in-memory TokenStore for tests. Errors can be
// injected per operation to exercise the storage failure paths.
type FakeTokenStore struct {
	lock   sync.RWMutex
	values map[string]string

	GetErr    error
	SetErr    error
	RemoveErr error
}

func NewFakeTokenStore() *FakeTokenStore {
	return &FakeTokenStore{
		values: make(map[string]string),
	}
}

func (ts *FakeTokenStore) Get(key string) (string, error) {
	ts.lock.RLock()
	defer ts.lock.RUnlock()

	if ts.GetErr != nil {
		return "", ts.GetErr
	}
	return ts.values[key], nil
}

func (ts *FakeTokenStore) Set(key, value string) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	if ts.SetErr != nil {
		return ts.SetErr
	}
	ts.values[key] = value
	return nil
}

func (ts *FakeTokenStore) Remove(keys ...string) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	if ts.RemoveErr != nil {
		return ts.RemoveErr
	}
	for _, key := range keys {
		delete(ts.values, key)
	}
	return nil
}

// Len returns the number of stored entries.
func (ts *FakeTokenStore) Len() int {
	ts.lock.RLock()
	defer ts.lock.RUnlock()
	return len(ts.values)
}
