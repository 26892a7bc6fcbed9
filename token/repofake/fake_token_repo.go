package tokenrepofake

import (
	"sync"

	"github.com/jrsteele09/weeb-client/internal/errors"
	"github.com/jrsteele09/weeb-client/token"
)

var _ token.Repo = (*FakeTokenRepo)(nil)

// FakeTokenRepo keeps durable entries in memory. It backs the "memory" storage option
// and the tests.
type FakeTokenRepo struct {
	entries map[string][]byte
	lock    sync.RWMutex

	SaveErr    error  // returned by Save when set
	SaveErrKey string // limits SaveErr to this key when set
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		entries: make(map[string][]byte),
	}
}

func (tr *FakeTokenRepo) Load(key string) ([]byte, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	v, ok := tr.entries[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (tr *FakeTokenRepo) Save(key string, value []byte) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tr.SaveErr != nil && (tr.SaveErrKey == "" || tr.SaveErrKey == key) {
		return tr.SaveErr
	}
	tr.entries[key] = append([]byte(nil), value...)
	return nil
}

func (tr *FakeTokenRepo) Delete(key string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	delete(tr.entries, key)
	return nil
}

// Len returns the number of stored entries.
func (tr *FakeTokenRepo) Len() int {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return len(tr.entries)
}
