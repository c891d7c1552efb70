package credits

import (
	"context"
	"encoding/json"

	"github.com/puzpuzpuz/xsync/v4"
)

// MemoryStore is a process-local CacheStore, used when Redis is disabled.
type MemoryStore struct {
	docs *xsync.Map[string, []byte]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: xsync.NewMap[string, []byte]()}
}

func (m *MemoryStore) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := m.docs.Load(key)
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *MemoryStore) SetJSON(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.docs.Store(key, raw)
	return nil
}
