package snapshot

import "sync"

// Memory is an in-process Store used by tests and as a fallback when no
// snapshot path is configured.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// Error injection for tests.
	SaveErr, LoadErr, ClearErr error
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Save(key string, blob []byte) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), blob...)
	return nil
}

func (m *Memory) Load(key string) ([]byte, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[key]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), blob...), nil
}

func (m *Memory) Clear(key string) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}
