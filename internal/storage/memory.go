package storage

import "sync"

// Memory est un Store en mémoire, utilisé par les tests et quand aucune persistance n'est voulue
type Memory struct {
	notifier
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	m.notify(key)
	return nil
}

func (m *Memory) Delete(keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.data, k)
	}
	m.mu.Unlock()
	m.notify(keys...)
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	m.data = make(map[string][]byte)
	m.mu.Unlock()
	m.notify(keys...)
	return nil
}
