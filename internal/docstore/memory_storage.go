package docstore

import "sync"

// MemoryStorage keeps the last written snapshot as encoded bytes, so reads
// see the same value shapes as the file storages.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte
}

// NewMemory returns an empty in-memory storage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Read() (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Decode(s.data)
}

func (s *MemoryStorage) Write(data Data) error {
	b, err := Encode(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Close() error { return nil }
