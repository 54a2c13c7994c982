package transcript

import "slices"

// MemoryStore keeps the transcript in memory. It exists for tests and
// ephemeral runs where nothing should touch the filesystem.
type MemoryStore struct {
	turns []Turn
}

// NewMemoryStore creates an in-memory store seeded with the given turns.
func NewMemoryStore(turns ...Turn) *MemoryStore {
	return &MemoryStore{turns: slices.Clone(turns)}
}

func (m *MemoryStore) Load() ([]Turn, error) {
	return slices.Clone(m.turns), nil
}

func (m *MemoryStore) Save(turns []Turn) error {
	m.turns = slices.Clone(Tail(turns))
	return nil
}
