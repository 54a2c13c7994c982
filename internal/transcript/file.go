package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// FileStore persists the transcript as pretty-printed JSON so the history
// file stays human-inspectable. Writes go through a temp file and rename to
// avoid leaving a truncated document behind on crash, and take an advisory
// lock so rapid back-to-back invocations do not interleave writes.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore creates a store backed by the JSON file at path. The file and
// its parent directory are created lazily on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Load reads the transcript from disk. A missing file yields an empty
// transcript and no error; a file that exists but fails to parse is an error
// the caller is expected to recover from by starting fresh.
func (s *FileStore) Load() ([]Turn, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading history file")
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, errors.Wrapf(err, "parsing history file %s", s.path)
	}
	return turns, nil
}

// Save writes the most recent MaxTurns entries to disk, replacing the
// previous contents atomically.
func (s *FileStore) Save(turns []Turn) error {
	turns = Tail(turns)

	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding history")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "creating history directory")
	}

	if err := s.lock.Lock(); err != nil {
		return errors.Wrap(err, "locking history file")
	}
	defer func() { _ = s.lock.Unlock() }()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.json")
	if err != nil {
		return errors.Wrap(err, "creating temp history file")
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "writing history")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "closing temp history file")
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "replacing history file")
	}
	return nil
}
