package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RecordKey is the fixed name of the persisted session record.
const RecordKey = "user"

// ErrNoRecord is returned by Backend.Load when nothing is stored.
var ErrNoRecord = errors.New("session: no stored record")

// Backend is one client's persistent slot for the session record.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, record []byte) error
	Delete(ctx context.Context) error
}

// MemoryBackend keeps the record in process memory.
type MemoryBackend struct {
	mu     sync.Mutex
	record []byte
}

func (m *MemoryBackend) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return nil, ErrNoRecord
	}
	return append([]byte(nil), m.record...), nil
}

func (m *MemoryBackend) Save(_ context.Context, record []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = append([]byte(nil), record...)
	return nil
}

func (m *MemoryBackend) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	return nil
}

// FileBackend stores the record as a single JSON file.
type FileBackend struct {
	Path string
}

// DefaultFilePath is $XDG_STATE_HOME/drivehub/user.json, falling back to
// ~/.local/state when XDG_STATE_HOME is unset.
func DefaultFilePath() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "drivehub", RecordKey+".json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "drivehub", RecordKey+".json"), nil
}

func (f *FileBackend) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return data, nil
}

// Save replaces the file atomically via rename.
func (f *FileBackend) Save(_ context.Context, record []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+RecordKey+"-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *FileBackend) Delete(context.Context) error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
