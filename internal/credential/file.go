package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// fileState is the on-disk document. Secrets live next to the selection
// because both are "client-local persisted configuration" with the same
// lifetime.
type fileState struct {
	Selected struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	} `json:"selected"`
	Keys map[string]string `json:"keys"`
}

// File is a Store backed by a JSON file. Cross-process access is guarded
// with an advisory flock on a sibling .lock file; in-process access with
// a mutex. The state file is written 0600 and replaced atomically
// (temp file + rename).
type File struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// NewFile creates a file-backed store at path, creating the parent
// directory if needed.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating credential dir: %w", err)
	}
	return &File{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (f *File) Secret(providerID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.load()
	if err != nil {
		return "", false
	}
	s, ok := st.Keys[providerID]
	return s, ok && s != ""
}

func (f *File) SetSecret(providerID, secret string) error {
	return f.update(func(st *fileState) {
		st.Keys[providerID] = secret
	})
}

func (f *File) RemoveSecret(providerID string) error {
	return f.update(func(st *fileState) {
		delete(st.Keys, providerID)
	})
}

func (f *File) Selection() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.load()
	if err != nil {
		return "", ""
	}
	return st.Selected.Provider, st.Selected.Model
}

func (f *File) SetSelection(providerID, modelID string) error {
	return f.update(func(st *fileState) {
		st.Selected.Provider = providerID
		st.Selected.Model = modelID
	})
}

// update runs mutate under both locks and persists the result.
func (f *File) update(mutate func(*fileState)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("locking credential file: %w", err)
	}
	defer func() { _ = f.lock.Unlock() }()

	st, err := f.load()
	if err != nil {
		return err
	}
	mutate(st)
	return f.save(st)
}

func (f *File) load() (*fileState, error) {
	st := &fileState{Keys: make(map[string]string)}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("reading credential file: %w", err)
	}

	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parsing credential file: %w", err)
	}
	if st.Keys == nil {
		st.Keys = make(map[string]string)
	}
	return st, nil
}

func (f *File) save(st *fileState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential file: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing credential file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing credential file: %w", err)
	}
	return nil
}
