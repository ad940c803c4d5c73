package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const stateFile = "state.json"

// Keys of the shared document owned by this package.
const (
	KeyIdentities          = "identities"
	KeyPendingObservations = "pending_observations"
	KeyCurrentIdentityID   = "current_identity_id"
	KeySealedSecrets       = "sealed_secrets"
)

// Fields is the decoded top level of the shared document. Values stay raw
// so keys owned by other subsystems survive a rewrite untouched.
type Fields map[string]json.RawMessage

// Get decodes key into out and reports whether it was present.
func (f Fields) Get(key string, out any) (bool, error) {
	raw, ok := f[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// Set encodes v under key.
func (f Fields) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	f[key] = raw
	return nil
}

// Document is the namespaced local state file shared by every component.
type Document struct {
	path string
	mu   sync.Mutex
}

// OpenDocument returns the document stored under dir, creating dir if needed.
func OpenDocument(dir string) (*Document, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Document{path: filepath.Join(dir, stateFile)}, nil
}

// Path returns the file backing the document.
func (d *Document) Path() string { return d.path }

// View reads the current document.
func (d *Document) View(fn func(Fields) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fields, err := d.load()
	if err != nil {
		return err
	}
	return fn(fields)
}

// Update re-reads the document, applies fn and writes the result back.
// Nothing is written when fn fails.
func (d *Document) Update(fn func(Fields) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fields, err := d.load()
	if err != nil {
		return err
	}
	if err := fn(fields); err != nil {
		return err
	}
	b, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return err
	}
	if err := replaceFile(d.path, b, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	return nil
}

// load decodes the document; a missing or empty file is an empty document.
func (d *Document) load() (Fields, error) {
	fields := Fields{}
	b, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(b) == 0) {
		return fields, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}
	return fields, nil
}
