// Package testutil provides testing utilities for HangFixer tests.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

// FaultFs wraps an afero.Fs and fails selected operations on selected paths.
// It also records every successful removal so tests can count deletions.
type FaultFs struct {
	afero.Fs

	mu         sync.Mutex
	failWrite  map[string]error
	failRemove map[string]error
	failStat   map[string]error
	removed    []string
}

// NewFaultFs wraps base.
func NewFaultFs(base afero.Fs) *FaultFs {
	return &FaultFs{
		Fs:         base,
		failWrite:  make(map[string]error),
		failRemove: make(map[string]error),
		failStat:   make(map[string]error),
	}
}

// FailWrite makes opening path for writing return err.
func (f *FaultFs) FailWrite(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite[filepath.Clean(path)] = err
}

// FailRemove makes Remove and RemoveAll on path return err.
func (f *FaultFs) FailRemove(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRemove[filepath.Clean(path)] = err
}

// FailStat makes Stat on path return err.
func (f *FaultFs) FailStat(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStat[filepath.Clean(path)] = err
}

// Removed returns the paths successfully removed so far, in order.
func (f *FaultFs) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

func (f *FaultFs) lookup(m map[string]error, op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := m[filepath.Clean(path)]; ok {
		return &os.PathError{Op: op, Path: path, Err: err}
	}
	return nil
}

func (f *FaultFs) recordRemoved(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
}

// Create fails when the path is registered with FailWrite.
func (f *FaultFs) Create(name string) (afero.File, error) {
	if err := f.lookup(f.failWrite, "open", name); err != nil {
		return nil, err
	}
	return f.Fs.Create(name)
}

// OpenFile fails for write flags when the path is registered with FailWrite.
func (f *FaultFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) != 0 {
		if err := f.lookup(f.failWrite, "open", name); err != nil {
			return nil, err
		}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

// Remove fails when the path is registered with FailRemove.
func (f *FaultFs) Remove(name string) error {
	if err := f.lookup(f.failRemove, "remove", name); err != nil {
		return err
	}
	if err := f.Fs.Remove(name); err != nil {
		return err
	}
	f.recordRemoved(name)
	return nil
}

// RemoveAll fails when the path is registered with FailRemove.
func (f *FaultFs) RemoveAll(path string) error {
	if err := f.lookup(f.failRemove, "unlinkat", path); err != nil {
		return err
	}
	if err := f.Fs.RemoveAll(path); err != nil {
		return err
	}
	f.recordRemoved(path)
	return nil
}

// Stat fails when the path is registered with FailStat.
func (f *FaultFs) Stat(name string) (os.FileInfo, error) {
	if err := f.lookup(f.failStat, "stat", name); err != nil {
		return nil, err
	}
	return f.Fs.Stat(name)
}

// WriteFiles creates each path with its content on fs, creating parents.
func WriteFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()

	for path, content := range files {
		if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}

// AssertExists fails the test unless path exists on fs.
func AssertExists(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	if ok, _ := afero.Exists(fs, path); !ok {
		t.Errorf("expected %s to exist", path)
	}
}

// AssertAbsent fails the test if path exists on fs.
func AssertAbsent(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	if ok, _ := afero.Exists(fs, path); ok {
		t.Errorf("expected %s to be absent", path)
	}
}
