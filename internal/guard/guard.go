// Package guard serializes work on a single workspace identifier.
//
// The phase sequencer holds a guard across detect, recover and re-arm so that
// the existence check always happens-before the write that follows it. Distinct
// identifiers never contend with each other.
package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Locker hands out exclusive access to a key.
//
// Acquire always returns a usable release func. A non-nil error means the
// guard degraded (for example the cross-process lock could not be taken in
// time) but the caller still holds the in-process lock and may proceed.
type Locker interface {
	Acquire(key string) (release func(), err error)
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex is an in-process mutex per key. Entries are dropped once no
// goroutine holds or waits on them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

// Acquire blocks until key is free. It never returns an error.
func (k *KeyedMutex) Acquire(key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.entries, key)
			}
			k.mu.Unlock()
		})
	}, nil
}

// Len returns the number of keys currently held or waited on.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// DefaultLockTimeout bounds how long FileLocker waits for another process.
const DefaultLockTimeout = 2 * time.Second

// FileLocker layers an advisory file lock over a KeyedMutex so that separate
// processes handling the same workspace are serialized too. Lock files live in
// dir and are named by a hash of the key.
type FileLocker struct {
	dir     string
	timeout time.Duration
	local   *KeyedMutex
}

// NewFileLocker creates a FileLocker storing lock files in dir.
// A non-positive timeout uses DefaultLockTimeout.
func NewFileLocker(dir string, timeout time.Duration) *FileLocker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &FileLocker{
		dir:     dir,
		timeout: timeout,
		local:   NewKeyedMutex(),
	}
}

// LockPath returns the lock file used for key.
func (f *FileLocker) LockPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:12])+".lock")
}

// Acquire takes the in-process lock, then waits up to the timeout for the
// file lock. On timeout or I/O failure it returns the in-process release with
// an error instead of blocking further.
func (f *FileLocker) Acquire(key string) (func(), error) {
	releaseLocal, _ := f.local.Acquire(key)

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return releaseLocal, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(f.LockPath(key))
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		if err == nil {
			err = fmt.Errorf("lock %s held by another process", fl.Path())
		}
		return releaseLocal, fmt.Errorf("cross-process lock unavailable: %w", err)
	}

	return func() {
		_ = fl.Unlock()
		releaseLocal()
	}, nil
}
