// Package cache provides the hash-keyed store of synthesized packages and
// built binaries.
//
// Layout: one subdirectory per cache key under the store root, holding the
// synthesized module manifest and source, and after a successful build the
// binary under bin/. Entry metadata lives in a BoltDB file at the root.
// The database handle is opened per operation and never held across a
// build, so the Bolt file lock cannot serialize unrelated invocations
// while a long compile runs.
//
// Concurrent invocations are independent OS processes; the per-key build
// lock in lock.go is the only cross-process synchronization primitive.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.etcd.io/bbolt"

	"gsx/internal/manifest"
	"gsx/internal/synth"
)

const (
	// dbName is the BoltDB file holding entry metadata.
	dbName = "cache.db"

	// entriesDir is the subdirectory holding per-key package directories.
	entriesDir = "entries"

	// bucketName is the BoltDB bucket for entry records.
	bucketName = "entries"

	// dbTimeout bounds the wait for the Bolt file lock. Metadata
	// operations are short; a stuck lock means another invocation died
	// inside one, which Bolt recovers from once that process exits.
	dbTimeout = 5 * time.Second
)

// ErrBusy is returned when another process holds the build lock for a key
// and the bounded wait expired.
var ErrBusy = errors.New("another process is building this script; retry shortly")

// Store is a filesystem-backed, hash-keyed repository of synthesized
// packages and built binaries.
type Store struct {
	root string
}

// DefaultRoot resolves the platform cache root for gsx.
func DefaultRoot() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user cache directory: %w", err)
	}

	return filepath.Join(base, "gsx"), nil
}

// New creates a store rooted at root, creating the directory as needed.
// The root is resolved once by the caller and threaded through explicitly;
// the store itself never consults the environment.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("cache root must not be empty")
	}

	if err := os.MkdirAll(filepath.Join(root, entriesDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", root, err)
	}

	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// EntryDir returns the directory for a cache key.
func (s *Store) EntryDir(key string) string {
	return filepath.Join(s.root, entriesDir, key)
}

// BinaryPath returns the absolute path of an entry's built binary. The
// entry need not be built yet; this is also where a build will place it.
func (s *Store) BinaryPath(e *Entry) string {
	if e.Binary != "" {
		return filepath.Join(e.Dir, filepath.FromSlash(e.Binary))
	}

	return filepath.Join(e.Dir, "bin", binaryName(e.Name))
}

// Lookup retrieves the entry for a key. A nil entry means a cache miss.
// Equality of the key is the sole admission criterion; no secondary
// validation of the entry's sources is performed.
func (s *Store) Lookup(key string) (*Entry, error) {
	var entry *Entry

	err := s.view(func(b *bbolt.Bucket) error {
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}

		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		entry.Dir = s.EntryDir(key)
	}

	return entry, nil
}

// Create writes the synthesized package under the key's directory and
// records an unbuilt entry. It is idempotent: if an entry already exists
// for the key, the existing entry is returned untouched.
func (s *Store) Create(key string, pkg *synth.Package, script string, kind manifest.Kind, profile, toolchain string) (*Entry, error) {
	existing, err := s.Lookup(key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	dir := s.EntryDir(key)
	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create entry directory %s: %w", dir, err)
	}

	files := map[string]string{
		"go.mod":         pkg.GoMod,
		synth.SourceFile: pkg.Source,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	entry := &Entry{
		Key:       key,
		Name:      pkg.Name,
		Script:    script,
		Kind:      kind.String(),
		Profile:   profile,
		Toolchain: toolchain,
		LineMap:   pkg.LineMap,
		CreatedAt: time.Now().UTC(),
		Dir:       dir,
	}

	if err := s.put(entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// MarkBuilt promotes an entry to built. The binary path is recorded only
// here, after the orchestrator reported success, so a crash mid-build
// leaves the entry observably unbuilt rather than corrupt.
func (s *Store) MarkBuilt(e *Entry, binary string) error {
	rel, err := filepath.Rel(e.Dir, binary)
	if err != nil {
		return fmt.Errorf("binary %s is outside entry directory %s: %w", binary, e.Dir, err)
	}

	e.Binary = filepath.ToSlash(rel)
	e.Builds++
	e.BuiltAt = time.Now().UTC()

	return s.put(e)
}

// MarkUnbuilt demotes an entry whose binary vanished, so the caller can
// rebuild through the normal miss path.
func (s *Store) MarkUnbuilt(e *Entry) error {
	e.Binary = ""
	return s.put(e)
}

// Purge removes an entry's record and directory.
func (s *Store) Purge(key string) error {
	err := s.update(func(b *bbolt.Bucket) error {
		return b.Delete([]byte(key))
	})
	if err != nil {
		return err
	}

	dir := s.EntryDir(key)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}

	return nil
}

// Clear removes all cache entries and artifacts.
func (s *Store) Clear() error {
	err := s.withDB(func(db *bbolt.DB) error {
		return db.Update(func(tx *bbolt.Tx) error {
			if tx.Bucket([]byte(bucketName)) == nil {
				return nil
			}

			return tx.DeleteBucket([]byte(bucketName))
		})
	})
	if err != nil {
		return err
	}

	dir := filepath.Join(s.root, entriesDir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to recreate %s: %w", dir, err)
	}

	return nil
}

// Stats returns the entry count and total size of stored artifacts.
func (s *Store) Stats() (int, int64, error) {
	var count int

	err := s.view(func(b *bbolt.Bucket) error {
		count = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	var totalSize int64
	root := filepath.Join(s.root, entriesDir)
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // entry removed underneath us, skip
		}

		if !info.IsDir() {
			totalSize += info.Size()
		}

		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return count, totalSize, nil
}

func (s *Store) put(e *Entry) error {
	return s.update(func(b *bbolt.Bucket) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}

		return b.Put([]byte(e.Key), data)
	})
}

func (s *Store) view(fn func(*bbolt.Bucket) error) error {
	return s.withDB(func(db *bbolt.DB) error {
		return db.View(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(bucketName))
			if b == nil {
				return nil
			}

			return fn(b)
		})
	})
}

func (s *Store) update(fn func(*bbolt.Bucket) error) error {
	return s.withDB(func(db *bbolt.DB) error {
		return db.Update(func(tx *bbolt.Tx) error {
			b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
			if err != nil {
				return err
			}

			return fn(b)
		})
	})
}

// withDB opens the metadata database for a single operation. Keeping the
// handle short-lived matters: Bolt holds an exclusive file lock while open,
// and a handle held across an external build would block every other
// invocation for the build's duration.
func (s *Store) withDB(fn func(*bbolt.DB) error) error {
	path := filepath.Join(s.root, dbName)

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: dbTimeout})
	if err != nil {
		return fmt.Errorf("failed to open cache database %s: %w", path, err)
	}
	defer db.Close()

	return fn(db)
}

func binaryName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}

	return base
}
