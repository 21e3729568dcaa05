// Package state derives per-root state file paths and persists the
// baseline Snapshot, the one piece of on-disk state the diff log doesn't
// own.
//
// The fingerprint hash primitive is explicitly out of scope and abstract;
// the root-path hash that names state files is an ordinary implementation
// detail instead, so it's grounded on the standard library's FNV-1a rather
// than anything from the domain stack.
package state

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/aravindh-k/diskwatch/internal/codec"
	"github.com/aravindh-k/diskwatch/internal/types"
)

// RootHash derives the stable 64-bit digest of an absolute root path used
// to name its state files.
func RootHash(absRoot string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(absRoot))
	return h.Sum64()
}

// Paths returns the baseline and diff-log file paths for a root under
// stateDir, nested under an su/ subdirectory when elevated is set.
func Paths(stateDir, absRoot string, elevated bool) (initial, diffs string) {
	dir := stateDir
	if elevated {
		dir = filepath.Join(stateDir, "su")
	}
	name := fmt.Sprintf("%016x", RootHash(absRoot))
	return filepath.Join(dir, name+"_initial"), filepath.Join(dir, name+"_diffs")
}

const (
	baselineBucket = "baseline"
	baselineKey    = "snapshot"
)

// LoadBaseline reads the stored baseline Snapshot. ok is false when no
// baseline file exists yet, meaning this is the root's first scan.
func LoadBaseline(path string) (snap types.Snapshot, ok bool, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return nil, false, nil
		}
		return nil, false, statErr
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, false, fmt.Errorf("open baseline: %w", err)
	}
	defer func() { _ = db.Close() }()

	var blob []byte
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(baselineBucket))
		if b == nil {
			return fmt.Errorf("baseline bucket missing from %s", path)
		}
		blob = append([]byte(nil), b.Get([]byte(baselineKey))...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	snap, err = codec.DecodeSnapshot(blob)
	if err != nil {
		return nil, false, fmt.Errorf("decode baseline: %w", err)
	}
	return snap, true, nil
}

// SaveBaseline writes snap to path, creating or replacing the baseline
// file in its entirety.
func SaveBaseline(path string, snap types.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("open baseline: %w", err)
	}
	defer func() { _ = db.Close() }()

	blob := codec.EncodeSnapshot(snap)
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(baselineBucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(baselineKey), blob)
	})
}
