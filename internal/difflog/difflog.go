// Package difflog persists the chronological sequence of per-scan diffs for
// one root in a BoltDB file, and resolves report time windows against it.
//
// Modeled on the cache package's bolt.Open/Update/View idiom, widened from a
// single flat key-value bucket into three buckets (meta, entries,
// timestamps) so entries can be appended and popped in sequence order.
package difflog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/aravindh-k/diskwatch/internal/codec"
	"github.com/aravindh-k/diskwatch/internal/combiner"
	"github.com/aravindh-k/diskwatch/internal/types"
)

const (
	metaBucket       = "meta"
	entriesBucket    = "entries"
	timestampsBucket = "timestamps"
	hasMergedDiffKey = "has_merged_diff"
)

// Epoch is the sentinel timestamp stored alongside the cached composite
// entry, distinguishing it from any real scan timestamp.
var Epoch = time.Unix(0, 0).UTC()

// ErrInvariantBroken flags a diff log whose entries and timestamps buckets
// have drifted out of sync, or whose has_merged_diff flag disagrees with
// its contents.
var ErrInvariantBroken = errors.New("diff log invariant broken")

// DiffLog is the persisted, chronological sequence of scan diffs for one
// root, backed by a BoltDB file. When HasMergedDiff is set, the last
// stored entry is a cached composite carrying the Epoch sentinel timestamp
// instead of a real scan time.
type DiffLog struct {
	db            *bolt.DB
	HasMergedDiff bool
}

// Open opens (creating if absent) the diff log file at path.
func Open(path string) (*DiffLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open diff log: %w", err)
	}

	l := &DiffLog{db: db}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{metaBucket, entriesBucket, timestampsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		meta := tx.Bucket([]byte(metaBucket))
		if meta.Get([]byte(hasMergedDiffKey)) == nil {
			return meta.Put([]byte(hasMergedDiffKey), []byte{0})
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if l.HasMergedDiff, err = l.readHasMergedDiff(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the underlying BoltDB file.
func (l *DiffLog) Close() error { return l.db.Close() }

func (l *DiffLog) readHasMergedDiff() (bool, error) {
	var has bool
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(metaBucket)).Get([]byte(hasMergedDiffKey))
		has = len(v) == 1 && v[0] == 1
		return nil
	})
	return has, err
}

func seqKey(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// Len reports the number of stored entries, including the cached
// composite if present.
func (l *DiffLog) Len() (int, error) {
	n := 0
	err := l.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(entriesBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

// Entries loads every stored DiffEntry and its timestamp, in sequence
// order (ascending, cached composite last when HasMergedDiff is set).
func (l *DiffLog) Entries() ([]types.DiffEntry, []time.Time, error) {
	var entries []types.DiffEntry
	var stamps []time.Time
	err := l.db.View(func(tx *bolt.Tx) error {
		eb := tx.Bucket([]byte(entriesBucket))
		tb := tx.Bucket([]byte(timestampsBucket))
		return eb.ForEach(func(k, v []byte) error {
			entry, err := codec.DecodeDiffEntry(v)
			if err != nil {
				return fmt.Errorf("decode diff entry: %w", err)
			}
			tv := tb.Get(k)
			if len(tv) != 8 {
				return fmt.Errorf("%w: missing timestamp for stored entry", ErrInvariantBroken)
			}
			entries = append(entries, entry)
			stamps = append(stamps, time.Unix(0, int64(binary.BigEndian.Uint64(tv))).UTC())
			return nil
		})
	})
	return entries, stamps, err
}

func lastSeq(tx *bolt.Tx) (uint64, bool) {
	c := tx.Bucket([]byte(entriesBucket)).Cursor()
	k, _ := c.Last()
	if k == nil {
		return 0, false
	}
	return binary.BigEndian.Uint64(k), true
}

func nextSeq(tx *bolt.Tx) uint64 {
	if seq, ok := lastSeq(tx); ok {
		return seq + 1
	}
	return 0
}

func putEntry(eb, tb *bolt.Bucket, seq uint64, entry types.DiffEntry, at time.Time) error {
	if err := eb.Put(seqKey(seq), codec.EncodeDiffEntry(entry)); err != nil {
		return err
	}
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(at.UnixNano()))
	return tb.Put(seqKey(seq), ts)
}

// decodeAllEntries loads every stored DiffEntry (in sequence order) within
// an open transaction, for the cold-start recombination path in Append.
func decodeAllEntries(eb *bolt.Bucket) ([]types.DiffEntry, error) {
	var entries []types.DiffEntry
	err := eb.ForEach(func(_, v []byte) error {
		entry, err := codec.DecodeDiffEntry(v)
		if err != nil {
			return fmt.Errorf("decode diff entry: %w", err)
		}
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

// Append stores a freshly computed scan diff with a real timestamp.
//
// When a cached composite is already present it always occupies the last
// slot (see package doc): Append pops it, appends entry with at, then,
// if cacheEnabled, recomputes the composite over [popped cache, entry] and
// pushes it back with the Epoch sentinel timestamp. baseline is needed to
// recompute move-chains the combiner resolves against it.
//
// If caching is being turned on with no prior cache (cacheEnabled but the
// log already holds one or more entries appended before caching was
// enabled), the efficient two-entry recombination doesn't apply: the new
// composite is built by re-running the Combiner over every entry now stored,
// not just the freshly appended one, so none of the earlier, not-yet-cached
// history is silently dropped.
func (l *DiffLog) Append(baseline types.Snapshot, entry types.DiffEntry, at time.Time, cacheEnabled bool) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		eb := tx.Bucket([]byte(entriesBucket))
		tb := tx.Bucket([]byte(timestampsBucket))
		meta := tx.Bucket([]byte(metaBucket))

		var cached *types.DiffEntry
		if l.HasMergedDiff {
			seq, ok := lastSeq(tx)
			if !ok {
				return fmt.Errorf("%w: has_merged_diff set on an empty log", ErrInvariantBroken)
			}
			v := eb.Get(seqKey(seq))
			c, err := codec.DecodeDiffEntry(v)
			if err != nil {
				return fmt.Errorf("decode cached diff: %w", err)
			}
			cached = &c
			if err := eb.Delete(seqKey(seq)); err != nil {
				return err
			}
			if err := tb.Delete(seqKey(seq)); err != nil {
				return err
			}
		}

		if err := putEntry(eb, tb, nextSeq(tx), entry, at); err != nil {
			return err
		}

		if !cacheEnabled {
			l.HasMergedDiff = false
			return meta.Put([]byte(hasMergedDiffKey), []byte{0})
		}

		var combined types.DiffEntry
		switch {
		case cached != nil:
			combined = combiner.Combine(baseline, []types.DiffEntry{*cached, entry})
		default:
			all, err := decodeAllEntries(eb)
			if err != nil {
				return err
			}
			combined = combiner.Combine(baseline, all)
		}
		if err := putEntry(eb, tb, nextSeq(tx), combined, Epoch); err != nil {
			return err
		}
		l.HasMergedDiff = true
		return meta.Put([]byte(hasMergedDiffKey), []byte{1})
	})
}

// Combine produces the composite diff over window. A nil window returns
// the cached composite when one exists, otherwise combines everything
// stored. A non-nil window always recombines from scratch over the
// timestamps it selects.
func (l *DiffLog) Combine(baseline types.Snapshot, window *combiner.Window) (types.DiffEntry, error) {
	entries, stamps, err := l.Entries()
	if err != nil {
		return types.DiffEntry{}, err
	}
	if len(entries) != len(stamps) {
		return types.DiffEntry{}, ErrInvariantBroken
	}
	if len(entries) == 0 {
		return types.NewDiffEntry(), nil
	}

	if window == nil && l.HasMergedDiff {
		return entries[len(entries)-1], nil
	}

	s, e, ok := combiner.SelectWindow(stamps, l.HasMergedDiff, window)
	if !ok {
		return types.NewDiffEntry(), nil
	}
	return combiner.Combine(baseline, entries[s:e+1]), nil
}
