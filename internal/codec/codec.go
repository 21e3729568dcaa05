// Package codec implements the deterministic binary encoder used to
// persist Snapshots and DiffEntries: fixed-width little-endian integers,
// length-prefixed variable sequences and byte strings, nullability-prefixed
// optional values, and a leading schema version so a breaking field
// addition can bump it. Modeled on the cache package's manual
// encoding/binary key layout, widened from a single fixed key into a
// recursive record encoder.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sort"
	"time"

	"github.com/aravindh-k/diskwatch/internal/types"
)

// SchemaVersion is written as the first two bytes of every top-level
// encoded record. A future breaking change bumps this and Decode* rejects
// anything it doesn't recognize.
const SchemaVersion uint16 = 1

// ErrTruncated is returned when a decode runs past the end of its input,
// the shape corrupt-file handling takes for any DecodeFailed condition.
var ErrTruncated = errors.New("codec: truncated data")

// ErrUnsupportedVersion is returned when a record's schema version is
// newer (or otherwise unrecognized) than this decoder supports.
var ErrUnsupportedVersion = errors.New("codec: unsupported schema version")

type writer struct{ buf *bytes.Buffer }

func newWriter() *writer { return &writer{buf: new(bytes.Buffer)} }

func (w *writer) u8(v uint8)    { w.buf.WriteByte(v) }
func (w *writer) u16(v uint16)  { _ = binary.Write(w.buf, binary.LittleEndian, v) }
func (w *writer) u32(v uint32)  { _ = binary.Write(w.buf, binary.LittleEndian, v) }
func (w *writer) u64(v uint64)  { _ = binary.Write(w.buf, binary.LittleEndian, v) }
func (w *writer) i64(v int64)   { _ = binary.Write(w.buf, binary.LittleEndian, v) }
func (w *writer) fixed(b []byte) { w.buf.Write(b) }

func (w *writer) bytesField(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *writer) str(s string) { w.bytesField([]byte(s)) }

func (w *writer) boolean(b bool) {
	if b {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) optTime(has bool, t time.Time) {
	w.boolean(has)
	if has {
		w.i64(t.UnixNano())
	}
}

func (w *writer) timeDelta(t types.TimeDelta) {
	w.i64(t.Seconds)
	w.i64(t.Nanos)
}

type reader struct {
	buf []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{buf: b} }

func (r *reader) need(n int) error {
	if n < 0 || r.pos+n > len(r.buf) {
		return ErrTruncated
	}
	return nil
}

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *reader) fixed(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

func (r *reader) bytesField() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	return r.fixed(int(n))
}

func (r *reader) str() (string, error) {
	b, err := r.bytesField()
	return string(b), err
}

func (r *reader) boolean() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *reader) optTime() (bool, time.Time, error) {
	has, err := r.boolean()
	if err != nil || !has {
		return false, time.Time{}, err
	}
	ns, err := r.i64()
	if err != nil {
		return false, time.Time{}, err
	}
	return true, time.Unix(0, ns), nil
}

func (r *reader) timeDelta() (types.TimeDelta, error) {
	s, err := r.i64()
	if err != nil {
		return types.TimeDelta{}, err
	}
	n, err := r.i64()
	if err != nil {
		return types.TimeDelta{}, err
	}
	return types.TimeDelta{Seconds: s, Nanos: n}, nil
}

func readHeader(r *reader) error {
	v, err := r.u16()
	if err != nil {
		return err
	}
	if v != SchemaVersion {
		return ErrUnsupportedVersion
	}
	return nil
}

// --- FileRecord ---

func writeFileRecord(w *writer, f types.FileRecord) {
	w.str(f.Name)
	w.u64(f.Size)
	w.optTime(f.HasModTime, f.ModTime)
}

func readFileRecord(r *reader) (types.FileRecord, error) {
	var f types.FileRecord
	var err error
	if f.Name, err = r.str(); err != nil {
		return f, err
	}
	if f.Size, err = r.u64(); err != nil {
		return f, err
	}
	if f.HasModTime, f.ModTime, err = r.optTime(); err != nil {
		return f, err
	}
	return f, nil
}

func writeFileRecords(w *writer, recs []types.FileRecord) {
	w.u32(uint32(len(recs)))
	for _, f := range recs {
		writeFileRecord(w, f)
	}
}

func readFileRecords(r *reader) ([]types.FileRecord, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]types.FileRecord, n)
	for i := range out {
		if out[i], err = readFileRecord(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// --- DirRecord ---

func writeDirRecord(w *writer, d types.DirRecord) {
	w.str(d.Path)
	w.optTime(d.HasModTime, d.ModTime)
	w.u64(d.FilesHere)
	w.u64(d.FilesBelow)
	w.u64(d.DirsHere)
	w.u64(d.DirsBelow)
	w.i64(d.SizeHere)
	w.i64(d.SizeBelow)
	w.fixed(d.Fingerprint[:])
	writeFileRecords(w, d.Files)
	writeFileRecords(w, d.Symlinks)
}

func readDirRecord(r *reader) (types.DirRecord, error) {
	var d types.DirRecord
	var err error
	if d.Path, err = r.str(); err != nil {
		return d, err
	}
	if d.HasModTime, d.ModTime, err = r.optTime(); err != nil {
		return d, err
	}
	if d.FilesHere, err = r.u64(); err != nil {
		return d, err
	}
	if d.FilesBelow, err = r.u64(); err != nil {
		return d, err
	}
	if d.DirsHere, err = r.u64(); err != nil {
		return d, err
	}
	if d.DirsBelow, err = r.u64(); err != nil {
		return d, err
	}
	if d.SizeHere, err = r.i64(); err != nil {
		return d, err
	}
	if d.SizeBelow, err = r.i64(); err != nil {
		return d, err
	}
	fp, err := r.fixed(16)
	if err != nil {
		return d, err
	}
	copy(d.Fingerprint[:], fp)
	if d.Files, err = readFileRecords(r); err != nil {
		return d, err
	}
	if d.Symlinks, err = readFileRecords(r); err != nil {
		return d, err
	}
	return d, nil
}

// EncodeDirRecord serializes a single DirRecord with a leading schema
// version.
func EncodeDirRecord(d types.DirRecord) []byte {
	w := newWriter()
	w.u16(SchemaVersion)
	writeDirRecord(w, d)
	return w.buf.Bytes()
}

// DecodeDirRecord reverses EncodeDirRecord.
func DecodeDirRecord(b []byte) (types.DirRecord, error) {
	r := newReader(b)
	if err := readHeader(r); err != nil {
		return types.DirRecord{}, err
	}
	return readDirRecord(r)
}

// EncodeSnapshot serializes an entire Snapshot as one record.
func EncodeSnapshot(s types.Snapshot) []byte {
	w := newWriter()
	w.u16(SchemaVersion)
	w.u32(uint32(len(s)))
	for _, d := range s {
		writeDirRecord(w, d)
	}
	return w.buf.Bytes()
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(b []byte) (types.Snapshot, error) {
	r := newReader(b)
	if err := readHeader(r); err != nil {
		return nil, err
	}
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make(types.Snapshot, n)
	for i := range out {
		if out[i], err = readDirRecord(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// --- FileDiff / DirDiff / DiffEntry ---

func writeFileDiff(w *writer, f types.FileDiff) {
	w.str(f.Name)
	w.u8(uint8(f.Kind))
	w.i64(f.SizeDelta)
	w.timeDelta(f.Time)
}

func readFileDiff(r *reader) (types.FileDiff, error) {
	var f types.FileDiff
	var err error
	if f.Name, err = r.str(); err != nil {
		return f, err
	}
	k, err := r.u8()
	if err != nil {
		return f, err
	}
	f.Kind = types.DiffKind(k)
	if f.SizeDelta, err = r.i64(); err != nil {
		return f, err
	}
	if f.Time, err = r.timeDelta(); err != nil {
		return f, err
	}
	return f, nil
}

func writeFileDiffs(w *writer, diffs []types.FileDiff) {
	w.u32(uint32(len(diffs)))
	for _, f := range diffs {
		writeFileDiff(w, f)
	}
}

func readFileDiffs(r *reader) ([]types.FileDiff, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]types.FileDiff, n)
	for i := range out {
		if out[i], err = readFileDiff(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeDirDiff(w *writer, d types.DirDiff) {
	w.str(d.Path)
	w.u8(uint8(d.Kind))
	w.i64(d.FilesHereDelta)
	w.i64(d.FilesBelowDelta)
	w.i64(d.DirsHereDelta)
	w.i64(d.DirsBelowDelta)
	w.i64(d.SizeHereDelta)
	w.i64(d.SizeBelowDelta)
	w.timeDelta(d.Time)
	writeFileDiffs(w, d.Files)
	writeFileDiffs(w, d.Symlinks)
}

func readDirDiff(r *reader) (types.DirDiff, error) {
	var d types.DirDiff
	var err error
	if d.Path, err = r.str(); err != nil {
		return d, err
	}
	k, err := r.u8()
	if err != nil {
		return d, err
	}
	d.Kind = types.DiffKind(k)
	if d.FilesHereDelta, err = r.i64(); err != nil {
		return d, err
	}
	if d.FilesBelowDelta, err = r.i64(); err != nil {
		return d, err
	}
	if d.DirsHereDelta, err = r.i64(); err != nil {
		return d, err
	}
	if d.DirsBelowDelta, err = r.i64(); err != nil {
		return d, err
	}
	if d.SizeHereDelta, err = r.i64(); err != nil {
		return d, err
	}
	if d.SizeBelowDelta, err = r.i64(); err != nil {
		return d, err
	}
	if d.Time, err = r.timeDelta(); err != nil {
		return d, err
	}
	if d.Files, err = readFileDiffs(r); err != nil {
		return d, err
	}
	if d.Symlinks, err = readFileDiffs(r); err != nil {
		return d, err
	}
	return d, nil
}

// EncodeDiffEntry serializes a DiffEntry with a leading schema version.
func EncodeDiffEntry(e types.DiffEntry) []byte {
	w := newWriter()
	w.u16(SchemaVersion)
	w.u32(uint32(len(e.Dirs)))
	for _, d := range e.Dirs {
		writeDirDiff(w, d)
	}
	w.u32(uint32(len(e.MoveToPaths)))
	srcs := make([]string, 0, len(e.MoveToPaths))
	for src := range e.MoveToPaths {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)
	for _, src := range srcs {
		w.str(src)
		w.str(e.MoveToPaths[src])
	}
	return w.buf.Bytes()
}

// DecodeDiffEntry reverses EncodeDiffEntry.
func DecodeDiffEntry(b []byte) (types.DiffEntry, error) {
	r := newReader(b)
	if err := readHeader(r); err != nil {
		return types.DiffEntry{}, err
	}
	n, err := r.u32()
	if err != nil {
		return types.DiffEntry{}, err
	}
	entry := types.NewDiffEntry()
	entry.Dirs = make([]types.DirDiff, n)
	for i := range entry.Dirs {
		if entry.Dirs[i], err = readDirDiff(r); err != nil {
			return types.DiffEntry{}, err
		}
	}
	moves, err := r.u32()
	if err != nil {
		return types.DiffEntry{}, err
	}
	for i := uint32(0); i < moves; i++ {
		src, err := r.str()
		if err != nil {
			return types.DiffEntry{}, err
		}
		dst, err := r.str()
		if err != nil {
			return types.DiffEntry{}, err
		}
		entry.MoveToPaths[src] = dst
	}
	return entry, nil
}
