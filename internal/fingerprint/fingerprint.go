// Package fingerprint computes the content-identity hash used by the differ
// for move detection. The hash primitive itself is treated as an abstract
// collaborator by the data model; this package only owns the canonicalized
// binary layout fed into it, modeled on the cache package's deterministic
// key encoding.
package fingerprint

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"

	"github.com/aravindh-k/diskwatch/internal/types"
)

// Compute derives a DirRecord's Fingerprint. Path and the existing
// Fingerprint field are excluded from the hashed bytes so that identical
// content at two different paths (or re-hashed after a prior hash) yields
// the same value.
func Compute(d *types.DirRecord) types.Fingerprint {
	buf := new(bytes.Buffer)

	_ = binary.Write(buf, binary.BigEndian, d.HasModTime)
	if d.HasModTime {
		_ = binary.Write(buf, binary.BigEndian, d.ModTime.UnixNano())
	}
	_ = binary.Write(buf, binary.BigEndian, d.FilesHere)
	_ = binary.Write(buf, binary.BigEndian, d.FilesBelow)
	_ = binary.Write(buf, binary.BigEndian, d.DirsHere)
	_ = binary.Write(buf, binary.BigEndian, d.DirsBelow)
	_ = binary.Write(buf, binary.BigEndian, d.SizeHere)
	_ = binary.Write(buf, binary.BigEndian, d.SizeBelow)

	writeFileRecords(buf, d.Files)
	writeFileRecords(buf, d.Symlinks)

	sum := md5.Sum(buf.Bytes())
	return types.Fingerprint(sum)
}

func writeFileRecords(buf *bytes.Buffer, recs []types.FileRecord) {
	_ = binary.Write(buf, binary.BigEndian, uint32(len(recs)))
	for _, r := range recs {
		buf.WriteString(r.Name)
		buf.WriteByte(0)
		_ = binary.Write(buf, binary.BigEndian, r.Size)
		_ = binary.Write(buf, binary.BigEndian, r.HasModTime)
		if r.HasModTime {
			_ = binary.Write(buf, binary.BigEndian, r.ModTime.UnixNano())
		}
	}
}
