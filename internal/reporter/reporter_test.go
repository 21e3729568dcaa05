package reporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aravindh-k/diskwatch/internal/types"
)

func TestWriteSortsByMagnitudeDescending(t *testing.T) {
	entry := types.NewDiffEntry()
	entry.Dirs = []types.DirDiff{
		{Path: "/root/small", Kind: types.DiffModify, SizeHereDelta: 10},
		{Path: "/root/big", Kind: types.DiffModify, SizeHereDelta: -1000},
		{Path: "/root/mid", Kind: types.DiffAdd, SizeHereDelta: 100},
	}

	var buf bytes.Buffer
	if err := Write(&buf, entry, Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.Contains(lines[0], "/root/big") {
		t.Errorf("first line = %q, want the largest-magnitude change first", lines[0])
	}
	if !strings.Contains(lines[len(lines)-1], "Total change is:") {
		t.Errorf("last line = %q, want a total", lines[len(lines)-1])
	}
}

func TestWriteSuppressesZeroDeltaModify(t *testing.T) {
	entry := types.NewDiffEntry()
	entry.Dirs = []types.DirDiff{
		{Path: "/root/untouched", Kind: types.DiffModify, SizeHereDelta: 0, SizeBelowDelta: 0},
	}

	var buf bytes.Buffer
	if err := Write(&buf, entry, Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(buf.String(), "/root/untouched") {
		t.Errorf("a zero-delta Modify should be suppressed, got:\n%s", buf.String())
	}
}

func TestWriteSuppressesZeroDeltaAddAndRemove(t *testing.T) {
	entry := types.NewDiffEntry()
	entry.Dirs = []types.DirDiff{
		{Path: "/root/emptyadd", Kind: types.DiffAdd},
		{Path: "/root/emptyrem", Kind: types.DiffRemove},
	}

	var buf bytes.Buffer
	if err := Write(&buf, entry, Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(buf.String(), "/root/emptyadd") || strings.Contains(buf.String(), "/root/emptyrem") {
		t.Errorf("a zero-delta Add/Remove (empty directory) should be suppressed, got:\n%s", buf.String())
	}
}

func TestWriteShowsMovesOnlyWhenRequested(t *testing.T) {
	entry := types.NewDiffEntry()
	entry.MoveToPaths["/root/old"] = "/root/new"

	var hidden bytes.Buffer
	if err := Write(&hidden, entry, Options{ShowMoves: false}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if strings.Contains(hidden.String(), "MOV:") {
		t.Error("moves should be hidden when ShowMoves is false")
	}

	var shown bytes.Buffer
	if err := Write(&shown, entry, Options{ShowMoves: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(shown.String(), "MOV: /root/old -> /root/new") {
		t.Errorf("expected a move line, got:\n%s", shown.String())
	}
}

func TestWriteTotalSumsNetSizes(t *testing.T) {
	entry := types.NewDiffEntry()
	entry.Dirs = []types.DirDiff{
		{Path: "/root/a", Kind: types.DiffAdd, SizeHereDelta: 30},
		{Path: "/root/b", Kind: types.DiffRemove, SizeHereDelta: -10},
	}

	var buf bytes.Buffer
	if err := Write(&buf, entry, Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "Total change is: +20B") {
		t.Errorf("expected total +20B, got:\n%s", buf.String())
	}
}
