package phos

import (
	"errors"
	"reflect"
	"testing"
)

func testProject() *ProjectState {
	st := &ProjectState{
		Version:      1,
		UndoLimit:    50,
		PaletteRef:   PaletteRef{Builtin: 3},
		PaletteTitle: "xterm-256",
		Sauce: SauceMeta{
			Present:  true,
			Title:    "untitled",
			Author:   "anon",
			Group:    "blocktronics",
			Date:     "20260825",
			DataType: 1,
			FileType: 1,
			TInfo1:   80,
			TInfo2:   25,
		},
		Current: *testSnapshot(8, 4, 2, 17),
	}
	prev := testSnapshot(8, 4, 2, 16)
	st.Undo = append(st.Undo,
		NewSnapshotEntry(prev),
		NewPatchEntry(BuildPatch(prev, &st.Current)))
	st.Redo = append(st.Redo, NewSnapshotEntry(testSnapshot(8, 4, 2, 18)))
	return st
}

func TestDocumentRoundTrip(t *testing.T) {
	st := testProject()
	back, err := projectFromDocument(projectToDocument(st))
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if !reflect.DeepEqual(st, back) {
		t.Fatalf("round trip changed the project")
	}
}

func TestDocumentRoundTripZeroArea(t *testing.T) {
	st := &ProjectState{Version: 1, Current: ProjectSnapshot{StateToken: 1}}
	back, err := projectFromDocument(projectToDocument(st))
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if !reflect.DeepEqual(st, back) {
		t.Fatalf("round trip changed the zero-area project")
	}
}

func TestDocumentToleratesUnknownFields(t *testing.T) {
	doc := projectToDocument(testProject())
	doc["future_feature"] = map[string]any{"enabled": true}
	if _, err := projectFromDocument(doc); err != nil {
		t.Fatalf("unknown top-level field rejected: %v", err)
	}
}

func TestDocumentMagic(t *testing.T) {
	doc := projectToDocument(testProject())
	doc["magic"] = "something-else"
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrFormat) {
		t.Fatalf("wrong magic: got %v, want ErrFormat", err)
	}

	doc["magic"] = 42
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrFormat) {
		t.Fatalf("non-string magic: got %v, want ErrFormat", err)
	}

	delete(doc, "magic")
	if _, err := projectFromDocument(doc); err != nil {
		t.Fatalf("absent magic rejected: %v", err)
	}
}

func TestDocumentMissingCurrent(t *testing.T) {
	doc := projectToDocument(testProject())
	delete(doc, "current")
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("missing current: got %v, want ErrSchema", err)
	}
}

func TestSnapshotMandatoryGeometry(t *testing.T) {
	doc := projectToDocument(testProject())
	cur := doc["current"].(map[string]any)

	delete(cur, "columns")
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("missing columns: got %v, want ErrSchema", err)
	}

	cur["columns"] = -1
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("negative columns: got %v, want ErrSchema", err)
	}

	cur["columns"] = "eighty"
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("non-integer columns: got %v, want ErrSchema", err)
	}
}

func TestSnapshotHostileGeometry(t *testing.T) {
	fresh := func() (map[string]any, map[string]any) {
		doc := projectToDocument(testProject())
		return doc, doc["current"].(map[string]any)
	}

	doc, cur := fresh()
	cur["columns"] = uint64(1 << 30)
	cur["rows"] = uint64(1 << 30)
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("huge geometry: got %v, want ErrSchema", err)
	}

	doc, cur = fresh()
	cur["columns"] = uint64(80)
	cur["rows"] = uint64(1 << 40)
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("huge row count: got %v, want ErrSchema", err)
	}

	doc, cur = fresh()
	cur["columns"] = uint64(maxColumns + 1)
	cur["rows"] = uint64(1)
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("over-wide canvas: got %v, want ErrSchema", err)
	}
}

func TestPatchHostileGeometry(t *testing.T) {
	doc := projectToDocument(testProject())
	doc["undo"] = []any{map[string]any{
		"kind":    "patch",
		"columns": uint64(1 << 30),
		"rows":    uint64(1 << 30),
	}}
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("huge patch geometry: got %v, want ErrSchema", err)
	}
}

func TestStateTokenFullRange(t *testing.T) {
	st := &ProjectState{Version: 1, Current: *testSnapshot(2, 2, 1, 1<<63+5)}
	back, err := projectFromDocument(projectToDocument(st))
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if back.Current.StateToken != 1<<63+5 {
		t.Fatalf("state token = %d, want %d", back.Current.StateToken, uint64(1<<63+5))
	}
	if !reflect.DeepEqual(st, back) {
		t.Fatalf("round trip changed the project")
	}
}

func TestLayerMandatoryCells(t *testing.T) {
	doc := projectToDocument(testProject())
	layer := doc["current"].(map[string]any)["layers"].([]any)[0].(map[string]any)

	delete(layer, "cells")
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("missing cells: got %v, want ErrSchema", err)
	}
}

func TestLayerPlaneValidation(t *testing.T) {
	fresh := func() (map[string]any, map[string]any) {
		doc := projectToDocument(testProject())
		return doc, doc["current"].(map[string]any)["layers"].([]any)[0].(map[string]any)
	}

	doc, layer := fresh()
	layer["cells"] = []any{int64(-1)}
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("negative cell: got %v, want ErrSchema", err)
	}

	doc, layer = fresh()
	layer["cells"] = []any{"x"}
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("non-integer cell: got %v, want ErrSchema", err)
	}

	doc, layer = fresh()
	layer["fg"] = []any{int64(-5)}
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("negative fg: got %v, want ErrSchema", err)
	}

	doc, layer = fresh()
	layer["attrs"] = []any{uint64(70000)}
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("oversized attr: got %v, want ErrSchema", err)
	}
}

func TestLayerMissingPlanesZeroFilled(t *testing.T) {
	doc := projectToDocument(testProject())
	layer := doc["current"].(map[string]any)["layers"].([]any)[0].(map[string]any)
	delete(layer, "fg")
	delete(layer, "bg")
	delete(layer, "attrs")

	st, err := projectFromDocument(doc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	l := st.Current.Layers[0]
	n := st.Current.Columns * st.Current.Rows
	if len(l.Fg) != n || len(l.Bg) != n || len(l.Attrs) != n {
		t.Fatalf("missing planes not zero-filled: %d/%d/%d, want %d",
			len(l.Fg), len(l.Bg), len(l.Attrs), n)
	}
	for i := 0; i < n; i++ {
		if l.Fg[i] != 0 || l.Bg[i] != 0 || l.Attrs[i] != 0 {
			t.Fatalf("zero-filled plane holds nonzero value at %d", i)
		}
	}
}

func TestUndoLimitNegativeMeansUnlimited(t *testing.T) {
	doc := projectToDocument(testProject())
	doc["undo_limit"] = int64(-5)
	st, err := projectFromDocument(doc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if st.UndoLimit != 0 {
		t.Fatalf("UndoLimit = %d, want 0", st.UndoLimit)
	}
}

func TestLegacyBareSnapshotEntry(t *testing.T) {
	// Entries written before the tagged format were snapshot objects with no
	// "kind" wrapper.
	bare := snapshotToDocument(testSnapshot(4, 2, 1, 3))
	doc := projectToDocument(testProject())
	doc["undo"] = []any{bare}

	st, err := projectFromDocument(doc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(st.Undo) != 1 || st.Undo[0].Kind != EntrySnapshot {
		t.Fatalf("legacy bare snapshot not recognized")
	}
	if st.Undo[0].Snapshot.Columns != 4 || st.Undo[0].Snapshot.StateToken != 3 {
		t.Fatalf("legacy bare snapshot parsed with wrong content")
	}
}

func TestTaggedKindBeatsShape(t *testing.T) {
	// A patch entry also carries "columns" and "layers"; the tag must win
	// over the structural sniff.
	prev := testSnapshot(4, 2, 1, 3)
	next := prev.Clone()
	next.StateToken = 4
	next.Layers[0].Cells[0] = 'X'
	doc := projectToDocument(testProject())
	doc["undo"] = []any{entryToDocument(&UndoEntry{Kind: EntryPatch, Patch: BuildPatch(prev, next)})}

	st, err := projectFromDocument(doc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(st.Undo) != 1 || st.Undo[0].Kind != EntryPatch {
		t.Fatalf("tagged patch entry not recognized as patch")
	}
}

func TestTaggedSnapshotEntryMissingBody(t *testing.T) {
	doc := projectToDocument(testProject())
	doc["undo"] = []any{map[string]any{"kind": "snapshot"}}
	if _, err := projectFromDocument(doc); !errors.Is(err, ErrSchema) {
		t.Fatalf("snapshot entry without body: got %v, want ErrSchema", err)
	}
}
