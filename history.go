package phos

import "fmt"

// EntryKind discriminates the two undo entry variants. An entry's kind is
// fixed at construction.
type EntryKind int

const (
	// EntrySnapshot is a full copy of canvas state.
	EntrySnapshot EntryKind = iota

	// EntryPatch records only the rows that changed against a base state.
	EntryPatch
)

// UndoEntry is a closed sum over the two history entry variants: exactly one
// of Snapshot or Patch is set, selected by Kind. Consumers must switch on
// Kind and handle both.
type UndoEntry struct {
	Kind     EntryKind
	Snapshot *ProjectSnapshot
	Patch    *ProjectPatch
}

// NewSnapshotEntry wraps a full snapshot as a history entry.
func NewSnapshotEntry(s *ProjectSnapshot) UndoEntry {
	return UndoEntry{Kind: EntrySnapshot, Snapshot: s}
}

// NewPatchEntry wraps a patch as a history entry.
func NewPatchEntry(p *ProjectPatch) UndoEntry {
	return UndoEntry{Kind: EntryPatch, Patch: p}
}

// Clone deep-copies the entry.
func (e UndoEntry) Clone() UndoEntry {
	switch e.Kind {
	case EntryPatch:
		if e.Patch != nil {
			return NewPatchEntry(e.Patch.Clone())
		}
	default:
		if e.Snapshot != nil {
			return NewSnapshotEntry(e.Snapshot.Clone())
		}
	}
	return e
}

// ProjectPatch records the geometry, per-layer metadata and changed row
// pages needed to restore a prior canvas state. A patch is meaningful only
// relative to the state it was captured against; BaseToken identifies that
// state and is checked before the patch is replayed. StateToken is the
// token of the state the patch restores, so chains of patch entries keep
// validating as they are replayed one after another. Entries written before
// base tokens existed carry a zero BaseToken and skip the check.
type ProjectPatch struct {
	Columns     int
	Rows        int
	ActiveLayer int
	CaretRow    int
	CaretCol    int
	StateToken  uint64
	BaseToken   uint64
	PageRows    int
	Layers      []PatchLayerMeta
	Pages       []PatchPage
}

// PatchLayerMeta mirrors a layer's metadata without its cell planes.
type PatchLayerMeta struct {
	Name             string
	Visible          bool
	LockTransparency bool
	OffsetX          int
	OffsetY          int
}

// PatchPage holds RowCount rows of one layer starting at row Page*PageRows.
// Every plane holds RowCount*Columns entries of the owning patch.
type PatchPage struct {
	Layer    int
	Page     int
	PageRows int
	RowCount int
	Cells    []rune
	Fg       []uint32
	Bg       []uint32
	Attrs    []uint16
}

// Clone deep-copies the patch.
func (p *ProjectPatch) Clone() *ProjectPatch {
	out := *p
	out.Layers = append([]PatchLayerMeta(nil), p.Layers...)
	if p.Pages != nil {
		out.Pages = make([]PatchPage, len(p.Pages))
		for i := range p.Pages {
			pg := p.Pages[i]
			pg.Cells = append([]rune(nil), pg.Cells...)
			pg.Fg = append([]uint32(nil), pg.Fg...)
			pg.Bg = append([]uint32(nil), pg.Bg...)
			pg.Attrs = append([]uint16(nil), pg.Attrs...)
			out.Pages[i] = pg
		}
	}
	return &out
}

func planeAt[T rune | uint32 | uint16](p []T, i int) T {
	if i < len(p) {
		return p[i]
	}
	var zero T
	return zero
}

func rowsEqual(a, b *ProjectLayer, row, cols int) bool {
	base := row * cols
	for c := 0; c < cols; c++ {
		i := base + c
		if planeAt(a.Cells, i) != planeAt(b.Cells, i) ||
			planeAt(a.Fg, i) != planeAt(b.Fg, i) ||
			planeAt(a.Bg, i) != planeAt(b.Bg, i) ||
			planeAt(a.Attrs, i) != planeAt(b.Attrs, i) {
			return false
		}
	}
	return true
}

func capturePage(l *ProjectLayer, layer, startRow, rowCount, cols int) PatchPage {
	n := rowCount * cols
	pg := PatchPage{
		Layer:    layer,
		Page:     startRow,
		PageRows: 1,
		RowCount: rowCount,
		Cells:    make([]rune, n),
		Fg:       make([]uint32, n),
		Bg:       make([]uint32, n),
		Attrs:    make([]uint16, n),
	}
	for r := 0; r < rowCount; r++ {
		src := (startRow + r) * cols
		dst := r * cols
		for c := 0; c < cols; c++ {
			pg.Cells[dst+c] = planeAt(l.Cells, src+c)
			pg.Fg[dst+c] = planeAt(l.Fg, src+c)
			pg.Bg[dst+c] = planeAt(l.Bg, src+c)
			pg.Attrs[dst+c] = planeAt(l.Attrs, src+c)
		}
	}
	return pg
}

// BuildPatch records what is needed to restore prev after an edit that
// produced next. One page is emitted per maximal run of rows whose content
// differs, so history memory tracks edit size rather than canvas size. The
// patch can only be replayed against next's state and restores prev's state
// token along with its content. When the edit changed canvas geometry or
// layer count, every existing row of the affected layers is captured;
// callers that know the whole canvas changed should push a snapshot entry
// instead.
func BuildPatch(prev, next *ProjectSnapshot) *ProjectPatch {
	p := &ProjectPatch{
		Columns:     prev.Columns,
		Rows:        prev.Rows,
		ActiveLayer: prev.ActiveLayer,
		CaretRow:    prev.CaretRow,
		CaretCol:    prev.CaretCol,
		StateToken:  prev.StateToken,
		BaseToken:   next.StateToken,
		PageRows:    1,
	}
	for i := range prev.Layers {
		l := &prev.Layers[i]
		p.Layers = append(p.Layers, PatchLayerMeta{
			Name:             l.Name,
			Visible:          l.Visible,
			LockTransparency: l.LockTransparency,
			OffsetX:          l.OffsetX,
			OffsetY:          l.OffsetY,
		})
	}
	if prev.Columns <= 0 || prev.Rows <= 0 {
		return p
	}
	sameGeometry := prev.Columns == next.Columns && prev.Rows == next.Rows
	for li := range prev.Layers {
		var nl *ProjectLayer
		if sameGeometry && li < len(next.Layers) {
			nl = &next.Layers[li]
		}
		run := -1
		for r := 0; r <= prev.Rows; r++ {
			changed := r < prev.Rows &&
				(nl == nil || !rowsEqual(&prev.Layers[li], nl, r, prev.Columns))
			if changed && run < 0 {
				run = r
			}
			if !changed && run >= 0 {
				p.Pages = append(p.Pages, capturePage(&prev.Layers[li], li, run, r-run, prev.Columns))
				run = -1
			}
		}
	}
	return p
}

// ApplyPatch replays p against cur and returns the restored snapshot,
// which carries p's restored state token. It refuses with ErrStateMismatch
// when p was captured against a different state than cur; no repair is
// attempted. Pages that fall outside the restored extent, or whose plane
// lengths disagree with RowCount*Columns, are skipped the way the
// steady-state apply path always has.
func ApplyPatch(cur *ProjectSnapshot, p *ProjectPatch) (*ProjectSnapshot, error) {
	if p.BaseToken != 0 && p.BaseToken != cur.StateToken {
		return nil, fmt.Errorf("%w: patch base token %d, state token %d",
			ErrStateMismatch, p.BaseToken, cur.StateToken)
	}

	out := &ProjectSnapshot{
		Columns:     cur.Columns,
		Rows:        1,
		ActiveLayer: p.ActiveLayer,
		CaretRow:    p.CaretRow,
		CaretCol:    p.CaretCol,
		StateToken:  p.StateToken,
	}
	if p.Columns > 0 {
		out.Columns = p.Columns
	}
	if out.Columns > maxColumns {
		out.Columns = maxColumns
	}
	if p.Rows > 0 {
		out.Rows = p.Rows
	}
	if out.Columns > 0 && out.Rows > maxCells/out.Columns {
		out.Rows = maxCells / out.Columns
	}

	out.Layers = make([]ProjectLayer, len(p.Layers))
	for i := range p.Layers {
		if i < len(cur.Layers) {
			out.Layers[i] = cur.Layers[i].clone()
		}
		m := &p.Layers[i]
		l := &out.Layers[i]
		l.Name = m.Name
		l.Visible = m.Visible
		l.LockTransparency = m.LockTransparency
		l.OffsetX = m.OffsetX
		l.OffsetY = m.OffsetY
		l.Normalize(out.Columns, out.Rows)
	}

	cols := out.Columns
	for i := range p.Pages {
		pg := &p.Pages[i]
		if pg.Layer < 0 || pg.Layer >= len(out.Layers) {
			continue
		}
		start := pg.Page * pg.PageRows
		if start < 0 || pg.RowCount <= 0 || cols <= 0 || start >= out.Rows {
			continue
		}
		expected := pg.RowCount * cols
		if len(pg.Cells) != expected || len(pg.Fg) != expected ||
			len(pg.Bg) != expected || len(pg.Attrs) != expected {
			continue
		}
		rows := min(pg.RowCount, out.Rows-start)
		l := &out.Layers[pg.Layer]
		for r := 0; r < rows; r++ {
			dst := (start + r) * cols
			src := r * cols
			copy(l.Cells[dst:dst+cols], pg.Cells[src:src+cols])
			copy(l.Fg[dst:dst+cols], pg.Fg[src:src+cols])
			copy(l.Bg[dst:dst+cols], pg.Bg[src:src+cols])
			copy(l.Attrs[dst:dst+cols], pg.Attrs[src:src+cols])
		}
	}

	out.clampInteraction()
	return out, nil
}

// mirrorPatch captures cur's content at the same granularity as src, so an
// applied patch can be reversed again.
func mirrorPatch(cur *ProjectSnapshot, src *ProjectPatch) *ProjectPatch {
	p := &ProjectPatch{
		Columns:     cur.Columns,
		Rows:        cur.Rows,
		ActiveLayer: cur.ActiveLayer,
		CaretRow:    cur.CaretRow,
		CaretCol:    cur.CaretCol,
		StateToken:  cur.StateToken,
		PageRows:    src.PageRows,
	}
	p.BaseToken = src.StateToken
	for i := range cur.Layers {
		l := &cur.Layers[i]
		p.Layers = append(p.Layers, PatchLayerMeta{
			Name:             l.Name,
			Visible:          l.Visible,
			LockTransparency: l.LockTransparency,
			OffsetX:          l.OffsetX,
			OffsetY:          l.OffsetY,
		})
	}
	for i := range src.Pages {
		sp := &src.Pages[i]
		if sp.Layer < 0 || sp.Layer >= len(cur.Layers) || cur.Columns <= 0 {
			continue
		}
		start := sp.Page * sp.PageRows
		if start < 0 || start >= cur.Rows {
			continue
		}
		rows := min(sp.RowCount, cur.Rows-start)
		if rows <= 0 {
			continue
		}
		pg := capturePage(&cur.Layers[sp.Layer], sp.Layer, start, rows, cur.Columns)
		pg.Page = sp.Page
		pg.PageRows = sp.PageRows
		p.Pages = append(p.Pages, pg)
	}
	return p
}

// clampInteraction re-establishes caret and active-layer invariants after a
// restore.
func (s *ProjectSnapshot) clampInteraction() {
	if s.CaretRow < 0 {
		s.CaretRow = 0
	}
	if s.CaretCol < 0 {
		s.CaretCol = 0
	}
	if s.Columns > 0 && s.CaretCol >= s.Columns {
		s.CaretCol = s.Columns - 1
	}
	if s.ActiveLayer < 0 {
		s.ActiveLayer = 0
	}
	if len(s.Layers) > 0 && s.ActiveLayer >= len(s.Layers) {
		s.ActiveLayer = len(s.Layers) - 1
	}
}

// applySnapshot replaces Current with a sanitized copy of s.
func (st *ProjectState) applySnapshot(s *ProjectSnapshot) {
	out := s.Clone()
	if out.Columns <= 0 {
		out.Columns = 80
	}
	if out.Columns > maxColumns {
		out.Columns = maxColumns
	}
	if out.Rows <= 0 {
		out.Rows = 1
	}
	if out.StateToken == 0 {
		out.StateToken = 1
	}
	for i := range out.Layers {
		out.Layers[i].Normalize(out.Columns, out.Rows)
	}
	out.clampInteraction()
	st.Current = *out
}

// PushUndo appends an entry to the undo stack, trims the oldest entries
// beyond UndoLimit, and clears the redo stack: any new edit invalidates
// redo.
func (st *ProjectState) PushUndo(e UndoEntry) {
	st.Undo = append(st.Undo, e)
	st.Undo = trimOldest(st.Undo, st.UndoLimit)
	st.Redo = nil
}

// SetUndoLimit updates the capacity of both stacks and trims existing
// entries to fit. A limit of zero or below means unlimited.
func (st *ProjectState) SetUndoLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	st.UndoLimit = limit
	if limit == 0 {
		return
	}
	st.Undo = trimOldest(st.Undo, limit)
	st.Redo = trimOldest(st.Redo, limit)
}

func trimOldest(entries []UndoEntry, limit int) []UndoEntry {
	if limit <= 0 || len(entries) <= limit {
		return entries
	}
	return append([]UndoEntry(nil), entries[len(entries)-limit:]...)
}

// CanUndo reports whether an undo entry is available.
func (st *ProjectState) CanUndo() bool { return len(st.Undo) > 0 }

// CanRedo reports whether a redo entry is available.
func (st *ProjectState) CanRedo() bool { return len(st.Redo) > 0 }

// UndoStep pops the newest undo entry, captures the inverse of Current at
// the same granularity onto the redo stack, and applies the entry to
// Current. A patch entry that cannot be replayed against Current reports
// ErrStateMismatch and leaves the state and both stacks untouched.
func (st *ProjectState) UndoStep() error {
	if len(st.Undo) == 0 {
		return fmt.Errorf("%w: nothing to undo", ErrHistoryEmpty)
	}
	prev := st.Undo[len(st.Undo)-1]

	var inverse UndoEntry
	switch prev.Kind {
	case EntryPatch:
		inverse = NewPatchEntry(mirrorPatch(&st.Current, prev.Patch))
	default:
		inverse = NewSnapshotEntry(st.Current.Clone())
	}

	switch prev.Kind {
	case EntryPatch:
		restored, err := ApplyPatch(&st.Current, prev.Patch)
		if err != nil {
			return err
		}
		st.Current = *restored
	default:
		st.applySnapshot(prev.Snapshot)
	}

	st.Undo = st.Undo[:len(st.Undo)-1]
	st.Redo = append(st.Redo, inverse)
	return nil
}

// RedoStep pops the newest redo entry, captures the inverse of Current onto
// the undo stack (trimmed to UndoLimit), and applies the entry to Current.
// Unlike PushUndo it does not clear the redo stack.
func (st *ProjectState) RedoStep() error {
	if len(st.Redo) == 0 {
		return fmt.Errorf("%w: nothing to redo", ErrHistoryEmpty)
	}
	next := st.Redo[len(st.Redo)-1]

	var inverse UndoEntry
	switch next.Kind {
	case EntryPatch:
		inverse = NewPatchEntry(mirrorPatch(&st.Current, next.Patch))
	default:
		inverse = NewSnapshotEntry(st.Current.Clone())
	}

	switch next.Kind {
	case EntryPatch:
		restored, err := ApplyPatch(&st.Current, next.Patch)
		if err != nil {
			return err
		}
		st.Current = *restored
	default:
		st.applySnapshot(next.Snapshot)
	}

	st.Redo = st.Redo[:len(st.Redo)-1]
	st.Undo = append(st.Undo, inverse)
	st.Undo = trimOldest(st.Undo, st.UndoLimit)
	return nil
}
