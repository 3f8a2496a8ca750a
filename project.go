package phos

// maxColumns bounds canvas width when a snapshot or patch is applied.
const maxColumns = 4096

// maxCells bounds the total cell count a snapshot or patch may declare, so
// a corrupted or hostile document can never trigger a huge plane
// allocation.
const maxCells = 1 << 24

// ProjectState is the root aggregate persisted for one canvas: the current
// snapshot plus its undo/redo history and project-level metadata.
type ProjectState struct {
	Version      int
	UndoLimit    int // 0 = unlimited
	PaletteRef   PaletteRef
	PaletteTitle string
	Sauce        SauceMeta
	Current      ProjectSnapshot
	Undo         []UndoEntry
	Redo         []UndoEntry
}

// ProjectSnapshot is a complete copy of canvas state at one point in time.
// StateToken identifies the state for patch replay validation; it changes
// on every edit and is never zero for a live canvas.
type ProjectSnapshot struct {
	Columns     int
	Rows        int
	ActiveLayer int
	CaretRow    int
	CaretCol    int
	StateToken  uint64
	Layers      []ProjectLayer
}

// ProjectLayer holds one layer's metadata and cell planes. All four planes
// hold Columns*Rows entries of the owning snapshot; Normalize re-establishes
// that after deserialization or a geometry change.
type ProjectLayer struct {
	Name             string
	Visible          bool
	LockTransparency bool
	OffsetX          int
	OffsetY          int
	Cells            []rune   // Unicode scalar values
	Fg               []uint32 // 32-bit colour
	Bg               []uint32
	Attrs            []uint16 // attribute bitmask
}

// SauceMeta is the optional descriptive metadata block attached to a
// project. Present=false means no metadata; the remaining fields are then
// don't-care.
type SauceMeta struct {
	Present  bool
	Title    string
	Author   string
	Group    string
	Date     string
	FileSize uint32
	DataType uint8
	FileType uint8
	TInfo1   uint16
	TInfo2   uint16
	TInfo3   uint16
	TInfo4   uint16
	TFlags   uint8
	TInfoS   string
	Comments []string
}

// PaletteRef identifies the colour palette a project uses. Only builtin
// palettes are persisted; custom palettes are reserved for a future format
// generation.
type PaletteRef struct {
	Builtin uint32
}

func resizePlane[T rune | uint32 | uint16](p []T, n int) []T {
	if n <= 0 {
		return nil
	}
	if len(p) == n {
		return p
	}
	if len(p) > n {
		return p[:n]
	}
	out := make([]T, n)
	copy(out, p)
	return out
}

// Normalize pads or truncates every plane to columns*rows. A missing plane
// becomes an all-zero plane of the correct length, never a length mismatch.
func (l *ProjectLayer) Normalize(columns, rows int) {
	n := 0
	if columns > 0 && rows > 0 {
		n = columns * rows
	}
	l.Cells = resizePlane(l.Cells, n)
	l.Fg = resizePlane(l.Fg, n)
	l.Bg = resizePlane(l.Bg, n)
	l.Attrs = resizePlane(l.Attrs, n)
}

func (l *ProjectLayer) clone() ProjectLayer {
	out := *l
	out.Cells = append([]rune(nil), l.Cells...)
	out.Fg = append([]uint32(nil), l.Fg...)
	out.Bg = append([]uint32(nil), l.Bg...)
	out.Attrs = append([]uint16(nil), l.Attrs...)
	return out
}

// Clone deep-copies the snapshot; the copy shares no plane storage with the
// original.
func (s *ProjectSnapshot) Clone() *ProjectSnapshot {
	out := *s
	if s.Layers != nil {
		out.Layers = make([]ProjectLayer, len(s.Layers))
		for i := range s.Layers {
			out.Layers[i] = s.Layers[i].clone()
		}
	}
	return &out
}

// Clone deep-copies the whole project state, history included.
func (st *ProjectState) Clone() *ProjectState {
	out := *st
	out.Current = *st.Current.Clone()
	out.Sauce.Comments = append([]string(nil), st.Sauce.Comments...)
	if st.Undo != nil {
		out.Undo = make([]UndoEntry, len(st.Undo))
		for i := range st.Undo {
			out.Undo[i] = st.Undo[i].Clone()
		}
	}
	if st.Redo != nil {
		out.Redo = make([]UndoEntry, len(st.Redo))
		for i := range st.Redo {
			out.Redo[i] = st.Redo[i].Clone()
		}
	}
	return &out
}
