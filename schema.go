package phos

import (
	"fmt"
	"math"
)

// documentMagic is the top-level discriminator of a project document. A
// present-but-different magic fails the parse; an absent one is accepted,
// since documents written before the discriminator existed lack it.
const documentMagic = "phosphor-canvas"

// ---------------------------------------------------------------------------
// Project tree -> document
// ---------------------------------------------------------------------------

func projectToDocument(st *ProjectState) map[string]any {
	doc := map[string]any{
		"magic":       documentMagic,
		"version":     st.Version,
		"undo_limit":  st.UndoLimit,
		"palette_ref": map[string]any{"builtin": st.PaletteRef.Builtin},
		"sauce":       sauceToDocument(&st.Sauce),
		"current":     snapshotToDocument(&st.Current),
		"undo":        entriesToDocument(st.Undo),
		"redo":        entriesToDocument(st.Redo),
	}
	if st.PaletteTitle != "" {
		doc["colour_palette_title"] = st.PaletteTitle
	}
	return doc
}

func sauceToDocument(s *SauceMeta) map[string]any {
	comments := make([]any, 0, len(s.Comments))
	for _, c := range s.Comments {
		comments = append(comments, c)
	}
	return map[string]any{
		"present":   s.Present,
		"title":     s.Title,
		"author":    s.Author,
		"group":     s.Group,
		"date":      s.Date,
		"file_size": s.FileSize,
		"data_type": s.DataType,
		"file_type": s.FileType,
		"tinfo1":    s.TInfo1,
		"tinfo2":    s.TInfo2,
		"tinfo3":    s.TInfo3,
		"tinfo4":    s.TInfo4,
		"tflags":    s.TFlags,
		"tinfos":    s.TInfoS,
		"comments":  comments,
	}
}

func snapshotToDocument(s *ProjectSnapshot) map[string]any {
	layers := make([]any, 0, len(s.Layers))
	for i := range s.Layers {
		layers = append(layers, layerToDocument(&s.Layers[i]))
	}
	return map[string]any{
		"columns":      s.Columns,
		"rows":         s.Rows,
		"active_layer": s.ActiveLayer,
		"caret_row":    s.CaretRow,
		"caret_col":    s.CaretCol,
		"state_token":  s.StateToken,
		"layers":       layers,
	}
}

func layerToDocument(l *ProjectLayer) map[string]any {
	// Glyphs are stored as unsigned 32-bit scalar values, never as a native
	// character type, so the encoded form stays unambiguous.
	cells := make([]any, len(l.Cells))
	for i, r := range l.Cells {
		cells[i] = uint32(r)
	}
	return map[string]any{
		"name":              l.Name,
		"visible":           l.Visible,
		"lock_transparency": l.LockTransparency,
		"offset_x":          l.OffsetX,
		"offset_y":          l.OffsetY,
		"cells":             cells,
		"fg":                u32PlaneToDocument(l.Fg),
		"bg":                u32PlaneToDocument(l.Bg),
		"attrs":             attrPlaneToDocument(l.Attrs),
	}
}

func u32PlaneToDocument(p []uint32) []any {
	out := make([]any, len(p))
	for i, v := range p {
		out[i] = v
	}
	return out
}

func attrPlaneToDocument(p []uint16) []any {
	out := make([]any, len(p))
	for i, v := range p {
		out[i] = v
	}
	return out
}

func entriesToDocument(entries []UndoEntry) []any {
	out := make([]any, 0, len(entries))
	for i := range entries {
		out = append(out, entryToDocument(&entries[i]))
	}
	return out
}

func entryToDocument(e *UndoEntry) map[string]any {
	if e.Kind == EntryPatch && e.Patch != nil {
		p := e.Patch
		layers := make([]any, 0, len(p.Layers))
		for _, lm := range p.Layers {
			layers = append(layers, map[string]any{
				"name":              lm.Name,
				"visible":           lm.Visible,
				"lock_transparency": lm.LockTransparency,
				"offset_x":          lm.OffsetX,
				"offset_y":          lm.OffsetY,
			})
		}
		pages := make([]any, 0, len(p.Pages))
		for i := range p.Pages {
			pg := &p.Pages[i]
			cells := make([]any, len(pg.Cells))
			for j, r := range pg.Cells {
				cells[j] = uint32(r)
			}
			pages = append(pages, map[string]any{
				"layer":     pg.Layer,
				"page":      pg.Page,
				"page_rows": pg.PageRows,
				"row_count": pg.RowCount,
				"cells":     cells,
				"fg":        u32PlaneToDocument(pg.Fg),
				"bg":        u32PlaneToDocument(pg.Bg),
				"attrs":     attrPlaneToDocument(pg.Attrs),
			})
		}
		return map[string]any{
			"kind":         "patch",
			"columns":      p.Columns,
			"rows":         p.Rows,
			"active_layer": p.ActiveLayer,
			"caret_row":    p.CaretRow,
			"caret_col":    p.CaretCol,
			"state_token":  p.StateToken,
			"base_token":   p.BaseToken,
			"page_rows":    p.PageRows,
			"layers":       layers,
			"pages":        pages,
		}
	}
	return map[string]any{
		"kind":     "snapshot",
		"snapshot": snapshotToDocument(e.Snapshot),
	}
}

// ---------------------------------------------------------------------------
// Document -> project tree
// ---------------------------------------------------------------------------

func projectFromDocument(doc map[string]any) (*ProjectState, error) {
	if v, ok := doc["magic"]; ok {
		s, isString := v.(string)
		if !isString || s != documentMagic {
			return nil, fmt.Errorf("%w: not a %s document", ErrFormat, documentMagic)
		}
	}

	st := &ProjectState{}
	st.Version = docInt(doc, "version")

	// undo_limit may arrive signed or unsigned; signed values at or below
	// zero mean unlimited.
	if n, ok := intFromAny(doc["undo_limit"]); ok && n > 0 {
		st.UndoLimit = int(n)
	}

	if pm, ok := docMap(doc["palette_ref"]); ok {
		st.PaletteRef.Builtin = uint32(docUint64(pm, "builtin"))
	}
	st.PaletteTitle = docString(doc, "colour_palette_title")
	if sm, ok := docMap(doc["sauce"]); ok {
		st.Sauce = sauceFromDocument(sm)
	}

	cm, ok := docMap(doc["current"])
	if !ok {
		return nil, fmt.Errorf("%w: project missing 'current' snapshot", ErrSchema)
	}
	cur, err := snapshotFromDocument(cm)
	if err != nil {
		return nil, err
	}
	st.Current = *cur

	if st.Undo, err = entriesFromDocument(doc["undo"]); err != nil {
		return nil, err
	}
	if st.Redo, err = entriesFromDocument(doc["redo"]); err != nil {
		return nil, err
	}
	return st, nil
}

func sauceFromDocument(m map[string]any) SauceMeta {
	return SauceMeta{
		Present:  docBool(m, "present"),
		Title:    docString(m, "title"),
		Author:   docString(m, "author"),
		Group:    docString(m, "group"),
		Date:     docString(m, "date"),
		FileSize: uint32(docUint64(m, "file_size")),
		DataType: uint8(docUint64(m, "data_type")),
		FileType: uint8(docUint64(m, "file_type")),
		TInfo1:   uint16(docUint64(m, "tinfo1")),
		TInfo2:   uint16(docUint64(m, "tinfo2")),
		TInfo3:   uint16(docUint64(m, "tinfo3")),
		TInfo4:   uint16(docUint64(m, "tinfo4")),
		TFlags:   uint8(docUint64(m, "tflags")),
		TInfoS:   docString(m, "tinfos"),
		Comments: docStrings(m, "comments"),
	}
}

func snapshotFromDocument(m map[string]any) (*ProjectSnapshot, error) {
	cols, ok := docIntStrict(m, "columns")
	if !ok {
		return nil, fmt.Errorf("%w: snapshot missing 'columns'", ErrSchema)
	}
	rows, ok := docIntStrict(m, "rows")
	if !ok {
		return nil, fmt.Errorf("%w: snapshot missing 'rows'", ErrSchema)
	}
	if cols < 0 || rows < 0 {
		return nil, fmt.Errorf("%w: snapshot geometry %dx%d is negative", ErrSchema, cols, rows)
	}
	if cols > maxColumns || (cols > 0 && rows > maxCells/cols) {
		return nil, fmt.Errorf("%w: snapshot geometry %dx%d out of range", ErrSchema, cols, rows)
	}

	s := &ProjectSnapshot{
		Columns:     cols,
		Rows:        rows,
		ActiveLayer: docInt(m, "active_layer"),
		CaretRow:    docInt(m, "caret_row"),
		CaretCol:    docInt(m, "caret_col"),
		StateToken:  docUint64(m, "state_token"),
	}
	if arr, ok := docArray(m["layers"]); ok {
		for _, v := range arr {
			lm, ok := docMap(v)
			if !ok {
				return nil, fmt.Errorf("%w: layer is not an object", ErrSchema)
			}
			l, err := layerFromDocument(lm)
			if err != nil {
				return nil, err
			}
			l.Normalize(cols, rows)
			s.Layers = append(s.Layers, *l)
		}
	}
	return s, nil
}

func layerFromDocument(m map[string]any) (*ProjectLayer, error) {
	l := &ProjectLayer{
		Name:             docString(m, "name"),
		Visible:          docBool(m, "visible"),
		LockTransparency: docBool(m, "lock_transparency"),
		OffsetX:          docInt(m, "offset_x"),
		OffsetY:          docInt(m, "offset_y"),
	}
	cells, err := cellPlaneFromDocument(m, "layer")
	if err != nil {
		return nil, err
	}
	l.Cells = cells

	n := len(cells)
	if l.Fg, err = u32PlaneFromDocument(m["fg"], n, "fg"); err != nil {
		return nil, err
	}
	if l.Bg, err = u32PlaneFromDocument(m["bg"], n, "bg"); err != nil {
		return nil, err
	}
	if l.Attrs, err = attrPlaneFromDocument(m["attrs"], n); err != nil {
		return nil, err
	}
	return l, nil
}

// cellPlaneFromDocument parses the mandatory glyph array of a layer or
// patch page. where names the owner in error messages.
func cellPlaneFromDocument(m map[string]any, where string) ([]rune, error) {
	v, present := m["cells"]
	if !present {
		return nil, fmt.Errorf("%w: %s missing 'cells' array", ErrSchema, where)
	}
	arr, ok := docArray(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s 'cells' is not an array", ErrSchema, where)
	}
	var out []rune
	for _, e := range arr {
		n, ok := intFromAny(e)
		if !ok {
			return nil, fmt.Errorf("%w: %s 'cells' contains a non-integer value", ErrSchema, where)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: %s 'cells' contains a negative codepoint", ErrSchema, where)
		}
		if n > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %s 'cells' value %d out of range", ErrSchema, where, n)
		}
		out = append(out, rune(uint32(n)))
	}
	return out, nil
}

// u32PlaneFromDocument parses an optional colour plane; a missing or
// non-array value defaults to an all-zero plane sized from the cells array.
func u32PlaneFromDocument(v any, n int, field string) ([]uint32, error) {
	arr, ok := docArray(v)
	if !ok {
		if n == 0 {
			return nil, nil
		}
		return make([]uint32, n), nil
	}
	var out []uint32
	for _, e := range arr {
		i, ok := intFromAny(e)
		if !ok {
			return nil, fmt.Errorf("%w: '%s' contains a non-integer value", ErrSchema, field)
		}
		if i < 0 {
			return nil, fmt.Errorf("%w: '%s' contains a negative value", ErrSchema, field)
		}
		if i > math.MaxUint32 {
			return nil, fmt.Errorf("%w: '%s' value %d out of range", ErrSchema, field, i)
		}
		out = append(out, uint32(i))
	}
	return out, nil
}

func attrPlaneFromDocument(v any, n int) ([]uint16, error) {
	arr, ok := docArray(v)
	if !ok {
		if n == 0 {
			return nil, nil
		}
		return make([]uint16, n), nil
	}
	var out []uint16
	for _, e := range arr {
		i, ok := intFromAny(e)
		if !ok {
			return nil, fmt.Errorf("%w: 'attrs' contains a non-integer value", ErrSchema)
		}
		if i < 0 {
			return nil, fmt.Errorf("%w: 'attrs' contains a negative value", ErrSchema)
		}
		if i > math.MaxUint16 {
			return nil, fmt.Errorf("%w: 'attrs' value %d out of range", ErrSchema, i)
		}
		out = append(out, uint16(i))
	}
	return out, nil
}

func entriesFromDocument(v any) ([]UndoEntry, error) {
	arr, ok := docArray(v)
	if !ok {
		return nil, nil
	}
	var out []UndoEntry
	for _, e := range arr {
		m, ok := docMap(e)
		if !ok {
			return nil, fmt.Errorf("%w: history entry is not an object", ErrSchema)
		}
		entry, err := entryFromDocument(m)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// legacyBareSnapshot reports whether a history entry predates the tagged
// format: no "kind" field, but the structural shape of a bare snapshot.
// Patch entries also carry "columns" and "layers", so a present "kind"
// always wins over shape.
func legacyBareSnapshot(m map[string]any) bool {
	if _, tagged := m["kind"]; tagged {
		return false
	}
	_, hasColumns := m["columns"]
	_, hasLayers := m["layers"]
	return hasColumns && hasLayers
}

func entryFromDocument(m map[string]any) (UndoEntry, error) {
	if legacyBareSnapshot(m) {
		s, err := snapshotFromDocument(m)
		if err != nil {
			return UndoEntry{}, err
		}
		return NewSnapshotEntry(s), nil
	}

	kind := "snapshot"
	if s, ok := m["kind"].(string); ok {
		kind = s
	}
	if kind == "patch" {
		p, err := patchFromDocument(m)
		if err != nil {
			return UndoEntry{}, err
		}
		return NewPatchEntry(p), nil
	}

	sm, ok := docMap(m["snapshot"])
	if !ok {
		return UndoEntry{}, fmt.Errorf("%w: snapshot entry missing 'snapshot'", ErrSchema)
	}
	s, err := snapshotFromDocument(sm)
	if err != nil {
		return UndoEntry{}, err
	}
	return NewSnapshotEntry(s), nil
}

func patchFromDocument(m map[string]any) (*ProjectPatch, error) {
	p := &ProjectPatch{
		Columns:     docInt(m, "columns"),
		Rows:        docInt(m, "rows"),
		ActiveLayer: docInt(m, "active_layer"),
		CaretRow:    docInt(m, "caret_row"),
		CaretCol:    docInt(m, "caret_col"),
		StateToken:  docUint64(m, "state_token"),
		BaseToken:   docUint64(m, "base_token"),
		PageRows:    docInt(m, "page_rows"),
	}
	if p.Columns > maxColumns || (p.Columns > 0 && p.Rows > maxCells/p.Columns) {
		return nil, fmt.Errorf("%w: patch geometry %dx%d out of range", ErrSchema, p.Columns, p.Rows)
	}
	if arr, ok := docArray(m["layers"]); ok {
		for _, v := range arr {
			lm, ok := docMap(v)
			if !ok {
				continue
			}
			p.Layers = append(p.Layers, PatchLayerMeta{
				Name:             docString(lm, "name"),
				Visible:          docBool(lm, "visible"),
				LockTransparency: docBool(lm, "lock_transparency"),
				OffsetX:          docInt(lm, "offset_x"),
				OffsetY:          docInt(lm, "offset_y"),
			})
		}
	}
	if arr, ok := docArray(m["pages"]); ok {
		for _, v := range arr {
			pm, ok := docMap(v)
			if !ok {
				continue
			}
			pg := PatchPage{
				Layer:    docInt(pm, "layer"),
				Page:     docInt(pm, "page"),
				PageRows: docInt(pm, "page_rows"),
				RowCount: docInt(pm, "row_count"),
			}
			cells, err := cellPlaneFromDocument(pm, "patch page")
			if err != nil {
				return nil, err
			}
			pg.Cells = cells
			n := len(cells)
			if pg.Fg, err = u32PlaneFromDocument(pm["fg"], n, "fg"); err != nil {
				return nil, err
			}
			if pg.Bg, err = u32PlaneFromDocument(pm["bg"], n, "bg"); err != nil {
				return nil, err
			}
			if pg.Attrs, err = attrPlaneFromDocument(pm["attrs"], n); err != nil {
				return nil, err
			}
			p.Pages = append(p.Pages, pg)
		}
	}
	return p, nil
}
