// Package phos persists grid-based art canvas projects: layers of Unicode
// glyphs with colour and attribute planes, together with their undo/redo
// history. It provides the versioned compressed container format used for
// project files, the document schema between the in-memory project tree and
// its serialized form, the snapshot/patch undo entry model that keeps long
// edit histories compact, and a session cache of per-canvas container files.
//
// All operations are synchronous; the package performs no internal locking
// and assumes the caller serializes access to a given canvas's state.
package phos
