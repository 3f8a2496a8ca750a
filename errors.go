package phos

import "errors"

// I/O errors
var (
	// ErrIO indicates an operating system open, read, write or rename
	// failure. The underlying os error is wrapped and remains reachable
	// through errors.Is / errors.As.
	ErrIO = errors.New("i/o failure")
)

// Container and document errors
var (
	// ErrFormat indicates a malformed container or document envelope: a bad
	// magic where one is required, an unsupported format version, a
	// truncated header, an undecodable document, or invalid text encoding.
	ErrFormat = errors.New("invalid format")

	// ErrSchema indicates a document that decoded but violates the project
	// schema: a missing mandatory field, a wrong field type, or a negative
	// value where an unsigned one is required.
	ErrSchema = errors.New("invalid document schema")
)

// Codec errors
var (
	// ErrCompression indicates a failure inside the compression codec.
	ErrCompression = errors.New("compression codec failure")

	// ErrCorruption indicates that decompressed data does not match its
	// declared uncompressed length, or that the declared length exceeds the
	// codec's safety cap.
	ErrCorruption = errors.New("corrupt payload")
)

// History errors
var (
	// ErrStateMismatch indicates a patch whose state token does not match
	// the snapshot it is being replayed against.
	ErrStateMismatch = errors.New("patch state token mismatch")

	// ErrHistoryEmpty indicates an undo or redo step with no entry to apply.
	ErrHistoryEmpty = errors.New("history stack is empty")
)

// Cache errors
var (
	// ErrInvalidCanvasID indicates a non-positive canvas identifier.
	ErrInvalidCanvasID = errors.New("invalid canvas id")
)
