package phos

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// SessionCacheDirName is the cache directory's name under the session
	// root.
	SessionCacheDirName = "session_canvases"

	// SessionCacheExt is the file extension of cached canvases.
	SessionCacheExt = ".phos"
)

// SessionCacheOptions configures a SessionCache.
type SessionCacheOptions struct {
	// Container serializes cached canvases. Nil means a default container
	// with default codec options.
	Container *Container

	// Logger receives absorbed maintenance failures. Nil means slog.Default.
	Logger *slog.Logger
}

// SessionCache persists open canvases under a session root so they survive
// process restarts. Paths handed back to callers are session-relative with
// forward slashes, portable across platforms and session roots; absolute
// paths are accepted too and used as-is.
type SessionCache struct {
	root      string
	container *Container
	logger    *slog.Logger
}

// NewSessionCache builds a cache rooted at root.
func NewSessionCache(root string, opts SessionCacheOptions) (*SessionCache, error) {
	container := opts.Container
	if container == nil {
		codec, err := NewCodec(CodecOptions{})
		if err != nil {
			return nil, err
		}
		container, err = NewContainer(codec)
		if err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionCache{root: root, container: container, logger: logger}, nil
}

// Dir returns the absolute cache directory.
func (sc *SessionCache) Dir() string {
	return filepath.Join(sc.root, SessionCacheDirName)
}

// resolve maps a session-relative path to an absolute one. Absolute inputs
// pass through unchanged.
func (sc *SessionCache) resolve(relOrAbs string) string {
	if filepath.IsAbs(relOrAbs) {
		return relOrAbs
	}
	return filepath.Join(sc.root, filepath.FromSlash(relOrAbs))
}

// Save writes st to the cache file for canvas id and returns the
// session-relative path of the written file.
func (sc *SessionCache) Save(id int64, st *ProjectState) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidCanvasID, id)
	}
	rel := fmt.Sprintf("%s/canvas_%d%s", SessionCacheDirName, id, SessionCacheExt)
	if err := sc.container.SaveFile(sc.resolve(rel), st); err != nil {
		return "", err
	}
	return rel, nil
}

// Load reads the cached canvas at relOrAbs.
func (sc *SessionCache) Load(relOrAbs string) (*ProjectState, error) {
	if relOrAbs == "" {
		return nil, fmt.Errorf("%w: empty cache path", ErrIO)
	}
	return sc.container.LoadFile(sc.resolve(relOrAbs))
}

// Delete removes the cached canvas at relOrAbs. An already-absent file
// counts as success; a real removal failure is logged and absorbed, since
// callers deleting cache entries have nothing useful to do with the error.
func (sc *SessionCache) Delete(relOrAbs string) {
	if relOrAbs == "" {
		return
	}
	path := sc.resolve(relOrAbs)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		sc.logger.Warn("session cache delete failed", "path", path, "error", err)
	}
}

// Prune removes every cache file whose session-relative path is not in
// keep. Non-cache files and subdirectories are left alone. All failures
// are logged and absorbed; pruning is best-effort cleanup.
func (sc *SessionCache) Prune(keep map[string]bool) {
	dir := sc.Dir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			sc.logger.Warn("session cache scan failed", "dir", dir, "error", err)
		}
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), SessionCacheExt) {
			continue
		}
		rel := SessionCacheDirName + "/" + e.Name()
		if keep[rel] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			sc.logger.Warn("session cache prune failed", "path", path, "error", err)
		}
	}
}
