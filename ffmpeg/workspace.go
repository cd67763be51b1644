package ffmpeg

import (
	"fmt"
	"os"
	"time"
)

// TempFile is a uniquely named file inside a Workspace. Release is idempotent:
// a file that is already gone is not an error.
type TempFile struct {
	path      string
	createdAt time.Time
}

func (t *TempFile) Path() string { return t.path }

// Release deletes the file if it still exists.
func (t *TempFile) Release() {
	if t == nil {
		return
	}
	os.Remove(t.path)
}

// Workspace owns a shared temporary directory for all operation I/O.
// Correctness under concurrent batches relies on per-acquire unique naming,
// not locking: no two operations ever touch the same temp file.
type Workspace struct {
	root         string
	maxInputSize int64
}

// NewWorkspace creates a fresh temp directory under parent ("" means the
// system default) and enforces maxInputSize on written payloads (0 disables
// the check).
func NewWorkspace(parent string, maxInputSize int64) (*Workspace, error) {
	root, err := os.MkdirTemp(parent, "ffbatch_")
	if err != nil {
		return nil, fmt.Errorf("could not create temp directory: %w", err)
	}
	return &Workspace{root: root, maxInputSize: maxInputSize}, nil
}

func (w *Workspace) Root() string { return w.root }

// Acquire creates a uniquely named empty file with the given prefix and
// extension. The caller must Release it on every exit path.
func (w *Workspace) Acquire(prefix, ext string) (*TempFile, error) {
	f, err := os.CreateTemp(w.root, prefix+"_*."+ext)
	if err != nil {
		return nil, fmt.Errorf("could not create temp file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}
	return &TempFile{path: path, createdAt: time.Now()}, nil
}

// WriteTemp acquires a temp file and fills it with data, enforcing the input
// size limit before anything is written.
func (w *Workspace) WriteTemp(prefix, ext string, data []byte) (*TempFile, error) {
	if w.maxInputSize > 0 && int64(len(data)) > w.maxInputSize {
		return nil, fmt.Errorf("input size %d exceeds limit of %d bytes", len(data), w.maxInputSize)
	}
	t, err := w.Acquire(prefix, ext)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(t.path, data, 0o600); err != nil {
		t.Release()
		return nil, fmt.Errorf("failed to write temp input: %w", err)
	}
	return t, nil
}

// Remove deletes the workspace directory and everything in it. Called once on
// shutdown.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.root)
}
