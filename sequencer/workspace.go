package sequencer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workspace is the job-scoped directory holding one PNG slot per frame.
type Workspace struct {
	Dir  string
	once sync.Once
	err  error
}

// NewWorkspace creates a fresh directory under parent, or under the system
// temp dir when parent is empty.
func NewWorkspace(parent string) (*Workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, "goshadergif-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// SlotPath names frame i's file. Zero padding keeps lexical order equal to index order.
func (w *Workspace) SlotPath(i int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("frame%05d.png", i))
}

// Release removes the workspace and everything in it. Only the first call has any effect.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		w.err = os.RemoveAll(w.Dir)
	})
	return w.err
}
