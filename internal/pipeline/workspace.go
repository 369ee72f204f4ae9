package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Workspace is the scratch directory owned by exactly one job. It holds the
// uploaded source, the synthesized narration, and the merged output until
// publication, and is removed when the job reaches a terminal state.
type Workspace struct {
	root string
}

// NewWorkspace creates the scratch directory for a job.
func NewWorkspace(stagingDir, jobID string) (*Workspace, error) {
	root := filepath.Join(stagingDir, jobID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", root, err)
	}
	return &Workspace{root: root}, nil
}

// OpenWorkspace wraps an existing job scratch directory.
func OpenWorkspace(stagingDir, jobID string) *Workspace {
	return &Workspace{root: filepath.Join(stagingDir, jobID)}
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Path resolves a file name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.root, name)
}

// SaveUpload streams an uploaded file into the workspace and returns its
// path.
func (w *Workspace) SaveUpload(filename string, body io.Reader) (string, error) {
	dest := w.Path(filepath.Base(filename))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, body); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return dest, nil
}

// Remove deletes the workspace and everything in it.
func (w *Workspace) Remove() error {
	if w == nil || w.root == "" {
		return nil
	}
	return os.RemoveAll(w.root)
}
