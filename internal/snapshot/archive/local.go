package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/lanternops/display-helper-core/pkg/displayapi"
)

// containedPath ensures untrustedPath resolves inside basePath, guarding
// against a malformed install ID escaping the mirror root.
func containedPath(basePath, untrustedPath string) (string, error) {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("archive: resolve base path: %w", err)
	}
	joined := filepath.Join(absBase, filepath.FromSlash(untrustedPath))
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("archive: resolve path: %w", err)
	}
	if !strings.HasPrefix(absJoined, absBase+string(filepath.Separator)) && absJoined != absBase {
		return "", fmt.Errorf("archive: path traversal detected: %q resolves outside %q", untrustedPath, absBase)
	}
	return absJoined, nil
}

// LocalMirror mirrors to a second directory on the same or a mounted
// filesystem (e.g. a network share) rather than a cloud object store.
// Useful in air-gapped deployments and for tests.
type LocalMirror struct {
	BaseDir string
}

// NewLocalMirror builds a LocalMirror rooted at dir.
func NewLocalMirror(dir string) *LocalMirror {
	return &LocalMirror{BaseDir: filepath.Clean(dir)}
}

func (m *LocalMirror) Upload(_ context.Context, key string, snap displayapi.Snapshot) error {
	raw, err := marshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("archive: marshal for local mirror: %w", err)
	}

	dest, err := containedPath(m.BaseDir, objectKey("", key))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("archive: create local mirror directory: %w", err)
	}

	pending, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("archive: create pending local mirror file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(raw); err != nil {
		return fmt.Errorf("archive: write local mirror file: %w", err)
	}
	return pending.CloseAtomicallyReplace()
}

func (m *LocalMirror) Download(_ context.Context, key string) (displayapi.Snapshot, error) {
	src, err := containedPath(m.BaseDir, objectKey("", key))
	if err != nil {
		return displayapi.Snapshot{}, err
	}
	raw, err := os.ReadFile(src)
	if err != nil {
		return displayapi.Snapshot{}, fmt.Errorf("archive: read local mirror file: %w", err)
	}
	return unmarshalSnapshot(raw)
}

var _ Mirror = (*LocalMirror)(nil)
