package provision

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nasif43/bizcalc/interfaces"
)

// Layout materializes the per-client filesystem layout under the clients
// directory and copies the shared frontend bundle into it.
type Layout struct {
	// ClientsDir is the directory holding one subtree per client id.
	ClientsDir string

	// BackendBin is the path of the backend executable the supervision
	// unit will start. It is a precondition, not copied.
	BackendBin string

	// FrontendSrc is the shared frontend bundle copied into each client's
	// frontend directory.
	FrontendSrc string

	Log *slog.Logger
}

// CheckArtifacts verifies the backend binary and the shared frontend bundle
// exist. Returns *interfaces.MissingArtifactError naming the missing path.
func (l *Layout) CheckArtifacts() error {
	if _, err := os.Stat(l.BackendBin); err != nil {
		return &interfaces.MissingArtifactError{Path: l.BackendBin}
	}
	if _, err := os.Stat(l.FrontendSrc); err != nil {
		return &interfaces.MissingArtifactError{Path: l.FrontendSrc}
	}
	return nil
}

// Provision creates (or resets) the client's directory layout.
//
// The data and uploads directories are created if absent and never replaced:
// they hold client-owned state that must survive re-provisioning. The
// frontend directory is replaced wholesale on every run so it always
// reflects the latest shared bundle.
func (l *Layout) Provision(clientID string) (interfaces.ClientDirs, error) {
	if err := l.CheckArtifacts(); err != nil {
		return interfaces.ClientDirs{}, err
	}

	root := filepath.Join(l.ClientsDir, clientID)
	dirs := interfaces.ClientDirs{
		Root:     root,
		Frontend: filepath.Join(root, "frontend"),
		Data:     filepath.Join(root, "data"),
		Uploads:  filepath.Join(root, "uploads"),
	}

	if err := os.MkdirAll(dirs.Data, 0755); err != nil {
		return interfaces.ClientDirs{}, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(dirs.Uploads, 0755); err != nil {
		return interfaces.ClientDirs{}, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	if err := os.RemoveAll(dirs.Frontend); err != nil {
		return interfaces.ClientDirs{}, fmt.Errorf("failed to remove previous frontend copy: %w", err)
	}
	if err := os.MkdirAll(dirs.Frontend, 0755); err != nil {
		return interfaces.ClientDirs{}, fmt.Errorf("failed to create frontend directory: %w", err)
	}
	if err := os.CopyFS(dirs.Frontend, os.DirFS(l.FrontendSrc)); err != nil {
		return interfaces.ClientDirs{}, fmt.Errorf("failed to copy frontend bundle: %w", err)
	}

	l.Log.Debug("Provisioned client directories",
		slog.String("client", clientID),
		slog.String("root", root))

	return dirs, nil
}
