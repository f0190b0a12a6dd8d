package provision

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nasif43/bizcalc/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupArtifacts creates a fake deployment root with a backend binary and a
// shared frontend bundle.
func setupArtifacts(t *testing.T) (baseDir string, layout *Layout) {
	t.Helper()
	baseDir = t.TempDir()

	binDir := filepath.Join(baseDir, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "bizcalc-server"), []byte("#!/bin/true\n"), 0755))

	frontendDir := filepath.Join(baseDir, "frontend")
	require.NoError(t, os.MkdirAll(filepath.Join(frontendDir, "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(frontendDir, "index.html"), []byte("<html>v1</html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(frontendDir, "assets", "app.js"), []byte("// app"), 0644))

	layout = &Layout{
		ClientsDir:  filepath.Join(baseDir, "clients"),
		BackendBin:  filepath.Join(binDir, "bizcalc-server"),
		FrontendSrc: frontendDir,
		Log:         testLogger(),
	}
	return baseDir, layout
}

func TestProvisionCreatesLayout(t *testing.T) {
	_, layout := setupArtifacts(t)

	dirs, err := layout.Provision("acme")
	require.NoError(t, err)

	assert.DirExists(t, dirs.Frontend)
	assert.DirExists(t, dirs.Data)
	assert.DirExists(t, dirs.Uploads)
	assert.FileExists(t, filepath.Join(dirs.Frontend, "index.html"))
	assert.FileExists(t, filepath.Join(dirs.Frontend, "assets", "app.js"))
}

func TestProvisionReplacesFrontendPreservesState(t *testing.T) {
	_, layout := setupArtifacts(t)

	dirs, err := layout.Provision("acme")
	require.NoError(t, err)

	// Client-owned state written between runs must survive; stale frontend
	// files must not.
	require.NoError(t, os.WriteFile(filepath.Join(dirs.Data, "db.sqlite"), []byte("state"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dirs.Uploads, "invoice.pdf"), []byte("upload"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dirs.Frontend, "stale.js"), []byte("old"), 0644))

	dirs2, err := layout.Provision("acme")
	require.NoError(t, err)
	assert.Equal(t, dirs, dirs2)

	assert.FileExists(t, filepath.Join(dirs.Data, "db.sqlite"))
	assert.FileExists(t, filepath.Join(dirs.Uploads, "invoice.pdf"))
	assert.NoFileExists(t, filepath.Join(dirs.Frontend, "stale.js"))
	assert.FileExists(t, filepath.Join(dirs.Frontend, "index.html"))
}

func TestProvisionMissingBackendBinary(t *testing.T) {
	_, layout := setupArtifacts(t)
	require.NoError(t, os.Remove(layout.BackendBin))

	_, err := layout.Provision("acme")
	require.Error(t, err)

	var missing *interfaces.MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, layout.BackendBin, missing.Path)

	// The precondition failure must leave no client subtree behind.
	assert.NoDirExists(t, filepath.Join(layout.ClientsDir, "acme"))
}

func TestProvisionMissingFrontendBundle(t *testing.T) {
	_, layout := setupArtifacts(t)
	require.NoError(t, os.RemoveAll(layout.FrontendSrc))

	_, err := layout.Provision("acme")
	var missing *interfaces.MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, layout.FrontendSrc, missing.Path)
}
