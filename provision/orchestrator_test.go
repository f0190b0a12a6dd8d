package provision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nasif43/bizcalc/hostexec"
	"github.com/nasif43/bizcalc/interfaces"
	"github.com/nasif43/bizcalc/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestOrchestrator builds an orchestrator against a fake host: temp
// deployment root with artifacts present, temp unit and nginx directories,
// and a recording runner.
func newTestOrchestrator(t *testing.T, runner interfaces.Runner) (*Orchestrator, *Config, interfaces.ClientStore) {
	t.Helper()
	baseDir, _ := setupArtifacts(t)
	hostDir := t.TempDir()

	cfg := &Config{
		BaseDir:        baseDir,
		UnitDir:        filepath.Join(hostDir, "systemd"),
		SitesAvailable: filepath.Join(hostDir, "sites-available"),
		SitesEnabled:   filepath.Join(hostDir, "sites-enabled"),
	}
	require.NoError(t, os.MkdirAll(cfg.UnitDir, 0755))

	store, err := registry.NewFileStore(cfg.ClientsDir(), testLogger())
	require.NoError(t, err)

	return New(cfg, runner, store, testLogger()), cfg, store
}

func TestCreateClientEndToEnd(t *testing.T) {
	runner := &hostexec.RecordingRunner{}
	o, cfg, store := newTestOrchestrator(t, runner)

	rec, err := o.CreateClient(context.Background(), "acme", "acme.example.com", 0)
	require.NoError(t, err)

	assert.Equal(t, "acme", rec.ID)
	assert.Equal(t, "acme.example.com", rec.Hostname)
	assert.GreaterOrEqual(t, rec.Port, DefaultPortRangeStart)
	assert.LessOrEqual(t, rec.Port, DefaultPortRangeEnd)

	clientDir := filepath.Join(cfg.ClientsDir(), "acme")
	assert.DirExists(t, filepath.Join(clientDir, "frontend"))
	assert.DirExists(t, filepath.Join(clientDir, "data"))
	assert.DirExists(t, filepath.Join(clientDir, "uploads"))
	assert.FileExists(t, filepath.Join(cfg.UnitDir, "bizcalc-client-acme.service"))
	assert.FileExists(t, filepath.Join(cfg.SitesAvailable, "bizcalc-acme.conf"))

	target, err := os.Readlink(filepath.Join(cfg.SitesEnabled, "bizcalc-acme.conf"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.SitesAvailable, "bizcalc-acme.conf"), target)

	// Host command sequence: supervisor catalog reload, service start,
	// proxy validation, proxy reload.
	require.Equal(t, []string{
		"systemctl daemon-reload",
		"systemctl enable --now bizcalc-client-acme.service",
		"nginx -t",
		"systemctl reload nginx",
	}, runner.Recorded())

	saved, err := store.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, rec, saved)
}

func TestCreateClientUsesPortHint(t *testing.T) {
	runner := &hostexec.RecordingRunner{}
	o, cfg, _ := newTestOrchestrator(t, runner)

	rec, err := o.CreateClient(context.Background(), "acme", "acme.example.com", 4567)
	require.NoError(t, err)
	assert.Equal(t, 4567, rec.Port)

	data, err := os.ReadFile(filepath.Join(cfg.UnitDir, "bizcalc-client-acme.service"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Environment=PORT=4567")
}

func TestCreateClientRerunIsIdempotent(t *testing.T) {
	runner := &hostexec.RecordingRunner{}
	o, cfg, _ := newTestOrchestrator(t, runner)

	_, err := o.CreateClient(context.Background(), "acme", "acme.example.com", 4001)
	require.NoError(t, err)
	_, err = o.CreateClient(context.Background(), "acme", "acme.example.com", 4002)
	require.NoError(t, err)

	// Exactly one unit and one rule for the id; rerun overwrites, never
	// duplicates.
	units, err := os.ReadDir(cfg.UnitDir)
	require.NoError(t, err)
	require.Len(t, units, 1)

	rules, err := os.ReadDir(cfg.SitesAvailable)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	links, err := os.ReadDir(cfg.SitesEnabled)
	require.NoError(t, err)
	require.Len(t, links, 1)
}

func TestCreateClientRerunOnlyDiffersByPort(t *testing.T) {
	runner := &hostexec.RecordingRunner{}
	o, cfg, _ := newTestOrchestrator(t, runner)

	_, err := o.CreateClient(context.Background(), "acme", "acme.example.com", 4001)
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(cfg.SitesAvailable, "bizcalc-acme.conf"))
	require.NoError(t, err)

	_, err = o.CreateClient(context.Background(), "acme", "acme.example.com", 4002)
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(cfg.SitesAvailable, "bizcalc-acme.conf"))
	require.NoError(t, err)

	assert.Equal(t,
		strings.ReplaceAll(string(first), "4001", "4002"),
		string(second),
		"reruns differ only in the port value")
}

func TestCreateClientDoesNotTouchOtherClients(t *testing.T) {
	runner := &hostexec.RecordingRunner{}
	o, cfg, _ := newTestOrchestrator(t, runner)

	_, err := o.CreateClient(context.Background(), "acme", "acme.example.com", 4001)
	require.NoError(t, err)
	otherUnit, err := os.ReadFile(filepath.Join(cfg.UnitDir, "bizcalc-client-acme.service"))
	require.NoError(t, err)

	_, err = o.CreateClient(context.Background(), "globex", "globex.example.com", 4002)
	require.NoError(t, err)

	after, err := os.ReadFile(filepath.Join(cfg.UnitDir, "bizcalc-client-acme.service"))
	require.NoError(t, err)
	assert.Equal(t, otherUnit, after)
}

func TestCreateClientInvalidID(t *testing.T) {
	runner := &hostexec.RecordingRunner{}
	o, cfg, _ := newTestOrchestrator(t, runner)

	for _, id := range []string{"", "bad name", "acme!", "a/b", "café"} {
		_, err := o.CreateClient(context.Background(), id, "x.example.com", 4001)
		require.ErrorIs(t, err, interfaces.ErrInvalidClientID, "id %q", id)
	}

	// Validation failures leave the host untouched.
	assert.Empty(t, runner.Recorded())
	entries, err := os.ReadDir(cfg.UnitDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateClientHyphenOnlyIDAccepted(t *testing.T) {
	// Known boundary case: an id of only hyphens passes the character
	// check. Documented here rather than silently normalized.
	runner := &hostexec.RecordingRunner{}
	o, _, _ := newTestOrchestrator(t, runner)

	rec, err := o.CreateClient(context.Background(), "---", "dash.example.com", 4001)
	require.NoError(t, err)
	assert.Equal(t, "---", rec.ID)
}

func TestCreateClientMissingBackendHasNoSideEffects(t *testing.T) {
	runner := &hostexec.RecordingRunner{}
	o, cfg, _ := newTestOrchestrator(t, runner)
	require.NoError(t, os.Remove(cfg.BackendBin()))

	_, err := o.CreateClient(context.Background(), "acme", "acme.example.com", 4001)

	var missing *interfaces.MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, cfg.BackendBin(), missing.Path)

	assert.NoDirExists(t, filepath.Join(cfg.ClientsDir(), "acme"))
	assert.NoFileExists(t, filepath.Join(cfg.UnitDir, "bizcalc-client-acme.service"))
	assert.NoFileExists(t, filepath.Join(cfg.SitesAvailable, "bizcalc-acme.conf"))
	assert.Empty(t, runner.Recorded())
}

func TestCreateClientSupervisorFailureAbortsProxy(t *testing.T) {
	runner := &hostexec.RecordingRunner{
		FailOn: func(cmd string) error {
			if strings.Contains(cmd, "enable") {
				return errors.New("start failed")
			}
			return nil
		},
	}
	o, cfg, store := newTestOrchestrator(t, runner)

	_, err := o.CreateClient(context.Background(), "acme", "acme.example.com", 4001)
	require.Error(t, err)

	var supErr *interfaces.SupervisorError
	require.ErrorAs(t, err, &supErr)

	// The proxy step never ran and no record was saved; completed steps
	// (directories, unit file) are intentionally left in place for the
	// rerun to converge.
	assert.NoFileExists(t, filepath.Join(cfg.SitesAvailable, "bizcalc-acme.conf"))
	_, err = store.Get(context.Background(), "acme")
	assert.ErrorIs(t, err, interfaces.ErrClientNotFound)
}
