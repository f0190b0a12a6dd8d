package provision

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nasif43/bizcalc/interfaces"
)

// Supervisor writes systemd unit files for client backends and instructs
// systemd to reload its catalog and (re)start them. Host commands go
// through the injected Runner.
type Supervisor struct {
	// UnitDir is where unit files are written, normally
	// /etc/systemd/system.
	UnitDir string

	Runner interfaces.Runner
	Log    *slog.Logger
}

// ServiceName returns the deterministic supervision unit name for a client.
func ServiceName(clientID string) string {
	return "bizcalc-client-" + clientID
}

// Register writes the unit file for the client's backend (overwriting any
// prior version), reloads the systemd catalog, and enables and starts the
// service, replacing any previously running instance for the same client.
//
// Any failure is fatal to the whole create operation and is returned as a
// *interfaces.SupervisorError; nothing is retried.
func (s *Supervisor) Register(ctx context.Context, clientID, workingDir, binPath string, port int) (string, error) {
	name := ServiceName(clientID)
	unitPath := filepath.Join(s.UnitDir, name+".service")

	var buf bytes.Buffer
	err := unitTmpl.Execute(&buf, unitData{
		Client:     clientID,
		WorkingDir: workingDir,
		Port:       port,
		ExecStart:  binPath,
	})
	if err != nil {
		return "", &interfaces.SupervisorError{Op: "render unit", Err: err}
	}

	if err := os.WriteFile(unitPath, buf.Bytes(), 0644); err != nil {
		return "", &interfaces.SupervisorError{Op: "write unit", Err: err}
	}
	s.Log.Info("Wrote supervision unit",
		slog.String("service", name),
		slog.String("path", unitPath),
		slog.Int("port", port))

	if err := s.Runner.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return "", &interfaces.SupervisorError{Op: "daemon-reload", Err: err}
	}
	if err := s.Runner.Run(ctx, "systemctl", "enable", "--now", name+".service"); err != nil {
		return "", &interfaces.SupervisorError{Op: fmt.Sprintf("enable %s", name), Err: err}
	}

	return name, nil
}
