package provision

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nasif43/bizcalc/interfaces"
)

// Proxy writes nginx virtual-host rules routing a public hostname to a
// client's static frontend and backend port, activates them via the
// sites-enabled symlink, validates the aggregate configuration, and
// triggers a reload.
type Proxy struct {
	// SitesAvailable and SitesEnabled are the standard nginx rule
	// directories; both are created if absent.
	SitesAvailable string
	SitesEnabled   string

	Runner interfaces.Runner
	Log    *slog.Logger
}

// ConfName returns the deterministic proxy rule file name for a client.
func ConfName(clientID string) string {
	return "bizcalc-" + clientID + ".conf"
}

// Configure renders and activates the virtual-host rule for the client.
// The hostname is used verbatim; it is never validated.
//
// The rule file and its symlink are written before validation. When
// `nginx -t` fails the reload is skipped and the error propagated, but the
// written rule is not rolled back; the broken rule stays in place until the
// next successful run for this client id.
func (p *Proxy) Configure(ctx context.Context, clientID, hostname, frontendDir string, port int) (string, error) {
	if err := os.MkdirAll(p.SitesAvailable, 0755); err != nil {
		return "", &interfaces.ProxyError{Op: "create sites-available", Err: err}
	}
	if err := os.MkdirAll(p.SitesEnabled, 0755); err != nil {
		return "", &interfaces.ProxyError{Op: "create sites-enabled", Err: err}
	}

	var buf bytes.Buffer
	err := vhostTmpl.Execute(&buf, vhostData{
		Hostname:    hostname,
		FrontendDir: frontendDir,
		Port:        port,
	})
	if err != nil {
		return "", &interfaces.ProxyError{Op: "render rule", Err: err}
	}

	confPath := filepath.Join(p.SitesAvailable, ConfName(clientID))
	if err := os.WriteFile(confPath, buf.Bytes(), 0644); err != nil {
		return "", &interfaces.ProxyError{Op: "write rule", Err: err}
	}

	// Replace any existing link first to avoid "already exists" failures.
	linkPath := filepath.Join(p.SitesEnabled, ConfName(clientID))
	if _, err := os.Lstat(linkPath); err == nil {
		if err := os.Remove(linkPath); err != nil {
			return "", &interfaces.ProxyError{Op: "remove stale link", Err: err}
		}
	}
	if err := os.Symlink(confPath, linkPath); err != nil {
		return "", &interfaces.ProxyError{Op: "enable rule", Err: err}
	}

	p.Log.Info("Wrote proxy rule",
		slog.String("client", clientID),
		slog.String("hostname", hostname),
		slog.String("path", confPath))

	if err := p.Runner.Run(ctx, "nginx", "-t"); err != nil {
		return "", &interfaces.ProxyError{Op: "validate", Err: err}
	}
	if err := p.Runner.Run(ctx, "systemctl", "reload", "nginx"); err != nil {
		return "", &interfaces.ProxyError{Op: "reload", Err: err}
	}

	return confPath, nil
}
