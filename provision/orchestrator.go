package provision

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"

	"github.com/nasif43/bizcalc/interfaces"
)

// Default allocation range for backend ports.
const (
	DefaultPortRangeStart = 3001
	DefaultPortRangeEnd   = 3999
)

// Client ids may contain letters, digits, and hyphens. An id consisting
// only of hyphens passes; this matches the historical behavior and is
// covered by a test rather than tightened.
var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Config holds the host paths and port range for the orchestrator.
type Config struct {
	// BaseDir is the deployment root, normally /opt/bizcalc. It contains
	// bin/bizcalc-server, frontend/, and clients/.
	BaseDir string

	// UnitDir is the systemd unit directory, normally /etc/systemd/system.
	UnitDir string

	// SitesAvailable and SitesEnabled are the nginx rule directories,
	// normally /etc/nginx/sites-available and /etc/nginx/sites-enabled.
	SitesAvailable string
	SitesEnabled   string

	// PortRangeStart and PortRangeEnd bound auto-allocation.
	PortRangeStart int
	PortRangeEnd   int
}

// BackendBin returns the backend executable path under the base directory.
func (c *Config) BackendBin() string {
	return filepath.Join(c.BaseDir, "bin", "bizcalc-server")
}

// FrontendDist returns the shared frontend bundle path.
func (c *Config) FrontendDist() string {
	return filepath.Join(c.BaseDir, "frontend")
}

// ClientsDir returns the directory holding per-client subtrees.
func (c *Config) ClientsDir() string {
	return filepath.Join(c.BaseDir, "clients")
}

// Orchestrator composes the allocator, layout, supervisor, and proxy into
// the create-client sequence. One instance serves the whole process;
// callers must not run overlapping creates for the same client id.
type Orchestrator struct {
	allocator  Allocator
	layout     *Layout
	supervisor *Supervisor
	proxy      *Proxy
	store      interfaces.ClientStore
	backendBin string
	log        *slog.Logger
}

// New creates an orchestrator from the host configuration. All privileged
// host commands go through runner. The store may be nil; when present,
// successful creates are recorded in it (best effort).
func New(cfg *Config, runner interfaces.Runner, store interfaces.ClientStore, log *slog.Logger) *Orchestrator {
	rangeStart := cfg.PortRangeStart
	rangeEnd := cfg.PortRangeEnd
	if rangeStart == 0 {
		rangeStart = DefaultPortRangeStart
	}
	if rangeEnd == 0 {
		rangeEnd = DefaultPortRangeEnd
	}

	return &Orchestrator{
		allocator: Allocator{Start: rangeStart, End: rangeEnd},
		layout: &Layout{
			ClientsDir:  cfg.ClientsDir(),
			BackendBin:  cfg.BackendBin(),
			FrontendSrc: cfg.FrontendDist(),
			Log:         log,
		},
		supervisor: &Supervisor{
			UnitDir: cfg.UnitDir,
			Runner:  runner,
			Log:     log,
		},
		proxy: &Proxy{
			SitesAvailable: cfg.SitesAvailable,
			SitesEnabled:   cfg.SitesEnabled,
			Runner:         runner,
			Log:            log,
		},
		store:      store,
		backendBin: cfg.BackendBin(),
		log:        log,
	}
}

// CreateClient provisions a deployment for the client: validates the id,
// checks artifact preconditions, materializes the directory layout, resolves
// the port (hint if nonzero, else allocated), registers the supervision
// unit, and configures the proxy rule.
//
// Steps run in that fixed order; the first error aborts the remaining steps
// and is returned as-is. Nothing is retried and completed steps are not
// compensated. Re-running create for the same id overwrites exactly that
// client's unit, rule, and frontend copy, which is the documented recovery
// path after a partial failure.
func (o *Orchestrator) CreateClient(ctx context.Context, id, hostname string, portHint int) (interfaces.ClientRecord, error) {
	if !clientIDPattern.MatchString(id) {
		return interfaces.ClientRecord{}, fmt.Errorf("%w: %q", interfaces.ErrInvalidClientID, id)
	}

	// Precondition check runs before any directory is created so a
	// missing artifact leaves no partial side effects.
	if err := o.layout.CheckArtifacts(); err != nil {
		return interfaces.ClientRecord{}, err
	}

	dirs, err := o.layout.Provision(id)
	if err != nil {
		return interfaces.ClientRecord{}, err
	}

	port := portHint
	if port == 0 {
		port, err = o.allocator.Allocate()
		if err != nil {
			return interfaces.ClientRecord{}, err
		}
	}

	svcName, err := o.supervisor.Register(ctx, id, dirs.Root, o.backendBin, port)
	if err != nil {
		return interfaces.ClientRecord{}, err
	}

	confPath, err := o.proxy.Configure(ctx, id, hostname, dirs.Frontend, port)
	if err != nil {
		return interfaces.ClientRecord{}, err
	}

	rec := interfaces.ClientRecord{ID: id, Hostname: hostname, Port: port}

	// The generated unit and rule files are the durable record; the store
	// is a convenience catalog, so a save failure does not fail the create.
	if o.store != nil {
		if err := o.store.Save(ctx, rec); err != nil {
			o.log.Error("Failed to record client", "client", id, "err", err)
		}
	}

	o.log.Info("Client created",
		slog.String("client", id),
		slog.String("hostname", hostname),
		slog.Int("port", port),
		slog.String("service", svcName),
		slog.String("proxy_rule", confPath))

	return rec, nil
}
