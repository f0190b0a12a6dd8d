// Package provision implements the client deployment orchestrator: port
// allocation, per-client directory layout, systemd unit registration, and
// nginx virtual-host configuration, composed in a fixed order by the
// Orchestrator.
//
// Every step is idempotent on rerun for the same client id: the unit file,
// the vhost rule, and the frontend directory are overwritten; the data and
// uploads directories are preserved. There is no rollback on partial
// failure. The documented recovery path is to fix the underlying condition
// and re-invoke create for the same client id, converging the host to a
// consistent state.
//
// The package is designed for single-operator, sequential invocation.
// Concurrent creates for the same client id race on the generated files and
// on the supervisor and proxy reload sequences; callers must serialize.
package provision
