// Package interfaces defines the shared types, error kinds, and narrow
// service interfaces used across the onboarding system.
//
// The orchestrator mutates host-wide state (the systemd unit catalog, the
// nginx virtual-host catalog) only through the Runner interface, so the
// orchestration logic itself stays testable without root privilege or a
// real host. Test doubles that record commands instead of executing them
// live in the hostexec package.
package interfaces
