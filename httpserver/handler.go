package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nasif43/bizcalc/interfaces"
)

// HostnameChecker runs an advisory check on the requested hostname before a
// create. Implementations log; they never block the create.
type HostnameChecker interface {
	Warn(ctx context.Context, hostname string)
}

// Handler processes onboarding requests. It depends only on the narrow
// Provisioner and ClientStore interfaces so it can be tested with doubles.
type Handler struct {
	provisioner interfaces.Provisioner
	store       interfaces.ClientStore
	checker     HostnameChecker
	log         *slog.Logger
}

// NewHandler creates an onboarding request handler. checker may be nil to
// disable the hostname preflight; store may be nil to disable the listing.
func NewHandler(provisioner interfaces.Provisioner, store interfaces.ClientStore, checker HostnameChecker, log *slog.Logger) *Handler {
	return &Handler{
		provisioner: provisioner,
		store:       store,
		checker:     checker,
		log:         log,
	}
}

// HandleIndex serves the onboarding form.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(onboardFormHTML))
}

// HandleCreate accepts the onboarding form submission and invokes the
// provisioning orchestrator.
//
// Form fields: client (id), subdomain (public hostname), port (optional;
// empty or 0 means auto-allocate). Success maps to 200 with the resulting
// record as JSON; any error maps to 500 with the error's text. No other
// status codes are distinguished.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, err)
		return
	}

	client := r.FormValue("client")
	subdomain := r.FormValue("subdomain")
	portStr := strings.TrimSpace(r.FormValue("port"))

	port := 0
	if portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p < 0 {
			writeError(w, fmt.Errorf("invalid port %q", portStr))
			return
		}
		port = p
	}

	if h.checker != nil && subdomain != "" {
		h.checker.Warn(r.Context(), subdomain)
	}

	rec, err := h.provisioner.CreateClient(r.Context(), client, subdomain, port)
	if err != nil {
		h.log.Error("Create client failed", "client", client, "err", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rec)
}

// HandleListClients returns the records of all provisioned clients.
func (h *Handler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "client listing not enabled", http.StatusNotFound)
		return
	}

	records, err := h.store.List(r.Context())
	if err != nil {
		h.log.Error("Failed to list clients", "err", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(records)
}

// writeError renders any error uniformly: 500 with the error's text. The
// transport does not distinguish error kinds.
func writeError(w http.ResponseWriter, err error) {
	http.Error(w, "Error: "+err.Error(), http.StatusInternalServerError)
}
