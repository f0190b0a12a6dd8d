package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/nasif43/bizcalc/interfaces"
	"github.com/nasif43/bizcalc/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvisioner records the create call and returns canned results.
type stubProvisioner struct {
	rec interfaces.ClientRecord
	err error

	gotID       string
	gotHostname string
	gotPort     int
}

func (s *stubProvisioner) CreateClient(ctx context.Context, id, hostname string, portHint int) (interfaces.ClientRecord, error) {
	s.gotID = id
	s.gotHostname = hostname
	s.gotPort = portHint
	if s.err != nil {
		return interfaces.ClientRecord{}, s.err
	}
	return s.rec, nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postForm(t *testing.T, h *Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.HandleCreate(rr, req)
	return rr
}

func TestHandleCreateSuccess(t *testing.T) {
	stub := &stubProvisioner{rec: interfaces.ClientRecord{ID: "acme", Hostname: "acme.example.com", Port: 3001}}
	h := NewHandler(stub, nil, nil, silentLogger())

	rr := postForm(t, h, url.Values{
		"client":    {"acme"},
		"subdomain": {"acme.example.com"},
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var rec interfaces.ClientRecord
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&rec))
	assert.Equal(t, stub.rec, rec)

	assert.Equal(t, "acme", stub.gotID)
	assert.Equal(t, "acme.example.com", stub.gotHostname)
	assert.Equal(t, 0, stub.gotPort, "absent port means auto-allocate")
}

func TestHandleCreatePassesPortHint(t *testing.T) {
	stub := &stubProvisioner{rec: interfaces.ClientRecord{ID: "acme", Hostname: "acme.example.com", Port: 3100}}
	h := NewHandler(stub, nil, nil, silentLogger())

	rr := postForm(t, h, url.Values{
		"client":    {"acme"},
		"subdomain": {"acme.example.com"},
		"port":      {" 3100 "},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3100, stub.gotPort)
}

func TestHandleCreateBadPort(t *testing.T) {
	stub := &stubProvisioner{}
	h := NewHandler(stub, nil, nil, silentLogger())

	for _, port := range []string{"abc", "-1", "3.5"} {
		rr := postForm(t, h, url.Values{
			"client":    {"acme"},
			"subdomain": {"acme.example.com"},
			"port":      {port},
		})
		assert.Equal(t, http.StatusInternalServerError, rr.Code, "port %q", port)
		assert.Contains(t, rr.Body.String(), "Error:")
	}
	assert.Empty(t, stub.gotID, "the orchestrator must not be invoked")
}

func TestHandleCreateErrorMapsTo500(t *testing.T) {
	// Every orchestrator error kind renders uniformly: 500 plus the
	// error's text, nothing else distinguished.
	stub := &stubProvisioner{err: errors.New("no free ports in range 3001-3999")}
	h := NewHandler(stub, nil, nil, silentLogger())

	rr := postForm(t, h, url.Values{
		"client":    {"acme"},
		"subdomain": {"acme.example.com"},
	})

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Error: no free ports in range 3001-3999")
}

func TestHandleIndexServesForm(t *testing.T) {
	h := NewHandler(&stubProvisioner{}, nil, nil, silentLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.HandleIndex(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `<form method="POST" action="/create">`)
	assert.Contains(t, rr.Body.String(), `name="client"`)
	assert.Contains(t, rr.Body.String(), `name="subdomain"`)
	assert.Contains(t, rr.Body.String(), `name="port"`)
}

func TestHandleListClients(t *testing.T) {
	store, err := registry.NewFileStore(t.TempDir(), silentLogger())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), interfaces.ClientRecord{ID: "acme", Hostname: "acme.example.com", Port: 3001}))

	h := NewHandler(&stubProvisioner{}, store, nil, silentLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	rr := httptest.NewRecorder()
	h.HandleListClients(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var records []interfaces.ClientRecord
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "acme", records[0].ID)
}
