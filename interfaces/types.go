package interfaces

import "context"

// ClientRecord describes a provisioned client deployment. The client id is
// the sole external key: it determines the directory subtree, the
// supervision unit name, and the proxy rule name. The JSON field names match
// the onboarding form fields.
type ClientRecord struct {
	ID       string `json:"client"`
	Hostname string `json:"subdomain"`
	Port     int    `json:"port"`
}

// ClientDirs is the per-client filesystem layout produced by provisioning.
// Frontend is replaced wholesale on every run; Data and Uploads are
// client-owned state and are never replaced.
type ClientDirs struct {
	Root     string
	Frontend string
	Data     string
	Uploads  string
}

// Runner executes a privileged host command. Implementations either shell
// out (hostexec.ExecRunner) or record the call for tests
// (hostexec.RecordingRunner).
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// Provisioner creates client deployments. The HTTP transport depends only
// on this interface. A portHint of 0 means auto-allocate.
type Provisioner interface {
	CreateClient(ctx context.Context, id, hostname string, portHint int) (ClientRecord, error)
}

// ClientStore persists records of provisioned clients.
type ClientStore interface {
	Save(ctx context.Context, rec ClientRecord) error
	Get(ctx context.Context, id string) (ClientRecord, error)
	List(ctx context.Context) ([]ClientRecord, error)
}
