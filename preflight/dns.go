// Package preflight provides advisory host checks run before a client is
// created. Checks only log; they never block or reject a create, since the
// public hostname is used verbatim in the proxy rule.
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/miekg/dns"
)

// DNSChecker resolves a hostname's A records and warns when the hostname
// does not resolve or does not point at an address of this host. Operators
// typically create the subdomain's DNS record before onboarding; this
// surfaces the common mistake of forgetting it.
type DNSChecker struct {
	server string
	client *dns.Client
	log    *slog.Logger
}

// NewDNSChecker creates a checker using the first resolver from
// /etc/resolv.conf.
func NewDNSChecker(log *slog.Logger) (*DNSChecker, error) {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver configuration: %w", err)
	}
	if len(conf.Servers) == 0 {
		return nil, fmt.Errorf("no resolvers configured in /etc/resolv.conf")
	}

	return &DNSChecker{
		server: net.JoinHostPort(conf.Servers[0], conf.Port),
		client: new(dns.Client),
		log:    log,
	}, nil
}

// Warn resolves the hostname and logs advisories. It never returns an
// error to the caller path; resolution problems are reported through the
// logger only.
func (c *DNSChecker) Warn(ctx context.Context, hostname string) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(hostname), dns.TypeA)

	resp, _, err := c.client.ExchangeContext(ctx, m, c.server)
	if err != nil {
		c.log.Warn("DNS preflight query failed", "hostname", hostname, "err", err)
		return
	}

	var resolved []net.IP
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			resolved = append(resolved, a.A)
		}
	}

	local, err := hostAddrs()
	if err != nil {
		c.log.Warn("DNS preflight could not enumerate host addresses", "err", err)
		return
	}

	if msg, ok := advisory(hostname, resolved, local); ok {
		c.log.Warn(msg, "hostname", hostname)
	} else {
		c.log.Debug("DNS preflight passed", "hostname", hostname)
	}
}

// advisory decides whether resolution results warrant a warning. Returns
// the warning message and true when they do.
func advisory(hostname string, resolved, local []net.IP) (string, bool) {
	if len(resolved) == 0 {
		return "Hostname does not resolve to any address; the proxy rule will be created anyway", true
	}
	for _, r := range resolved {
		for _, l := range local {
			if r.Equal(l) {
				return "", false
			}
		}
	}
	return "Hostname does not resolve to an address of this host; the proxy rule will be created anyway", true
}

func hostAddrs() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, addr := range addrs {
		if ipn, ok := addr.(*net.IPNet); ok {
			ips = append(ips, ipn.IP)
		}
	}
	return ips, nil
}
