package cluster

import (
	"context"
	"net"
	"strings"
	"time"
)

// SRVRecord is one service-directory entry: a host serving the queried
// service on a port.
type SRVRecord struct {
	Host string
	Port uint16
}

// SRVResolver resolves a service-directory query into SRV records. The
// default implementation queries DNS; tests substitute a fixture.
type SRVResolver interface {
	LookupSRV(ctx context.Context, query string) ([]SRVRecord, error)
}

// dnsResolver resolves queries through the stdlib DNS client.
type dnsResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewDNSResolver creates an SRV resolver backed by the system DNS
// configuration.
func NewDNSResolver() SRVResolver {
	return &dnsResolver{
		resolver: net.DefaultResolver,
		timeout:  5 * time.Second,
	}
}

func (d *dnsResolver) LookupSRV(ctx context.Context, query string) ([]SRVRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// The query is a full SRV name, e.g. _registry._tcp.example.com
	_, srvs, err := d.resolver.LookupSRV(ctx, "", "", query)
	if err != nil {
		return nil, err
	}

	records := make([]SRVRecord, 0, len(srvs))
	for _, srv := range srvs {
		records = append(records, SRVRecord{
			Host: strings.TrimSuffix(srv.Target, "."),
			Port: srv.Port,
		})
	}
	return records, nil
}

// Connector is the membership layer's connect surface. The poller asks
// it to connect every discovered peer; implementations must tolerate
// repeat requests for already-connected peers.
type Connector interface {
	Connect(node string) error
}

// ConnectorFunc adapts a function to a Connector.
type ConnectorFunc func(node string) error

func (f ConnectorFunc) Connect(node string) error { return f(node) }
