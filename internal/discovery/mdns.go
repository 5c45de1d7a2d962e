// Package discovery advertises the meter on the local network over mDNS.
package discovery

import (
	"fmt"
	"strings"

	"github.com/hashicorp/mdns"
)

// Advertiser answers mDNS queries for the meter's HTTP service.
type Advertiser struct {
	server *mdns.Server
}

// TXTRecords builds the TXT fields published with the service.
func TXTRecords(version, readingPath string) []string {
	return []string{
		"version=" + version,
		"path=" + readingPath,
		"format=json",
	}
}

// Advertise registers instance under service (for example "_lightmeter._tcp")
// on port and starts answering queries.
func Advertise(instance, service string, port int, txt []string) (*Advertiser, error) {
	if !strings.HasPrefix(service, "_") || !strings.Contains(service, "._") {
		return nil, fmt.Errorf("invalid mdns service %q", service)
	}
	// Empty domain and host name default to "local." and this machine.
	svc, err := mdns.NewMDNSService(instance, service, "", "", port, nil, txt)
	if err != nil {
		return nil, fmt.Errorf("mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		return nil, fmt.Errorf("mdns server: %w", err)
	}
	return &Advertiser{server: server}, nil
}

func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}
