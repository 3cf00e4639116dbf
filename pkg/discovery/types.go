package discovery

import (
	"errors"
	"strings"
	"time"

	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

// mDNS constants.
const (
	// ServiceType is the mDNS service advertising hubs.
	ServiceType = "_lifesmart._udp"

	// Domain is the mDNS domain.
	Domain = "local"

	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second
)

// ErrNotFound indicates no hub advertised itself within the timeout.
var ErrNotFound = errors.New("no hub found")

// HubService describes one advertised hub. Discovery is advisory:
// hubs that do not advertise are configured by address as always.
type HubService struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the advertised hostname.
	Host string

	// Port is the advertised command port.
	Port int

	// Addresses holds the resolved IPv4/IPv6 addresses.
	Addresses []string

	// Model is the hub model from the TXT record, when advertised.
	Model string
}

// Addr returns the best address to dial: the first resolved IP, or
// the hostname when resolution produced none.
func (h *HubService) Addr() string {
	if len(h.Addresses) > 0 {
		return h.Addresses[0]
	}
	return strings.TrimSuffix(h.Host, ".")
}

// ServiceEntry holds raw mDNS service entry data. It is the
// transport-independent form Browse aggregates over.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     int
	Text     []string
	Addrs    []string
}

// ToHubService converts a ServiceEntry to a HubService.
func (e *ServiceEntry) ToHubService() *HubService {
	txt := parseTXT(e.Text)
	return &HubService{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         defaultPort(e.Port),
		Addresses:    e.Addrs,
		Model:        txt["model"],
	}
}

// parseTXT splits mDNS TXT records into key/value pairs. Bare keys
// map to the empty string.
func parseTXT(text []string) map[string]string {
	kv := make(map[string]string, len(text))
	for _, record := range text {
		key, value, _ := strings.Cut(record, "=")
		if key == "" {
			continue
		}
		kv[key] = value
	}
	return kv
}

// mergeAddresses appends the addresses missing from existing,
// preserving order.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[a] = struct{}{}
	}
	for _, a := range added {
		if _, ok := seen[a]; !ok {
			existing = append(existing, a)
			seen[a] = struct{}{}
		}
	}
	return existing
}

// defaultPort substitutes the protocol port for unset advertisements.
func defaultPort(port int) int {
	if port <= 0 {
		return wire.Port
	}
	return port
}
