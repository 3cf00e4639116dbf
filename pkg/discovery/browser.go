package discovery

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures hub browsing.
type BrowserConfig struct {
	// Timeout bounds Find (default: BrowseTimeout).
	Timeout time.Duration

	// Interface restricts browsing to one network interface.
	// Empty means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{Timeout: BrowseTimeout}
}

// Browser locates hubs over mDNS.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a hub browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.Timeout <= 0 {
		config.Timeout = BrowseTimeout
	}
	return &Browser{config: config}
}

// Browse emits hubs as they appear, aggregated by instance name:
// addresses seen on multiple interfaces merge into the entry already
// emitted. The channel closes when ctx ends.
func (b *Browser) Browse(ctx context.Context) (<-chan *HubService, error) {
	out := make(chan *HubService)
	raw := make(chan *zeroconf.ServiceEntry)
	rawRemoved := make(chan *zeroconf.ServiceEntry)
	entries := make(chan *ServiceEntry)
	removed := make(chan *ServiceEntry)

	go forward(ctx, raw, entries)
	go forward(ctx, rawRemoved, removed)
	go aggregate(ctx, entries, removed, out)
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, raw, rawRemoved, b.options()...)
	}()

	return out, nil
}

// Find returns the first hub that advertises itself. Without a
// deadline on ctx the configured timeout applies; running out of time
// means ErrNotFound.
func (b *Browser) Find(ctx context.Context) (*HubService, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}

	hubs, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case hub, ok := <-hubs:
		if !ok {
			if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, ErrNotFound
		}
		return hub, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrNotFound
		}
		return nil, ctx.Err()
	}
}

func (b *Browser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// forward flattens raw zeroconf entries and relays them until ctx
// ends or the source closes.
func forward(ctx context.Context, in <-chan *zeroconf.ServiceEntry, out chan<- *ServiceEntry) {
	defer close(out)
	for {
		select {
		case entry, ok := <-in:
			if !ok {
				return
			}
			flat := fromZeroconf(entry)
			if flat == nil {
				continue
			}
			select {
			case out <- flat:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// fromZeroconf flattens a zeroconf entry into a ServiceEntry.
func fromZeroconf(entry *zeroconf.ServiceEntry) *ServiceEntry {
	if entry == nil {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &ServiceEntry{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     entry.Port,
		Text:     entry.Text,
		Addrs:    addrs,
	}
}

// aggregate folds mDNS entries into per-instance hub services. New
// instances are emitted once; later sightings only merge their
// addresses. Instances whose addresses all disappear are forgotten so
// a re-appearance emits again.
func aggregate(ctx context.Context, entries, removed <-chan *ServiceEntry, out chan<- *HubService) {
	defer close(out)

	services := make(map[string]*HubService)

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			svc := entry.ToHubService()

			if existing, found := services[svc.InstanceName]; found {
				existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
				continue
			}
			services[svc.InstanceName] = svc
			select {
			case out <- svc:
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if existing, found := services[entry.Instance]; found {
				existing.Addresses = removeAddresses(existing.Addresses, entry.Addrs)
				if len(existing.Addresses) == 0 {
					delete(services, entry.Instance)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// removeAddresses drops the given addresses, preserving order.
func removeAddresses(existing, gone []string) []string {
	drop := make(map[string]struct{}, len(gone))
	for _, a := range gone {
		drop[a] = struct{}{}
	}
	kept := existing[:0]
	for _, a := range existing {
		if _, ok := drop[a]; !ok {
			kept = append(kept, a)
		}
	}
	return kept
}
