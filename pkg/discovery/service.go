package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
)

const (
	DefaultServiceType = "_slidingftp._udp"
	DefaultDomain      = "local"
)

var ErrNoService = errors.New("no server found")

type ServiceInfo struct {
	Name   string // instance name
	Type   string // service type, e.g. "_slidingftp._udp"
	Domain string // domain, e.g. "local"
	Addr   net.IP
	Port   int
}

// Endpoint renders the service as host:port.
func (s ServiceInfo) Endpoint() string {
	return net.JoinHostPort(s.Addr.String(), strconv.Itoa(s.Port))
}

// DiscoveryResult carries either a snapshot of the services seen so far or an error.
type DiscoveryResult struct {
	Services []ServiceInfo
	Error    error
}

type Adapter interface {
	Announce(ctx context.Context, service ServiceInfo) error
	Discover(ctx context.Context, service string) <-chan DiscoveryResult
}

// FirstService browses for serviceType until a service appears or ctx ends.
// When several appear in the same snapshot, the lowest name wins.
func FirstService(ctx context.Context, adapter Adapter, serviceType string) (ServiceInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := adapter.Discover(ctx, serviceType)
	for {
		select {
		case <-ctx.Done():
			return ServiceInfo{}, fmt.Errorf("%w: %w", ErrNoService, ctx.Err())
		case res, ok := <-results:
			if !ok {
				return ServiceInfo{}, ErrNoService
			}
			if res.Error != nil {
				return ServiceInfo{}, res.Error
			}
			if len(res.Services) == 0 {
				continue
			}
			services := append([]ServiceInfo(nil), res.Services...)
			sort.Slice(services, func(i, j int) bool {
				return services[i].Name < services[j].Name
			})
			return services[0], nil
		}
	}
}
