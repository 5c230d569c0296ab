package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/snepd/internal/logging"
	"github.com/muurk/snepd/internal/transport"
)

const (
	// ServiceType is the mDNS service type SNEP servers advertise
	ServiceType = "_snep._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for service discovery
	DefaultScanTimeout = 5 * time.Second
)

// TXT record keys
const (
	txtServiceName = "sn"
	txtSAP         = "sap"
	txtMIU         = "miu"
	txtPath        = "path"
)

// ErrNotNetworkAddress is returned when advertising a listener that has no
// host and port, such as the in-memory transport.
var ErrNotNetworkAddress = errors.New("discovery: listener address is not a network address")

// MDNSAdvertiser publishes a running server with multicast DNS
type MDNSAdvertiser struct {
	// Instance is the mDNS instance name; the service name is used when empty
	Instance string

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAdvertiser creates an advertiser for the given instance name
func NewMDNSAdvertiser(instance string) *MDNSAdvertiser {
	return &MDNSAdvertiser{Instance: instance}
}

// Advertise registers the service found at addr. A previous registration
// is replaced.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info transport.ServiceInfo, addr string) error {
	port, path, err := splitListenAddr(addr)
	if err != nil {
		return err
	}

	instance := a.Instance
	if instance == "" {
		instance = info.Name
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txtRecords(info, path), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	a.mu.Lock()
	old := a.server
	a.server = server
	a.mu.Unlock()
	if old != nil {
		old.Shutdown()
	}

	logging.Info("Advertising service over mDNS",
		zap.String("instance", instance),
		zap.String("type", ServiceType),
		zap.Int("port", port),
	)
	return nil
}

// Withdraw stops answering mDNS queries for the service
func (a *MDNSAdvertiser) Withdraw(ctx context.Context) error {
	a.mu.Lock()
	server := a.server
	a.server = nil
	a.mu.Unlock()

	if server != nil {
		server.Shutdown()
	}
	return nil
}

func txtRecords(info transport.ServiceInfo, path string) []string {
	return []string{
		txtServiceName + "=" + info.Name,
		txtSAP + "=" + strconv.Itoa(info.SAP),
		txtMIU + "=" + strconv.Itoa(info.MIU),
		txtPath + "=" + path,
	}
}

// splitListenAddr extracts the port and path from a ws:// listener address
func splitListenAddr(addr string) (int, string, error) {
	u, err := url.Parse(addr)
	if err != nil || u.Port() == "" {
		return 0, "", fmt.Errorf("%q: %w", addr, ErrNotNetworkAddress)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return 0, "", fmt.Errorf("%q: %w", addr, ErrNotNetworkAddress)
	}
	return port, u.Path, nil
}

// Scanner handles mDNS service discovery
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan collects every SNEP service that answers before the timeout
func (s *Scanner) Scan(ctx context.Context) ([]*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	collected := make(chan []*Service, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		services := make([]*Service, 0)
		for entry := range entries {
			if svc := s.parseServiceEntry(entry); svc != nil {
				services = append(services, svc)
			}
		}
		collected <- services
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the context ends
	return <-collected, nil
}

// Find waits for a service with the given SNEP service name
func (s *Scanner) Find(ctx context.Context, serviceName string) (*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Service, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			svc := s.parseServiceEntry(entry)
			if svc != nil && svc.Name == serviceName {
				select {
				case found <- svc:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case svc := <-found:
		return svc, nil
	case <-ctx.Done():
		select {
		case svc := <-found:
			return svc, nil
		default:
		}
		return nil, fmt.Errorf("service %s not found within timeout", serviceName)
	}
}

// parseServiceEntry converts a zeroconf entry to a Service.
// Returns nil if the entry has no address or no service name.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Service {
	if entry.Port == 0 {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	name := metadata[txtServiceName]
	if name == "" {
		return nil
	}
	sap, _ := strconv.Atoi(metadata[txtSAP])
	miu, _ := strconv.Atoi(metadata[txtMIU])
	path := metadata[txtPath]
	if path == "" {
		path = transport.ServicePath(name)
	}

	for _, k := range []string{txtServiceName, txtSAP, txtMIU, txtPath} {
		delete(metadata, k)
	}

	return &Service{
		Name:         name,
		SAP:          sap,
		MIU:          miu,
		Addr:         websocketURL(ip, entry.Port, path),
		Hostname:     entry.HostName,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
