package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/muurk/snepd/internal/logging"
	"github.com/muurk/snepd/internal/transport"
)

const (
	// EtcdPrefix is the key prefix under which services are registered
	EtcdPrefix = "/snepd/"

	// DefaultLeaseTTL is the lease lifetime in seconds. A server that stops
	// renewing its lease disappears from the registry after this long.
	DefaultLeaseTTL = 10

	etcdDialTimeout = 5 * time.Second
)

// EtcdKey returns the registry key of a service instance:
// /snepd/{service name}/{addr}
func EtcdKey(serviceName, addr string) string {
	return EtcdPrefix + serviceName + "/" + addr
}

// EtcdRegistrar registers a running server in etcd with a TTL lease
type EtcdRegistrar struct {
	client *clientv3.Client
	ttl    int64

	mu      sync.Mutex
	key     string
	leaseID clientv3.LeaseID
	stop    context.CancelFunc
}

// NewEtcdRegistrar connects to the given etcd endpoints
func NewEtcdRegistrar(endpoints []string, ttl int64) (*EtcdRegistrar, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: etcdDialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &EtcdRegistrar{client: c, ttl: ttl}, nil
}

// Advertise stores the service under EtcdKey and keeps its lease alive
// until Withdraw is called.
func (r *EtcdRegistrar) Advertise(ctx context.Context, info transport.ServiceInfo, addr string) error {
	lease, err := r.client.Grant(ctx, r.ttl)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}

	val, err := json.Marshal(Service{Name: info.Name, SAP: info.SAP, MIU: info.MIU, Addr: addr})
	if err != nil {
		return err
	}

	key := EtcdKey(info.Name, addr)
	if _, err := r.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register %s: %w", key, err)
	}

	// The keepalive outlives ctx, which only bounds registration
	keepCtx, stop := context.WithCancel(context.Background())
	ch, err := r.client.KeepAlive(keepCtx, lease.ID)
	if err != nil {
		stop()
		return fmt.Errorf("failed to keep lease alive: %w", err)
	}
	go func() {
		for range ch {
		}
	}()

	r.mu.Lock()
	r.key = key
	r.leaseID = lease.ID
	r.stop = stop
	r.mu.Unlock()

	logging.Info("Registered service in etcd",
		zap.String("key", key),
		zap.Int64("ttl", r.ttl),
	)
	return nil
}

// Withdraw deletes the registration and revokes its lease
func (r *EtcdRegistrar) Withdraw(ctx context.Context) error {
	r.mu.Lock()
	key, leaseID, stop := r.key, r.leaseID, r.stop
	r.key, r.leaseID, r.stop = "", 0, nil
	r.mu.Unlock()

	if stop == nil {
		return nil
	}
	stop()

	if _, err := r.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to deregister %s: %w", key, err)
	}
	if _, err := r.client.Revoke(ctx, leaseID); err != nil {
		logging.Debug("Lease revoke failed", zap.Error(err))
	}
	return nil
}

// Lookup returns every registered instance of serviceName
func (r *EtcdRegistrar) Lookup(ctx context.Context, serviceName string) ([]*Service, error) {
	resp, err := r.client.Get(ctx, EtcdPrefix+serviceName+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	values := make([][]byte, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		values = append(values, kv.Value)
	}
	return decodeServices(values), nil
}

// decodeServices skips malformed entries
func decodeServices(values [][]byte) []*Service {
	services := make([]*Service, 0, len(values))
	for _, v := range values {
		var svc Service
		if err := json.Unmarshal(v, &svc); err != nil {
			continue
		}
		svc.DiscoveredAt = time.Now()
		services = append(services, &svc)
	}
	return services
}

// Close releases the etcd client
func (r *EtcdRegistrar) Close() error {
	return r.client.Close()
}
