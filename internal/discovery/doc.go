// Package discovery advertises SNEP servers and finds them on the network.
//
// Two mechanisms are supported:
//
//   - mDNS: servers register a "_snep._tcp" service whose TXT records carry
//     the SNEP service name (sn), SAP (sap), MIU (miu) and HTTP path (path).
//   - etcd: servers store a JSON record under /snepd/{service name}/{addr},
//     attached to a TTL lease that is renewed while the server runs.
//
// Both MDNSAdvertiser and EtcdRegistrar satisfy snep.Advertiser.
//
// # Usage Example
//
//	services, err := discovery.NewScanner().Scan(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, svc := range services {
//	    fmt.Println(svc)
//	}
//
// # Network Requirements
//
// mDNS requires multicast support on the network interface and UDP port
// 5353 open. Only listeners with a host and port (the WebSocket transport)
// can be advertised over mDNS.
package discovery
