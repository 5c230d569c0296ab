package discovery

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/muurk/snepd/internal/transport"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantName string
		wantAddr string
		wantSAP  int
		wantMIU  int
	}{
		{
			name: "IPv4 server with full TXT records",
			entry: &zeroconf.ServiceEntry{
				HostName: "reader.local.",
				Port:     9424,
				AddrIPv4: []net.IP{net.ParseIP("192.168.4.16")},
				Text:     []string{"sn=urn:nfc:sn:snep", "sap=4", "miu=248", "path=/urn:nfc:sn:snep"},
			},
			wantName: "urn:nfc:sn:snep",
			wantAddr: "ws://192.168.4.16:9424/urn:nfc:sn:snep",
			wantSAP:  4,
			wantMIU:  248,
		},
		{
			name: "missing path defaults to service path",
			entry: &zeroconf.ServiceEntry{
				HostName: "reader.local",
				Port:     8080,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
				Text:     []string{"sn=urn:nfc:sn:handover", "sap=20"},
			},
			wantName: "urn:nfc:sn:handover",
			wantAddr: "ws://10.0.0.5:8080/urn:nfc:sn:handover",
			wantSAP:  20,
		},
		{
			name: "IPv6 only server",
			entry: &zeroconf.ServiceEntry{
				HostName: "reader.local",
				Port:     9424,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
				Text:     []string{"sn=urn:nfc:sn:snep", "path=/urn:nfc:sn:snep"},
			},
			wantName: "urn:nfc:sn:snep",
			wantAddr: "ws://[fe80::1]:9424/urn:nfc:sn:snep",
		},
		{
			name: "both families prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "reader.local",
				Port:     9424,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
				Text:     []string{"sn=x", "path=/x"},
			},
			wantName: "x",
			wantAddr: "ws://192.168.1.50:9424/x",
		},
		{
			name: "no service name",
			entry: &zeroconf.ServiceEntry{
				HostName: "reader.local",
				Port:     9424,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
				Text:     []string{"sap=4"},
			},
			wantNil: true,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				HostName: "reader.local",
				Port:     9424,
				Text:     []string{"sn=urn:nfc:sn:snep"},
			},
			wantNil: true,
		},
		{
			name: "no port",
			entry: &zeroconf.ServiceEntry{
				HostName: "reader.local",
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
				Text:     []string{"sn=urn:nfc:sn:snep"},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if svc != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", svc)
				}
				return
			}

			if svc == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil service")
			}
			if svc.Name != tt.wantName {
				t.Errorf("svc.Name = %v, want %v", svc.Name, tt.wantName)
			}
			if svc.Addr != tt.wantAddr {
				t.Errorf("svc.Addr = %v, want %v", svc.Addr, tt.wantAddr)
			}
			if svc.SAP != tt.wantSAP {
				t.Errorf("svc.SAP = %v, want %v", svc.SAP, tt.wantSAP)
			}
			if svc.MIU != tt.wantMIU {
				t.Errorf("svc.MIU = %v, want %v", svc.MIU, tt.wantMIU)
			}
			if svc.Hostname != tt.entry.HostName {
				t.Errorf("svc.Hostname = %v, want %v", svc.Hostname, tt.entry.HostName)
			}
			if time.Since(svc.DiscoveredAt) > time.Second {
				t.Errorf("svc.DiscoveredAt is not recent: %v", svc.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()

	entry := &zeroconf.ServiceEntry{
		HostName: "reader.local",
		Port:     9424,
		AddrIPv4: []net.IP{net.ParseIP("192.168.4.16")},
		Text:     []string{"sn=urn:nfc:sn:snep", "sap=4", "vendor=acme", "flag"},
	}

	svc := scanner.parseServiceEntry(entry)
	if svc == nil {
		t.Fatal("parseServiceEntry() = nil, want service")
	}

	// Known keys are lifted into fields
	expectedMetadata := map[string]string{
		"vendor": "acme",
		"flag":   "",
	}
	if len(svc.Metadata) != len(expectedMetadata) {
		t.Errorf("svc.Metadata has %d entries, want %d", len(svc.Metadata), len(expectedMetadata))
	}
	for key, expectedValue := range expectedMetadata {
		if actualValue := svc.GetMetadata(key); actualValue != expectedValue {
			t.Errorf("svc.Metadata[%q] = %q, want %q", key, actualValue, expectedValue)
		}
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestTXTRecords(t *testing.T) {
	info := transport.ServiceInfo{Name: "urn:nfc:sn:snep", SAP: 4, MIU: 248}
	got := txtRecords(info, "/urn:nfc:sn:snep")
	want := []string{"sn=urn:nfc:sn:snep", "sap=4", "miu=248", "path=/urn:nfc:sn:snep"}

	if len(got) != len(want) {
		t.Fatalf("txtRecords() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("txtRecords()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitListenAddr(t *testing.T) {
	tests := []struct {
		addr     string
		wantPort int
		wantPath string
		wantErr  bool
	}{
		{"ws://127.0.0.1:9424/urn:nfc:sn:snep", 9424, "/urn:nfc:sn:snep", false},
		{"ws://[::1]:80/svc", 80, "/svc", false},
		{"urn:nfc:sn:snep", 0, "", true},
		{"ws://host/svc", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			port, path, err := splitListenAddr(tt.addr)
			if tt.wantErr {
				if !errors.Is(err, ErrNotNetworkAddress) {
					t.Errorf("splitListenAddr() error = %v, want ErrNotNetworkAddress", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitListenAddr() error = %v", err)
			}
			if port != tt.wantPort || path != tt.wantPath {
				t.Errorf("splitListenAddr() = %d, %q, want %d, %q", port, path, tt.wantPort, tt.wantPath)
			}
		})
	}
}

// Note: live mDNS and etcd tests need network access and are not part of
// the default test run.
