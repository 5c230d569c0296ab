package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/snepd/internal/discovery"
	"github.com/muurk/snepd/internal/ui"
)

var etcdEndpoints []string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find SNEP servers on the network",
	Long: `Find SNEP servers advertised over mDNS (_snep._tcp) or registered in etcd.

With --etcd the registry is queried for instances of --service-name instead of
listening for mDNS answers.`,
	Example: `  # Listen for mDNS answers for 10 seconds (default)
  snepctl discover

  # Quick 3 second scan
  snepctl discover --timeout 3s

  # Query an etcd registry
  snepctl discover --etcd 127.0.0.1:2379`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringSliceVar(&etcdEndpoints, "etcd", nil, "etcd endpoints to query instead of mDNS")
}

func findServices(ctx context.Context) ([]*discovery.Service, error) {
	if len(etcdEndpoints) > 0 {
		r, err := discovery.NewEtcdRegistrar(etcdEndpoints, discovery.DefaultLeaseTTL)
		if err != nil {
			return nil, err
		}
		defer r.Close()

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return r.Lookup(ctx, serviceName)
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan(ctx)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	source := "mDNS"
	if len(etcdEndpoints) > 0 {
		source = "etcd"
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("SNEP DISCOVER", "snepctl discover", map[string]string{
		"Source":  source,
		"Timeout": timeout.String(),
	})

	var services []*discovery.Service
	err := ui.RunWithSpinner("Scanning "+source+"...", func() error {
		var err error
		services, err = findServices(cmd.Context())
		return err
	})
	if err != nil {
		p.PrintError("Discovery failed", err, []string{
			"mDNS needs multicast on the local network",
			"For etcd, check the endpoints and that the cluster is healthy",
		})
		return err
	}

	if len(services) == 0 {
		p.PrintWarning("No servers found", map[string]string{
			"Hint": "Start one with 'snep-server server --advertise " + sourceFlag(source) + "'",
		})
		return nil
	}

	for i, svc := range services {
		details := map[string]string{
			"Address": svc.Addr,
			"SAP":     strconv.Itoa(svc.SAP),
			"MIU":     strconv.Itoa(svc.MIU),
		}
		if svc.Hostname != "" {
			details["Host"] = svc.Hostname
		}
		p.PrintSuccess(fmt.Sprintf("%d. %s", i+1, svc.Name), details)
	}
	return nil
}

func sourceFlag(source string) string {
	if source == "etcd" {
		return "etcd"
	}
	return "mdns"
}
