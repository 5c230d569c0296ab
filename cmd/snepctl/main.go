// Snepctl is a command line client for SNEP servers.
//
// It pushes NDEF messages with PUT, fetches them with GET, and finds servers
// advertised over mDNS or etcd.
//
// Usage:
//
//	snepctl [command] [flags]
//
// See 'snepctl --help' for available commands.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/snepd/internal/logging"
	"github.com/muurk/snepd/internal/snep"
	"github.com/muurk/snepd/internal/ui"
	"github.com/muurk/snepd/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Connection flags shared by the request commands
var (
	serviceName    string
	localMIU       int
	fragmentLength int
	noHandshake    bool
	timeout        time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "snepctl",
	Short: "SNEP client",
	Long: `A command line client for SNEP (Simple NDEF Exchange Protocol) servers.

Server addresses are WebSocket URLs such as ws://127.0.0.1:9424/urn:nfc:sn:snep.
When no address is given, the server is looked up over mDNS.

Logging is silent unless SNEPD_LOG_LEVEL is set.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&serviceName, "service-name", snep.DefaultServiceName, "Service name to look up when no address is given")
	flags.IntVar(&localMIU, "miu", snep.DefaultMIU, "Local MIU announced to the server")
	flags.IntVar(&fragmentLength, "fragment-length", 0, "Maximum outgoing fragment size (0 = server MIU)")
	flags.BoolVar(&noHandshake, "no-handshake", false, "Send fragments without waiting for Continue")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "Time allowed for discovery and each request")

	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(selftestCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("snepctl "+version.Version, version.Details())
	},
}

func clientOptions() snep.ClientOptions {
	return snep.ClientOptions{
		MIU:            localMIU,
		FragmentLength: fragmentLength,
		NoHandshake:    noHandshake,
	}
}
