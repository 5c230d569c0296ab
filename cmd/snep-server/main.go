// Snep-server runs a SNEP default server.
//
// Peers push NDEF messages with PUT requests and fetch them back with GET
// requests. Connections arrive over WebSocket (one binary message per SNEP
// fragment) and the server can advertise itself with mDNS or etcd.
//
// Usage:
//
//	snep-server server [flags]
//
// See 'snep-server server --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/snepd/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snep-server",
	Short: "SNEP default server",
	Long: `A SNEP (Simple NDEF Exchange Protocol) default server.

Clients push NDEF messages with PUT and fetch stored messages with GET.
Large messages are fragmented to the peer's MIU and reassembled with the
Continue handshake.

For sending requests, use the separate 'snepctl' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("snep-server %s\n", version.Full())
	},
}
