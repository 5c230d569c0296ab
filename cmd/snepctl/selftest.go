package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/snepd/internal/inbox"
	"github.com/muurk/snepd/internal/ndef"
	"github.com/muurk/snepd/internal/snep"
	"github.com/muurk/snepd/internal/transport"
	"github.com/muurk/snepd/internal/ui"
)

var (
	selftestSize      int
	selftestServerMIU int
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Round-trip a message through an in-process server",
	Long: `Start a server on the in-process memory transport, push a message of
--size bytes and fetch it back. Fragment sizes follow --miu, --server-miu
and --fragment-length, so this exercises fragmentation without a network.`,
	Example: `  # 1 KiB through 32 byte frames
  snepctl selftest --size 1024 --miu 32 --server-miu 32`,
	Args: cobra.NoArgs,
	RunE: runSelftest,
}

func init() {
	selftestCmd.Flags().IntVar(&selftestSize, "size", 1024, "Payload size of the test record in bytes")
	selftestCmd.Flags().IntVar(&selftestServerMIU, "server-miu", snep.DefaultMIU, "MIU of the in-process server")
}

// selftestPayload returns size bytes of a repeating pattern
func selftestPayload(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

// roundTrip pushes msg to a fresh in-process server and fetches it back
func roundTrip(ctx context.Context, msg ndef.Message, serverMIU int, opts snep.ClientOptions, handshake bool) (ndef.Message, error) {
	mem := transport.NewMemory()

	cfg := snep.DefaultConfig()
	cfg.MIU = serverMIU
	cfg.Handshake = handshake
	srv := snep.New(cfg, mem, inbox.New(1), snep.WithMiddleware(snep.Recover()))
	if err := srv.Start(); err != nil {
		return nil, err
	}
	defer srv.Stop()

	client, err := snep.Dial(ctx, mem, cfg.ServiceName, opts)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	resp, err := client.Put(ctx, msg)
	if err != nil {
		return nil, err
	}
	if resp.Type != snep.ResponseSuccess {
		return nil, fmt.Errorf("PUT answered %s", resp.Type)
	}

	resp, err = client.Get(ctx, uint32(msg.ByteLength()), getRequest(string(msg[0].Type)))
	if err != nil {
		return nil, err
	}
	if resp.Type != snep.ResponseSuccess {
		return nil, fmt.Errorf("GET answered %s", resp.Type)
	}
	return ndef.Parse(resp.Payload)
}

func runSelftest(cmd *cobra.Command, args []string) error {
	if selftestSize < 0 {
		return fmt.Errorf("--size must not be negative")
	}

	msg := ndef.Message{ndef.NewMIMERecord("application/octet-stream", selftestPayload(selftestSize))}
	opts := clientOptions()

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("SNEP SELFTEST", "snepctl selftest", map[string]string{
		"Message bytes":   strconv.Itoa(msg.ByteLength()),
		"Client MIU":      strconv.Itoa(localMIU),
		"Server MIU":      strconv.Itoa(selftestServerMIU),
		"Fragment length": strconv.Itoa(fragmentLength),
		"Handshake":       strconv.FormatBool(!noHandshake),
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var got ndef.Message
	err := ui.RunWithSpinner("Round-tripping message...", func() error {
		var err error
		got, err = roundTrip(ctx, msg, selftestServerMIU, opts, !noHandshake)
		return err
	})
	if err == nil && (len(got) != 1 || !bytes.Equal(got[0].Payload, msg[0].Payload)) {
		err = fmt.Errorf("message changed in transit")
	}
	if err != nil {
		p.PrintError("Selftest failed", err, requestTroubleshooting(err))
		return err
	}

	p.PrintSuccess("Message round-tripped", map[string]string{
		"Records": strconv.Itoa(len(got)),
		"Bytes":   strconv.Itoa(got.ByteLength()),
	})
	return nil
}
