package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/snepd/internal/discovery"
	"github.com/muurk/snepd/internal/ndef"
	"github.com/muurk/snepd/internal/snep"
	"github.com/muurk/snepd/internal/transport"
	"github.com/muurk/snepd/internal/ui"
)

// Put and get command flags
var (
	content          putContent
	acceptableLength uint32
	recordType       string
	outputPath       string
)

var putCmd = &cobra.Command{
	Use:   "put [address]",
	Short: "Push an NDEF message to a server",
	Long: `Push an NDEF message to a SNEP server with a PUT request.

The message holds one record per source flag, in the order text, uri, file.
File records are MIME records; the type is detected from the content unless
--mime is given.`,
	Example: `  # Push a text record to a discovered server
  snepctl put --text "hello"

  # Push a URI to a specific server
  snepctl put --uri https://example.com ws://192.168.1.20:9424/urn:nfc:sn:snep

  # Push a file in 16 byte fragments
  snepctl put --file card.vcf --mime text/vcard --fragment-length 16`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPut,
}

var getCmd = &cobra.Command{
	Use:   "get [address]",
	Short: "Fetch an NDEF message from a server",
	Long: `Fetch a stored NDEF message from a SNEP server with a GET request.

--type selects the message by the type of its first record: "text", "uri" or
a MIME type. Without it the newest message is returned. The server answers
Excess Data when the message is larger than --acceptable-length.`,
	Example: `  # Fetch the newest message
  snepctl get

  # Fetch the newest vCard, up to 4 KiB
  snepctl get --type text/vcard --acceptable-length 4096

  # Save the raw NDEF bytes
  snepctl get --output message.ndef ws://127.0.0.1:9424/urn:nfc:sn:snep`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

func init() {
	putCmd.Flags().StringVar(&content.Text, "text", "", "Text record content")
	putCmd.Flags().StringVar(&content.Lang, "lang", "en", "Language code of the text record")
	putCmd.Flags().StringVar(&content.URI, "uri", "", "URI record content")
	putCmd.Flags().StringVar(&content.File, "file", "", "File to send as a MIME record")
	putCmd.Flags().StringVar(&content.MIMEType, "mime", "", "MIME type of --file (detected when empty)")

	getCmd.Flags().Uint32Var(&acceptableLength, "acceptable-length", 1<<16, "Largest response the client accepts, in bytes")
	getCmd.Flags().StringVar(&recordType, "type", "", "Type of the first record to match (text, uri or a MIME type)")
	getCmd.Flags().StringVar(&outputPath, "output", "", "Write the raw NDEF message to this file")
}

// resolveAddr returns the address argument, or looks the service up over
// mDNS when none was given.
func resolveAddr(ctx context.Context, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	var svc *discovery.Service
	err := ui.RunWithSpinner("Looking up "+serviceName+" over mDNS...", func() error {
		scanner := discovery.NewScanner()
		scanner.Timeout = timeout
		var err error
		svc, err = scanner.Find(ctx, serviceName)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("no address given and mDNS lookup failed: %w", err)
	}
	return svc.Addr, nil
}

// exchange dials addr, sends one request and closes the connection
func exchange(ctx context.Context, addr, label string, send func(ctx context.Context, c *snep.Client) (*snep.Message, error)) (*snep.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp *snep.Message
	err := ui.RunWithSpinner(label, func() error {
		client, err := snep.Dial(ctx, transport.NewWebSocket(), addr, clientOptions())
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err = send(ctx, client)
		return err
	})
	return resp, err
}

func requestTroubleshooting(err error) []string {
	switch {
	case snep.IsTransport(err):
		return []string{
			"Check that snep-server is running and reachable",
			"Verify the address, e.g. ws://host:9424/urn:nfc:sn:snep",
			"Try --no-handshake if the server sends fragments without Continue",
		}
	case snep.IsProtocol(err), snep.IsDecode(err):
		return []string{
			"The server answered with an unexpected message",
			"Run with SNEPD_LOG_LEVEL=debug to see every fragment",
		}
	default:
		return nil
	}
}

func runPut(cmd *cobra.Command, args []string) error {
	msg, err := buildMessage(content)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	addr, err := resolveAddr(ctx, args)
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("SNEP PUT", "snepctl put", map[string]string{
		"Server":  addr,
		"Records": strconv.Itoa(len(msg)),
		"Bytes":   strconv.Itoa(msg.ByteLength()),
	})

	resp, err := exchange(ctx, addr, "Sending PUT request...", func(ctx context.Context, c *snep.Client) (*snep.Message, error) {
		return c.Put(ctx, msg)
	})
	if err != nil {
		p.PrintError("PUT failed", err, requestTroubleshooting(err))
		return err
	}

	if resp.Type != snep.ResponseSuccess {
		p.PrintResponse("Server refused the message", resp.Type, nil)
		return fmt.Errorf("server answered %s", resp.Type)
	}

	p.PrintResponse("Message delivered", resp.Type, map[string]string{
		"Records": strconv.Itoa(len(msg)),
		"Bytes":   strconv.Itoa(msg.ByteLength()),
	})
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	addr, err := resolveAddr(ctx, args)
	if err != nil {
		return err
	}

	req := getRequest(recordType)
	params := map[string]string{
		"Server":            addr,
		"Acceptable length": strconv.FormatUint(uint64(acceptableLength), 10),
	}
	if recordType != "" {
		params["Type"] = recordType
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("SNEP GET", "snepctl get", params)

	resp, err := exchange(ctx, addr, "Sending GET request...", func(ctx context.Context, c *snep.Client) (*snep.Message, error) {
		return c.Get(ctx, acceptableLength, req)
	})
	if err != nil {
		p.PrintError("GET failed", err, requestTroubleshooting(err))
		return err
	}

	switch resp.Type {
	case snep.ResponseSuccess:
	case snep.ResponseNotFound:
		p.PrintResponse("No matching message", resp.Type, nil)
		return nil
	default:
		p.PrintResponse("Server refused the request", resp.Type, nil)
		return fmt.Errorf("server answered %s", resp.Type)
	}

	msg, err := ndef.Parse(resp.Payload)
	if err != nil {
		p.PrintError("Invalid NDEF message", err, nil)
		return err
	}

	details := map[string]string{
		"Records": strconv.Itoa(len(msg)),
		"Bytes":   strconv.Itoa(len(resp.Payload)),
	}
	if outputPath != "" {
		if err := os.WriteFile(outputPath, resp.Payload, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		details["Saved to"] = outputPath
	}

	p.PrintResponse("Message received", resp.Type, details)
	p.PrintRecords(msg)
	return nil
}
