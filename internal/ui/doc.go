// Package ui provides terminal UI components for the snepctl and snepd CLIs.
//
// This package uses Bubble Tea and Lipgloss to render styled terminal output
// for client commands. The components follow a "run once and exit" pattern:
// they render output but don't require user interaction.
//
// # Components
//
//   - Header: command banner showing the operation and its parameters
//   - Spinner: shown while a request is in flight (see RunWithSpinner)
//   - Result: success, warning and failure boxes, with the SNEP response code
//     when a request completed
//   - RecordsBox: decoded listing of the records in an NDEF message
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("SNEP GET", "snepctl get", map[string]string{"Server": addr})
//
//	var resp *snep.Message
//	err := ui.RunWithSpinner("Sending GET request...", func() error {
//	    resp, err = client.Get(ctx, acceptable, req)
//	    return err
//	})
//
// # Logging Integration
//
// This package expects logging to be controlled via the SNEPD_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
