// Package logging provides structured logging for the SNEP server and client.
//
// This package wraps a package-global zap logger with convenience functions
// for common logging patterns, plus SNEP-specific helpers.
//
// # Log Levels
//
//   - Debug: hex dumps, individual transport fragments, continuation handshakes
//   - Info: connections, decoded requests and responses, lifecycle changes
//   - Warn: malformed requests, dropped connections, advertisement failures
//   - Error: listener failures
//
// # Structured Logging
//
//	logging.Info("Server started",
//	    zap.String("service_name", "urn:nfc:sn:snep"),
//	    zap.Int("sap", 4),
//	)
//
// Connection and message helpers:
//
//	logging.LogConnection(remoteAddr, "connection_accepted")
//	logging.LogMessage(remoteAddr, "received", "Put", raw)
//	logging.LogFragment(remoteAddr, "sent", 2, frame)
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// With an empty level the SNEPD_LOG_LEVEL environment variable is consulted;
// if that is empty too the logger is a no-op.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
