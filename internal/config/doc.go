// Package config provides the server configuration for snepd.
//
// Configuration is read from a YAML or TOML file, chosen by extension, and
// layered over Default. Command-line flags override file values.
//
// # Configuration File Location
//
// Without --config the file is looked up in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/snepd/config.yaml or $HOME/.config/snepd/config.yaml
//   - macOS: $HOME/.config/snepd/config.yaml
//   - Windows: %LOCALAPPDATA%\snepd\config.yaml
//
// A missing default file is not an error.
//
// # Example
//
//	service_name: urn:nfc:sn:snep
//	sap: 4
//	miu: 248
//	listen: ":9424"
//	transport: websocket
//	advertise: mdns
//	rate_limit: 20
//	rate_burst: 10
package config
