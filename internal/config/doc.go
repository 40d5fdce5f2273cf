// Package config provides user configuration management for tramesniff.
//
// This package manages a YAML-based configuration file that stores application
// preferences (default serial port, timeouts, feed settings) and named sniff
// profiles. The configuration follows OS-specific conventions for storage
// location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/tramesniff/config.yaml or $HOME/.config/tramesniff/config.yaml
//   - macOS: $HOME/.config/tramesniff/config.yaml
//   - Windows: %LOCALAPPDATA%\tramesniff\config.yaml
//
// The SQLite store lives next to it unless database_path is set.
//
// # Usage Example
//
//	// Load the global registry
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Add a profile and make it the default
//	if err := registry.SetProfile("modbus", session.PortConfig{
//	    BaudRate: 19200, Parity: session.ParityEven, DataBits: 8, StopBits: 1,
//	}); err != nil {
//	    log.Fatal(err)
//	}
//	registry.Preferences.DefaultProfile = "modbus"
//
//	// Save changes
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// LoadRegistry returns a shared instance loaded once. File writes are
// serialized; in-memory mutation of a Registry is not synchronized.
package config
