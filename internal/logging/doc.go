// Package logging provides structured logging for tramesniff.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the sniffer: session state changes, received
// frames, feed client connections and raw link bytes.
//
// # Log Levels
//
//   - Debug: Detailed debugging info (raw link bytes, every received frame)
//   - Info: Normal operations (state changes, client connections)
//   - Warn: Non-fatal issues (handshake timeout, dropped feed clients)
//   - Error: Session aborts and startup failures
//
// # Structured Logging
//
// All log functions use structured fields:
//
//	logging.Info("Port opened",
//	    zap.String("port", "/dev/ttyUSB0"),
//	    zap.Int("baud", 115200),
//	)
//
// # Configuration
//
// Logging is silent unless a level is given, either explicitly or through
// the TRAMESNIFF_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When the live terminal view is running, use InitializeTo with "stderr" or
// InitializeFile so log lines do not tear the display. InitializeFile rotates
// the file once it reaches LogFileMaxSizeMB.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and SetLogger
// are meant to be called once at startup.
package logging
