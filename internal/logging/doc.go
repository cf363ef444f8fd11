// Package logging provides structured logging for modelfinder.
//
// This package wraps a package-level zap logger with convenience functions
// for the handful of events the tools care about: lookups, HTTP traffic of
// the lookup server and WebSocket messages.
//
// # Silent by Default
//
// Command-line front ends must not mix log lines into their output, so the
// logger is a no-op until a level is configured, either explicitly or via
// the MODELFINDER_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Structured Logging
//
//	logging.Info("Lookup server listening",
//	    zap.String("addr", ":8080"),
//	)
//
//	logging.LogLookup(key, model, elapsed, err)
//
// # Output
//
// Logs are written to stderr in console format so that stdout stays usable
// for JSON output and piping.
package logging
