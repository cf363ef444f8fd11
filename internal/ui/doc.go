// Package ui provides terminal output components for the modelfinder CLI.
//
// These components follow a "print once and exit" pattern: they render
// lookup output with Lipgloss but take no user input. The interactive
// front end lives in package tui.
//
// # Components
//
//   - Header: Command banner showing the endpoint and timeout in use
//   - Progress: Progress bar with one status line per serial number
//   - Result: Found/failed boxes, with troubleshooting for failures
//   - Runner: Drives header, progress and results for a batch of lookups
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:   "Model Lookup",
//	    Command: "modelfinder lookup",
//	    Params:  []ui.Param{{Key: "Endpoint", Value: client.Endpoint}},
//	    Serials: args,
//	})
//	results := runner.Run(ctx, client.Lookup)
//
// # Logging Integration
//
// zap logging is silent unless MODELFINDER_LOG_LEVEL is set, so the curated
// output here is not interleaved with log lines.
package ui
