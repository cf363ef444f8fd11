// Package tui implements the interactive lookup screen.
//
// The screen is a single Bubble Tea model: a serial number input, a spinner
// while a lookup is in flight, the resolved model on success and an error
// banner on failure. The banner hides itself after a delay (three seconds by
// default); Reset is offered only while a model is shown.
//
// Lookups run as tea.Cmds so the UI never blocks. Each lookup carries a
// sequence number and results from superseded requests are dropped.
//
//	opts := tui.Options{
//	    Lookup:    client.Lookup,
//	    Source:    client.Endpoint,
//	    Uppercase: true,
//	}
//	if err := tui.Run(opts); err != nil {
//	    log.Fatal(err)
//	}
package tui
