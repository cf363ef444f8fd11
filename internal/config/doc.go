// Package config provides user configuration for modelfinder.
//
// Settings and a short history of resolved lookups live in a YAML file in
// the platform's configuration directory:
//   - Linux: $XDG_CONFIG_HOME/modelfinder/config.yaml or $HOME/.config/modelfinder/config.yaml
//   - macOS: $HOME/.config/modelfinder/config.yaml
//   - Windows: %LOCALAPPDATA%\modelfinder\config.yaml
//
// The directory can be moved with MODELFINDER_CONFIG_DIR. MODELFINDER_ENDPOINT
// and MODELFINDER_TIMEOUT override the file's endpoint and timeout; command
// line flags override both.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := lookup.NewClientWithURL(registry.Settings.Endpoint)
//	client.SetTimeout(registry.Settings.Timeout())
//
//	registry.AddHistory(res.Serial, res.Key, res.Model)
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// History is only ever displayed. Lookups always go to the endpoint.
//
// # Thread Safety
//
// The global registry uses sync.Once for initialization. File writes are
// serialized by a mutex and are atomic (write to temp file, then rename).
package config
