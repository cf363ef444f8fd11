// Modelfinder-server serves Apple model lookups over HTTP and WebSocket.
//
// It lets machines without direct access to Apple's product endpoint, or
// scripts that prefer JSON, resolve serial numbers through one host on the
// local network. With --advertise the server announces itself over mDNS so
// 'modelfinder servers' and 'modelfinder lookup --discover' can find it.
//
// Usage:
//
//	modelfinder-server serve [flags]
//
// See 'modelfinder-server serve --help' for available options.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/modelfinder/internal/config"
	"github.com/muurk/modelfinder/internal/server"
	"github.com/muurk/modelfinder/internal/ui"
	"github.com/muurk/modelfinder/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "modelfinder-server",
	Short: "Apple Model Finder Server",
	Long: `A lookup server for Apple serial numbers.

Exposes GET /api/v1/lookup?serial=<serial> returning JSON, and a WebSocket
at /ws where every text message is looked up and answered with the same
JSON document.

For interactive use, see the separate 'modelfinder' utility.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	host        string
	port        int
	endpoint    string
	timeoutSecs int
	advertise   bool
	instance    string
	logLevel    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lookup server",
	Long: `Start the HTTP and WebSocket lookup server.

Defaults for host, port, endpoint, timeout and advertising come from the
modelfinder config file (see 'modelfinder config path'); flags override them.
The server shuts down gracefully on SIGINT or SIGTERM.`,
	Example: `  # Start on the default port
  modelfinder-server serve

  # Listen on localhost only with debug logging
  modelfinder-server serve --host 127.0.0.1 --log-level debug

  # Announce the server on the local network
  modelfinder-server serve --port 9000 --advertise

  # Query it
  curl 'http://localhost:8080/api/v1/lookup?serial=C02ABCDEFGHI'`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&host, "host", "", "Listen host (empty = all interfaces, default from config)")
	serveCmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	serveCmd.Flags().StringVar(&endpoint, "endpoint", "", "Product endpoint URL (default from config)")
	serveCmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "Per-lookup timeout in seconds (default from config)")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Announce the server over mDNS")
	serveCmd.Flags().StringVar(&instance, "instance", "", "mDNS instance name (default: modelfinder-<hostname>)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	settings := reg.Effective()

	cfg := &server.Config{
		Host:      settings.Server.Host,
		Port:      settings.Server.Port,
		Endpoint:  settings.Endpoint,
		Timeout:   settings.Timeout(),
		Advertise: settings.Server.Advertise,
		Instance:  instance,
		LogLevel:  logLevel,
	}

	// Flags override the config file
	if cmd.Flags().Changed("host") {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if timeoutSecs > 0 {
		cfg.Timeout = time.Duration(timeoutSecs) * time.Second
	}
	if cmd.Flags().Changed("advertise") {
		cfg.Advertise = advertise
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ui.NewPrinter(os.Stdout).PrintHeader("Model Finder Server", "modelfinder-server serve",
		ui.Param{Key: "Listen", Value: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))},
		ui.Param{Key: "Endpoint", Value: srv.Endpoint()},
		ui.Param{Key: "Timeout", Value: cfg.Timeout.String()},
		ui.Param{Key: "Advertise", Value: strconv.FormatBool(cfg.Advertise)},
	)

	return srv.Start()
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("modelfinder-server %s (commit: %s)\n", version.Version, version.Commit)
	},
}
