package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/modelfinder/internal/config"
	"github.com/muurk/modelfinder/internal/discovery"
	"github.com/muurk/modelfinder/internal/logging"
	"github.com/muurk/modelfinder/internal/lookup"
	"github.com/muurk/modelfinder/internal/server"
	"github.com/muurk/modelfinder/internal/tui"
	"github.com/muurk/modelfinder/internal/ui"
)

// Lookup flags
var (
	endpoint     string
	timeoutSecs  int
	viaURL       string
	discover     bool
	outputFormat string
	noHistory    bool
	scanTimeout  int
	clearHistory bool
)

func init() {
	// Lookup source flags (persistent on root so the TUI honours them too)
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Product endpoint URL (default from config)")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 0, "Lookup timeout in seconds (default from config)")
	rootCmd.PersistentFlags().StringVar(&viaURL, "via", "", "Resolve through a modelfinder-server at this URL")
	rootCmd.PersistentFlags().BoolVar(&discover, "discover", false, "Resolve through the first modelfinder-server found over mDNS")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record successful lookups")

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serversCmd)
	rootCmd.AddCommand(configCmd)
}

// tuiCmd launches the interactive lookup screen
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive lookup screen",
	Long: `Launch a full-screen form for looking up serial numbers one at a time.

Type a serial and press Enter. Characters are upper-cased as you type unless
uppercase_input is disabled in the config file. Errors are shown in a banner
that hides itself after a few seconds.`,
	Example: `  # Launch the lookup screen
  modelfinder tui
  # Or simply (tui is default):
  modelfinder

  # Resolve through a server on the local network
  modelfinder --discover`,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	settings := reg.Effective()
	fn, source, err := resolveLookup(cmd.Context(), settings)
	if err != nil {
		return err
	}

	recent := make([]lookup.Result, 0, len(reg.History))
	for _, e := range reg.RecentModels(5) {
		recent = append(recent, lookup.ModelResult(e.Serial, e.Key, e.Model))
	}

	opts := tui.Options{
		Lookup:              fn,
		Source:              source,
		Uppercase:           settings.UppercaseInput,
		ErrorBannerDuration: settings.ErrorBannerDuration(),
		Recent:              recent,
	}
	if !noHistory {
		opts.OnSuccess = func(r lookup.Result) {
			recordHistory(reg, []lookup.Result{r})
		}
	}

	if err := tui.Run(opts); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// lookupCmd resolves serial numbers from the command line
var lookupCmd = &cobra.Command{
	Use:   "lookup <serial>...",
	Short: "Look up one or more serial numbers",
	Long: `Resolve serial numbers to model names and print the results.

Each argument is a full 11- or 12-character serial number or a bare 3- or
4-character model key. Input is used exactly as given: it is not trimmed or
upper-cased. Lookups run concurrently; results are printed in argument order.

The command exits non-zero if any lookup fails.`,
	Example: `  # Look up a serial number
  modelfinder lookup C02ABCDEFGHI

  # Several at once, one line each
  modelfinder lookup C02ABCDEFGHI W8823ABCDEF --format compact

  # JSON output for scripting
  modelfinder lookup C02ABCDEFGHI --format json

  # Through a modelfinder-server
  modelfinder lookup C02ABCDEFGHI --via http://192.168.1.20:8080`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
}

func runLookup(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case "detailed", "compact", "json":
	default:
		return fmt.Errorf("unknown format %q (use detailed, compact or json)", outputFormat)
	}

	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fn, source, err := resolveLookup(ctx, reg.Effective())
	if err != nil {
		return err
	}

	var results []lookup.Result
	switch outputFormat {
	case "compact":
		results = lookupAll(ctx, fn, args)
		for _, r := range results {
			fmt.Println(ui.CompactLine(r))
		}
	case "json":
		results = lookupAll(ctx, fn, args)
		replies := make([]server.LookupResponse, len(results))
		for i, r := range results {
			replies[i] = server.NewLookupResponse(uuid.NewString(), r)
		}
		data, err := json.MarshalIndent(replies, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	default:
		runner := ui.NewRunner(ui.RunnerConfig{
			Title:   "Model Lookup",
			Command: "modelfinder lookup",
			Params: []ui.Param{
				{Key: "Source", Value: source},
				{Key: "Serials", Value: fmt.Sprintf("%d", len(args))},
			},
			Serials: args,
		})
		results = runner.Run(ctx, fn)
	}

	if !noHistory {
		recordHistory(reg, results)
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(results))
	}
	return nil
}

// keyCmd prints the derived lookup key without touching the network
var keyCmd = &cobra.Command{
	Use:   "key <serial>",
	Short: "Print the model key derived from a serial number",
	Long: `Validate a serial number and print the 3- or 4-character key that would
be sent to the product endpoint. No network request is made.`,
	Example: `  modelfinder key C02ABCDEFGHI   # FGHI
  modelfinder key W8823ABCDEF    # DEF`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := lookup.DeriveLookupKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}

// historyCmd shows recent successful lookups
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent successful lookups",
	Long: `List successful lookups recorded in the config file, newest first.

History is only ever displayed; every lookup still queries the endpoint.`,
	Example: `  # Show history
  modelfinder history

  # Forget everything
  modelfinder history --clear`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&clearHistory, "clear", false, "Remove all history entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if clearHistory {
		reg.ClearHistory()
		if err := config.SaveGlobal(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("History cleared")
		return nil
	}

	if len(reg.History) == 0 {
		fmt.Println("No lookups recorded yet.")
		return nil
	}

	for i, e := range reg.History {
		model := e.Model
		if model == "" {
			model = "(no name returned)"
		}
		fmt.Printf("%2d. %-12s %-4s  %s\n", i+1, e.Serial, e.Key, model)
		fmt.Printf("    %s\n", e.LookedUpAt.Local().Format(time.DateTime))
	}
	return nil
}

// serversCmd discovers lookup servers on the network
var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Scan for modelfinder servers on the network",
	Long: `Scan for modelfinder-server instances using mDNS/DNS-SD discovery.

Servers started with --advertise announce themselves as _modelfinder._tcp.
Use the printed URL with 'modelfinder lookup --via'.`,
	Example: `  # Scan for 3 seconds (default)
  modelfinder servers

  # Longer scan for slow networks
  modelfinder servers --timeout 10`,
	RunE: runServers,
}

func init() {
	serversCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
}

func runServers(cmd *cobra.Command, args []string) error {
	ui.NewPrinter(os.Stdout).PrintHeader("Server Discovery", "modelfinder servers",
		ui.Param{Key: "Service", Value: discovery.ServiceType},
		ui.Param{Key: "Timeout", Value: fmt.Sprintf("%ds", scanTimeout)},
	)

	servers, err := discovery.Scan(cmd.Context(), time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(servers) == 0 {
		ui.NewPrinter(os.Stdout).PrintFailure("No servers found", nil, []string{
			"Start the server with 'modelfinder-server serve --advertise'",
			"Check that both machines are on the same network",
			"Try increasing --timeout for slower networks",
		})
		return nil
	}

	fmt.Printf("Found %d server(s):\n\n", len(servers))
	for i, s := range servers {
		fmt.Printf("%d. %s\n", i+1, s.Instance)
		fmt.Printf("   Host:    %s\n", s.Hostname)
		fmt.Printf("   URL:     %s\n", s.LookupURL())
		fmt.Printf("   Version: %s\n", s.Version())
		fmt.Println()
	}

	fmt.Println("Use 'modelfinder lookup <serial> --via <url>' to resolve through a server")
	return nil
}

// configCmd manages the config file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.CreateDefaultConfig()
		if err != nil {
			return err
		}
		ui.NewPrinter(os.Stdout).PrintSuccess("Configuration written", ui.Param{Key: "Path", Value: path})
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Long: `Print the settings in effect: the config file with MODELFINDER_ENDPOINT,
MODELFINDER_TIMEOUT and MODELFINDER_CONFIG_DIR applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		data, err := yaml.Marshal(reg.Effective())
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}
		ui.NewPrinter(os.Stdout).Print(string(data))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

// resolveLookup picks the lookup source: --via, then --discover, then the
// product endpoint from flags or settings. The returned string describes
// the source for display.
func resolveLookup(ctx context.Context, settings *config.Settings) (ui.LookupFunc, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	timeout := settings.Timeout()
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
	}

	remoteURL := viaURL
	if remoteURL == "" && discover {
		fmt.Fprintln(os.Stderr, "Looking for a modelfinder server...")
		srv, err := discovery.FindServer(ctx, discovery.DefaultScanTimeout)
		if err != nil {
			return nil, "", fmt.Errorf("discovery failed: %w", err)
		}
		remoteURL = srv.LookupURL()
		fmt.Fprintf(os.Stderr, "Using %s\n", srv)
	}

	if remoteURL != "" {
		client := server.NewRemoteClient(remoteURL)
		client.SetTimeout(timeout)
		logging.Debug("Using remote lookup server", zap.String("url", client.LookupURL))
		return client.Lookup, client.LookupURL, nil
	}

	url := settings.Endpoint
	if endpoint != "" {
		url = endpoint
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, "", fmt.Errorf("invalid endpoint %q: must be an http or https URL", url)
	}

	client := lookup.NewClientWithURL(url)
	client.SetTimeout(timeout)
	return client.Lookup, url, nil
}

// lookupAll runs fn for every serial concurrently, keeping input order
func lookupAll(ctx context.Context, fn ui.LookupFunc, serials []string) []lookup.Result {
	results := make([]lookup.Result, len(serials))
	done := make(chan struct{}, len(serials))
	for i, serial := range serials {
		go func(i int, serial string) {
			results[i] = fn(ctx, serial)
			done <- struct{}{}
		}(i, serial)
	}
	for range serials {
		<-done
	}
	return results
}

// historyMu serializes history updates from concurrent TUI commands
var historyMu sync.Mutex

// recordHistory saves successful results. Failures to save are logged, not
// returned: history is a convenience.
func recordHistory(reg *config.Registry, results []lookup.Result) {
	historyMu.Lock()
	defer historyMu.Unlock()

	added := false
	for _, r := range results {
		if r.OK() {
			reg.AddHistory(r.Serial, r.Key, r.Model)
			added = true
		}
	}
	if !added {
		return
	}
	if err := reg.Save(); err != nil {
		logging.Warn("Failed to save lookup history", zap.Error(err))
	}
}
