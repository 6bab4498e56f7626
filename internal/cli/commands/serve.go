package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rustlens/rustlens/internal/cli/config"
	"github.com/rustlens/rustlens/internal/debug"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var (
		host      string
		port      int
		delvePath string
		manifest  string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Debug Adapter Protocol (DAP) server",
		Long: `Start the Debug Adapter Protocol (DAP) server for inspecting Rust programs.

The DAP server enables IDE integration with breakpoints, step debugging,
and decoded variable inspection: standard-library containers show their
contents reconstructed from raw debuggee memory.

Examples:
  rustlens serve                          # Start on the configured port
  rustlens serve --port 8080              # Start on a specific port
  rustlens serve --types types.json       # Preload a type manifest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("delve-path") {
				cfg.Delve.Path = delvePath
			}
			if cmd.Flags().Changed("types") {
				cfg.Types.Manifest = manifest
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host to listen on")
	cmd.Flags().IntVar(&port, "port", 4711, "Port to listen on (0 = random)")
	cmd.Flags().StringVar(&delvePath, "delve-path", "dlv", "Path to Delve executable")
	cmd.Flags().StringVar(&manifest, "types", "", "Path to a type manifest to preload")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

// runServe starts the DAP server
func runServe(cfg *config.Config) error {
	titleColor := color.New(color.FgCyan, color.Bold)
	infoColor := color.New(color.FgWhite)
	successColor := color.New(color.FgGreen, color.Bold)
	errorColor := color.New(color.FgRed, color.Bold)

	titleColor.Println("rustlens Debug Adapter Protocol Server")
	fmt.Println()

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	types := debug.NewTypeTable()
	if cfg.Types.Manifest != "" {
		infoColor.Printf("Loading type manifest: %s\n", cfg.Types.Manifest)
		loaded, err := debug.LoadManifest(cfg.Types.Manifest)
		if err != nil {
			errorColor.Printf("Failed to load type manifest: %v\n", err)
			return err
		}
		types.Merge(loaded)
		successColor.Printf("Loaded %d type descriptors\n", types.Len())
		fmt.Println()
	}

	server, err := debug.NewServer(cfg.Addr(), types, cfg.Delve.Path, logger)
	if err != nil {
		errorColor.Printf("Failed to start DAP server: %v\n", err)
		return err
	}

	titleColor.Println("Starting DAP server...")
	infoColor.Printf("Address: %s\n", server.Addr())
	infoColor.Printf("Delve: %s\n", cfg.Delve.Path)
	fmt.Println()
	successColor.Println("Ready to accept debug connections")
	fmt.Println()
	infoColor.Println("Press Ctrl+C to stop the server")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println()
		infoColor.Println("Shutting down...")
		server.Shutdown()
	}()

	if err := server.Serve(); err != nil {
		errorColor.Printf("DAP server error: %v\n", err)
		return err
	}

	return nil
}
