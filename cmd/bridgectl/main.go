package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/CZERTAINLY/Bridge/internal/bridge"
	"github.com/CZERTAINLY/Bridge/internal/log"
	"github.com/CZERTAINLY/Bridge/internal/model"
	"github.com/CZERTAINLY/Bridge/internal/shell"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var (
	configPath string // actual config file used (if loaded)
	config     model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
	flagDir            string // value of quote --dir flag
)

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is $"+bridge.ConfigEnv+" or built-in defaults")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	quoteCmd.Flags().StringVar(&flagDir, "dir", "/tmp", "working directory of the command")

	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initBridge

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("bridgectl failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "bridgectl",
	Short:        "Run and inspect the embedded service bridge outside of a host app",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the bridge in this process and wait for a signal",
	RunE:  doServe,
}

var quoteCmd = &cobra.Command{
	Use:   "quote -- ARGV...",
	Short: "print the command line the platform shim would run",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(shell.CommandLine(args, flagDir))
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer func() {
			_ = enc.Close()
		}()
		return enc.Encode(config)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version of the bridge",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("bridge: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config: %s\n", configPath)
		}
		fmt.Printf("bridge: %s\n", info.Main.Version)
		fmt.Printf("go:     %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit: %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:  %s\n", s.Value)
			}
		}
	},
}

func doServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = log.ContextAttrs(ctx, slog.Group("bridge",
		slog.String("cmd", "serve"),
		slog.Int("pid", os.Getpid()),
	))

	b, err := bridge.New(config)
	if err != nil {
		return err
	}
	var port uint16
	status := b.Start(ctx, func(p uint16) { port = p })
	if status != 0 {
		return fmt.Errorf("bridge did not start: status %d", status)
	}
	fmt.Printf("listening on %s:%d\n", config.Server.Host, port)

	<-ctx.Done()
	b.Stop()
	return nil
}

func initBridge(cmd *cobra.Command, _ []string) error {
	var err error
	switch {
	case flagConfigFilePath != "":
		configPath = flagConfigFilePath
		config, err = bridge.LoadFile(configPath)
	default:
		configPath = os.Getenv(bridge.ConfigEnv)
		config, err = bridge.ConfigFromEnv()
	}
	if err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		config.Log.Level = "debug"
	}
	slog.SetDefault(log.New(config.Log))
	return nil
}
