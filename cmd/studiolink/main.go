package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "studiolink",
		Short: "Remote-control server for studio hosts",
		Long: `studiolink exposes a studio host over a WebSocket control protocol.

Clients connect, identify, and then drive the host through typed
requests and receive host events filtered by subscription. Two wire
encodings are supported: JSON and a compact binary form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
