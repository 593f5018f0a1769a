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
		Use:   "tsyne-bridge",
		Short: "The native render-plane bridge for Tsyne",
		Long: `tsyne-bridge hosts the native side of a Tsyne application.

It listens on a local unix domain socket for framed MessagePack requests
from the scripting control plane, dispatches them to widget handlers, and
pushes UI events back to every connected client, immediately or batched.`,
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
