package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dIPC/cmd/ping"
	"github.com/ValentinKolb/dIPC/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dipc",
		Short: "node-local inter-process message layer",
		Long: fmt.Sprintf(`dIPC (v%s)

A node-local inter-process connection layer exchanging length-prefixed,
typed binary messages over unix domain sockets, with synchronous and
asynchronous write paths, protocol-integrity cookies and liveness probing.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dIPC",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dIPC v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(ping.PingCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
