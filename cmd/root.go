package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dFS/cmd/fs"
	"github.com/ValentinKolb/dFS/cmd/serve"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dfs",
		Short: "encrypted UDP file store",
		Long: fmt.Sprintf(`dFS (v%s)

A versioned file store reached over UDP, every datagram encrypted with
ChaCha20 under a pre-shared user key. Contains the client and a
reference server.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dFS",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dFS v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(fs.FileStoreCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
