package fs

import (
	"github.com/ValentinKolb/dFS/cmd/util"
	"github.com/ValentinKolb/dFS/rpc/client"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/transport/udp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
)

var (
	rpcStore *client.RPCFileStore

	// FileStoreCommands represents the fs command group
	FileStoreCommands = &cobra.Command{
		Use:                "fs",
		Short:              "Perform file store operations",
		PersistentPreRunE:  setupFSClient,
		PersistentPostRunE: teardownFSClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the fs command
	util.SetupRPCClientFlags(FileStoreCommands)

	key := "output-dir"
	FileStoreCommands.PersistentFlags().String(key, "", util.WrapString("Directory to write retrieved files to (named by their key). Nothing is written if empty"))

	key = "print-metrics"
	FileStoreCommands.PersistentFlags().Bool(key, false, util.WrapString("Print the client metrics in the Prometheus format after the command"))

	// Add subcommands
	FileStoreCommands.AddCommand(getCmd)
	FileStoreCommands.AddCommand(getLastCmd)
	FileStoreCommands.AddCommand(getVersionCmd)
	FileStoreCommands.AddCommand(setCmd)
	FileStoreCommands.AddCommand(perfTestCmd)
}

// setupFSClient initializes the RPC file store client
func setupFSClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Init logger
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	// Get client configuration
	config, err := util.GetClientConfig()
	if err != nil {
		return err
	}

	// Create the file store client
	rpcStore, err = client.NewRPCFileStore(
		*config,
		udp.NewUDPClientTransport(),
		serializer.NewBinarySerializer(),
	)

	return err
}

// teardownFSClient prints the metrics if requested and closes the client
func teardownFSClient(_ *cobra.Command, _ []string) error {
	if rpcStore == nil {
		return nil
	}
	if viper.GetBool("print-metrics") {
		rpcStore.Metrics().WritePrometheus(os.Stdout)
	}
	return rpcStore.Close()
}
