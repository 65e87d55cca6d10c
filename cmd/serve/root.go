package serve

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/dFS/cmd/util"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/server"
	"github.com/ValentinKolb/dFS/rpc/transport/udp"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the dFS reference server",
		Long: `Start the dFS reference server with the specified configuration. The users are read from the
JSON config file, all other settings can also be set via command line flags or environment variables.
The format of the environment variables is DFS_<flag> (e.g. DFS_HASH_DIVIDER=1000)

Example config file:

  {
    "endpoint": "0.0.0.0:59999",
    "data-dir": "data",
    "hash-divider": 1000,
    "users": [
      {"id": 1, "name": "alice", "key_file": "alice.key", "databases": {"images": "rw", "logs": "r"}}
    ]
  }

Relative key file paths are resolved against the directory of the config file.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "config"
	ServeCmd.PersistentFlags().String(key, "config.json", cmdUtil.WrapString("Path of the JSON config file holding the users"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:59999", cmdUtil.WrapString("The UDP address on which the server will listen"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("DataDir is the directory the databases are persisted in. Set to an empty string to keep everything in memory"))

	key = "hash-divider"
	ServeCmd.PersistentFlags().Uint32(key, 1000, cmdUtil.WrapString("Files are stored as <data-dir>/<db>/<key / hash-divider>/<key>"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, runtime.NumCPU(), cmdUtil.WrapString("Maximum number of requests handled concurrently"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional HTTP address to expose the Prometheus metrics on (e.g. localhost:9100)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the config file, the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// read the config file
	configPath := viper.GetString("config")
	viper.SetConfigFile(configPath)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// parse users
	serveCmdConfig.Users = []common.UserConfig{}
	if err := viper.UnmarshalKey("users", &serveCmdConfig.Users); err != nil {
		return fmt.Errorf("incorrect users configuration section: %w", err)
	}
	for i, user := range serveCmdConfig.Users {
		if user.KeyFile != "" && !filepath.IsAbs(user.KeyFile) {
			serveCmdConfig.Users[i].KeyFile = filepath.Join(filepath.Dir(configPath), user.KeyFile)
		}
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.HashDivider = viper.GetUint32("hash-divider")
	serveCmdConfig.Workers = viper.GetInt("workers")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// Init logger
	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	return serveCmdConfig.Validate()
}

// run starts the dFS server
func run(_ *cobra.Command, _ []string) error {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		udp.NewUDPServerTransport(serveCmdConfig.Workers),
		serializer.NewBinarySerializer(),
		server.WithFs(cmdUtil.Fs),
	)

	// stop on ctrl+c
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		server.Logger.Infof("Shutting down")
		_ = serv.Close()
	}()

	return serv.Serve()
}

// initConfig reads in ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dfs")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
