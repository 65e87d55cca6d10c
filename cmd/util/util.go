package util

import (
	"fmt"
	"github.com/ValentinKolb/dFS/rpc/cipher"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// Fs is the filesystem used by all commands (key files, output directory)
var Fs = afero.NewOsFs()

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "localhost:59999", WrapString("The UDP address of the dFS server (host:port)"))

	key = "user-id"
	cmd.PersistentFlags().Uint32(key, 0, WrapString("The user id that is sent as the unencrypted prefix of every request"))

	key = "key-file"
	cmd.PersistentFlags().String(key, "user.key", WrapString("Path of the file holding the raw 32 byte key of the user"))

	key = "db"
	cmd.PersistentFlags().String(key, "", WrapString("Name of the database to operate on (max 255 bytes)"))

	key = "timeout-ms"
	cmd.PersistentFlags().Int(key, 1000, WrapString("How long to wait for a response (in milliseconds). Requests are never retried"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dfs")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper and loads the key file
func GetClientConfig() (*common.ClientConfig, error) {
	key, err := ReadKeyFile(viper.GetString("key-file"))
	if err != nil {
		return nil, err
	}

	conf := &common.ClientConfig{
		Endpoint:           viper.GetString("endpoint"),
		UserID:             viper.GetUint32("user-id"),
		Key:                key,
		DBName:             viper.GetString("db"),
		TimeoutMillisecond: viper.GetInt("timeout-ms"),
	}

	if len(conf.DBName) > 255 {
		return nil, fmt.Errorf("database name too long (%d bytes, max 255)", len(conf.DBName))
	}

	return conf, nil
}

// ReadKeyFile reads the 32 byte key of a user
func ReadKeyFile(path string) ([]byte, error) {
	return cipher.LoadKey(Fs, path)
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
