package common

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// UserConfig describes one user that may talk to the server
type UserConfig struct {
	// ID is sent (little endian) as the unencrypted datagram prefix
	ID uint32 `mapstructure:"id"`
	// Name is only used in log and error messages
	Name string `mapstructure:"name"`
	// KeyFile is the path of the 32 byte key file of the user
	KeyFile string `mapstructure:"key_file"`
	// Key can be set instead of KeyFile (mainly for tests)
	Key []byte `mapstructure:"-"`
	// Databases maps a database name to its access mode ("r" or "rw")
	Databases map[string]string `mapstructure:"databases"`
}

// CanRead reports whether the user may read the database
func (u *UserConfig) CanRead(db string) bool {
	_, ok := u.Databases[db]
	return ok
}

// CanWrite reports whether the user may write the database
func (u *UserConfig) CanWrite(db string) bool {
	return u.Databases[db] == "rw"
}

// ServerConfig holds all configuration parameters for the reference server.
type ServerConfig struct {
	// UDP endpoint to listen on (e.g. 0.0.0.0:59999)
	Endpoint string

	// Storage, files are stored as DataDir/<db>/<key / HashDivider>/<key>
	// An empty DataDir keeps everything in memory
	DataDir     string
	HashDivider uint32

	// Maximum number of requests handled concurrently
	Workers int

	// Users allowed to talk to the server
	Users []UserConfig

	// Logging configuration
	LogLevel string

	// Optional HTTP endpoint for the prometheus metrics
	MetricsEndpoint string
}

// Validate checks the configuration for obvious mistakes
func (c *ServerConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("incorrect configuration parameters: no endpoint")
	}
	if len(c.Users) == 0 {
		return fmt.Errorf("incorrect configuration parameters: no users")
	}
	if c.HashDivider == 0 {
		return fmt.Errorf("incorrect configuration parameters: hash divider must be positive")
	}
	seen := make(map[uint32]struct{}, len(c.Users))
	for _, user := range c.Users {
		if user.Name == "" || (user.KeyFile == "" && len(user.Key) == 0) {
			return fmt.Errorf("incorrect users configuration section")
		}
		if _, ok := seen[user.ID]; ok {
			return fmt.Errorf("duplicate user with id %d", user.ID)
		}
		seen[user.ID] = struct{}{}
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Workers", strconv.Itoa(c.Workers))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Storage
	addSection("Storage")
	if c.DataDir == "" {
		addField("Data Directory", "(in memory)")
	} else {
		addField("Data Directory", c.DataDir)
	}
	addField("Hash Divider", strconv.FormatUint(uint64(c.HashDivider), 10))

	// Users, sorted by id for consistent output
	addSection("Users")
	users := make([]UserConfig, len(c.Users))
	copy(users, c.Users)
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	for _, user := range users {
		dbs := make([]string, 0, len(user.Databases))
		for db, mode := range user.Databases {
			dbs = append(dbs, db+"="+mode)
		}
		sort.Strings(dbs)
		addField(strconv.FormatUint(uint64(user.ID), 10), fmt.Sprintf("%s [%s]", user.Name, strings.Join(dbs, ", ")))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	// Endpoint of the server (host:port)
	Endpoint string
	// UserID is sent as the unencrypted 4 byte prefix of every datagram
	UserID uint32
	// Key is the 32 byte pre-shared key of the user
	Key []byte
	// DBName is the database all requests of the client address
	DBName string
	// TimeoutMillisecond is the receive timeout of a single round trip
	TimeoutMillisecond int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("User ID", strconv.FormatUint(uint64(c.UserID), 10))
	addField("Database", c.DBName)
	addField("Timeout", fmt.Sprintf("%d ms", c.TimeoutMillisecond))
	addField("Key", fmt.Sprintf("%d bytes", len(c.Key)))

	return sb.String()
}
