package fs

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dFS/cmd/util"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [key1] [key2]",
		Short: "Reads all files with a key in [key1, key2]",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key1, key2, err := parseRange(args)
			if err != nil {
				return err
			}

			start := time.Now()
			resp, err := rpcStore.Get(background(cmd), key1, key2)
			if err != nil {
				return err
			}
			printResponseTime(start)

			fmt.Printf("Database version: %d\n", resp.DBVersion)
			fmt.Printf("Files: %d\n", len(resp.Data))
			for _, key := range sortedKeys(resp.Data) {
				printFile(key, resp.Data[key])
			}
			return writeFiles(viper.GetString("output-dir"), resp.Data)
		},
	}
	getLastCmd = &cobra.Command{
		Use:   "get-last [key1] [key2]",
		Short: "Reads the file with the greatest key in [key1, key2]",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key1, key2, err := parseRange(args)
			if err != nil {
				return err
			}

			start := time.Now()
			resp, err := rpcStore.GetLast(background(cmd), key1, key2)
			if err != nil {
				return err
			}
			printResponseTime(start)

			fmt.Printf("Database version: %d\n", resp.DBVersion)
			if resp.Last == nil {
				fmt.Println("No file in range")
				return nil
			}
			printFile(resp.Last.Key, resp.Last.File)
			return writeFiles(viper.GetString("output-dir"), map[uint32]common.File{resp.Last.Key: resp.Last.File})
		},
	}
	getVersionCmd = &cobra.Command{
		Use:   "get-version [key]",
		Short: "Reads the version of a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}

			start := time.Now()
			resp, err := rpcStore.GetFileVersion(background(cmd), key)
			if err != nil {
				return err
			}
			printResponseTime(start)

			fmt.Printf("Database version: %d\n", resp.DBVersion)
			if !resp.Found {
				fmt.Printf("key=%d, found=false\n", key)
				return nil
			}
			fmt.Printf("key=%d, found=true, version=%d\n", key, resp.FileVersion)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [dbVersion] [files...]",
		Short: "Writes files (named by their integer key) if the database is at dbVersion",
		Long: `Writes files if the database is at dbVersion. The base name of every file must be
its integer key (e.g. ./out/42). An empty file deletes the key. At least one file is required.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbVersion, err := parseKey(args[0])
			if err != nil {
				return fmt.Errorf("dbVersion must be a number: %w", err)
			}

			values, err := readValues(args[1:])
			if err != nil {
				return err
			}

			start := time.Now()
			if err := rpcStore.Set(background(cmd), dbVersion, values); err != nil {
				return err
			}
			printResponseTime(start)

			fmt.Printf("set %d files successfully\n", len(values))
			return nil
		},
	}
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseKey parses a uint32 key or version
func parseKey(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: %w", s, err)
	}
	return uint32(v), nil
}

// parseRange parses the key1 and key2 arguments
func parseRange(args []string) (uint32, uint32, error) {
	key1, err := parseKey(args[0])
	if err != nil {
		return 0, 0, err
	}
	key2, err := parseKey(args[1])
	if err != nil {
		return 0, 0, err
	}
	return key1, key2, nil
}

// readValues reads the files to write, the base name of every path is its key
func readValues(paths []string) ([]common.KeyValue, error) {
	values := make([]common.KeyValue, 0, len(paths))
	for _, path := range paths {
		key, err := parseKey(filepath.Base(path))
		if err != nil {
			return nil, fmt.Errorf("file name must be the key: %w", err)
		}
		data, err := afero.ReadFile(util.Fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		values = append(values, common.KeyValue{Key: key, Value: data})
	}
	return values, nil
}

// writeFiles writes every file to dir/<key>. Nothing is written if dir is empty.
func writeFiles(dir string, files map[uint32]common.File) error {
	if dir == "" || len(files) == 0 {
		return nil
	}
	if err := util.Fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for key, file := range files {
		path := filepath.Join(dir, strconv.FormatUint(uint64(key), 10))
		if err := afero.WriteFile(util.Fs, path, file.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	fmt.Printf("Wrote %d files to %s\n", len(files), dir)
	return nil
}

// sortedKeys returns the keys of files in ascending order
func sortedKeys(files map[uint32]common.File) []uint32 {
	keys := make([]uint32, 0, len(files))
	for key := range files {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func printFile(key uint32, file common.File) {
	fmt.Printf("key=%d, version=%d, size=%d\n", key, file.Version, len(file.Data))
}

func printResponseTime(start time.Time) {
	fmt.Printf("Response time: %s\n", time.Since(start))
}

// background is used by commands that run without a cobra context
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
