package fstore

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/afero"
	"sort"
)

var Logger = logger.GetLogger("store")

// DefaultHashDivider is the number of consecutive keys stored in the same directory
const DefaultHashDivider = 1000

// Options configures a Store
type Options struct {
	// Fs is the filesystem used for persistence. Defaults to the OS filesystem.
	Fs afero.Fs
	// DataDir is the root of the persisted databases. An empty DataDir disables persistence.
	DataDir string
	// HashDivider groups keys into directories (key / HashDivider)
	HashDivider uint32
}

// Store holds any number of databases addressed by name
type Store struct {
	persist *persistence
	dbs     *xsync.MapOf[string, *database]
}

// NewFileStore creates a new store and loads all databases found in the data directory
func NewFileStore(opts Options) (*Store, error) {
	s := &Store{
		dbs: xsync.NewMapOf[string, *database](),
	}

	if opts.DataDir == "" {
		return s, nil
	}

	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.HashDivider == 0 {
		opts.HashDivider = DefaultHashDivider
	}
	s.persist = &persistence{fs: opts.Fs, root: opts.DataDir, hashDivider: opts.HashDivider}

	if err := s.persist.loadAll(s.dbs); err != nil {
		return nil, fmt.Errorf("failed to load data directory %s: %w", opts.DataDir, err)
	}

	Logger.Infof("Loaded %d databases from %s", s.dbs.Size(), opts.DataDir)
	return s, nil
}

// Database returns the view of the named database.
// A database that does not exist yet reads as empty with version 1 and is created by the first Set.
func (s *Store) Database(name string) store.IFileStore {
	return &databaseView{store: s, name: name}
}

// Databases returns the names of all existing databases in sorted order
func (s *Store) Databases() []string {
	names := make([]string, 0, s.dbs.Size())
	s.dbs.Range(func(name string, _ *database) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// lookup returns the database or nil if it does not exist
func (s *Store) lookup(name string) *database {
	db, _ := s.dbs.Load(name)
	return db
}

// --------------------------------------------------------------------------
// Database View (implements store.IFileStore)
// --------------------------------------------------------------------------

type databaseView struct {
	store *Store
	name  string
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (v *databaseView) Get(ctx context.Context, key1, key2 uint32) (common.GetResponse, error) {
	if err := ctx.Err(); err != nil {
		return common.GetResponse{}, err
	}

	resp := common.GetResponse{DBVersion: 1, Data: make(map[uint32]common.File)}
	db := v.store.lookup(v.name)
	if db == nil {
		return resp, nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	resp.DBVersion = db.version
	db.rangeAsc(key1, key2, func(item *fileItem) {
		resp.Data[item.key] = item.keyFile().File
	})
	return resp, nil
}

func (v *databaseView) GetLast(ctx context.Context, key1, key2 uint32) (common.GetLastResponse, error) {
	if err := ctx.Err(); err != nil {
		return common.GetLastResponse{}, err
	}

	db := v.store.lookup(v.name)
	if db == nil {
		return common.GetLastResponse{DBVersion: 1}, nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	resp := common.GetLastResponse{DBVersion: db.version}
	if item := db.last(key1, key2); item != nil {
		last := item.keyFile()
		resp.Last = &last
	}
	return resp, nil
}

func (v *databaseView) GetFileVersion(ctx context.Context, key uint32) (common.GetFileVersionResponse, error) {
	if err := ctx.Err(); err != nil {
		return common.GetFileVersionResponse{}, err
	}

	db := v.store.lookup(v.name)
	if db == nil {
		return common.GetFileVersionResponse{DBVersion: 1}, nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	resp := common.GetFileVersionResponse{DBVersion: db.version}
	if item := db.get(key); item != nil {
		resp.FileVersion = item.file.Version
		resp.Found = true
	}
	return resp, nil
}

func (v *databaseView) Set(ctx context.Context, dbVersion uint32, values []common.KeyValue) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db, _ := v.store.dbs.LoadOrCompute(v.name, newDatabase)

	db.mu.Lock()
	defer db.mu.Unlock()

	if dbVersion != db.version {
		return store.ErrVersionMismatch
	}

	// Compute the new file versions first so that a failed write leaves the database untouched
	pending := make(map[uint32]uint32, len(values))
	versions := make([]uint32, len(values))
	for i, kv := range values {
		if len(kv.Value) == 0 {
			pending[kv.Key] = 0
			continue
		}
		prev, ok := pending[kv.Key]
		if !ok {
			if item := db.get(kv.Key); item != nil {
				prev = item.file.Version
			}
		}
		versions[i] = prev + 1
		pending[kv.Key] = versions[i]
	}

	if v.store.persist != nil {
		for i, kv := range values {
			var err error
			if len(kv.Value) == 0 {
				err = v.store.persist.remove(v.name, kv.Key)
			} else {
				err = v.store.persist.write(v.name, kv.Key, common.File{Version: versions[i], Data: kv.Value})
			}
			if err != nil {
				Logger.Errorf("Failed to persist key %d of database %s: %v", kv.Key, v.name, err)
				return store.NewError(store.RetCInternalError, fmt.Sprintf("failed to persist key %d", kv.Key))
			}
		}
	}

	for _, kv := range values {
		if len(kv.Value) == 0 {
			db.remove(kv.Key)
		} else {
			db.put(kv.Key, kv.Value)
		}
	}
	db.version++

	Logger.Debugf("Applied %d values to database %s, version is now %d", len(values), v.name, db.version)
	return nil
}
