package fstore

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/afero"
	"os"
	"path/filepath"
	"strconv"
)

// fileHeaderSize is the size of the version stored in front of the file data
const fileHeaderSize = 4

// persistence stores every file as root/<db>/<key / hashDivider>/<key>
// with the content version (uint32 little endian) || data
type persistence struct {
	fs          afero.Fs
	root        string
	hashDivider uint32
}

// path returns the file path for key in db
func (p *persistence) path(db string, key uint32) string {
	bucket := strconv.FormatUint(uint64(key/p.hashDivider), 10)
	return filepath.Join(p.root, db, bucket, strconv.FormatUint(uint64(key), 10))
}

// write stores one file
func (p *persistence) write(db string, key uint32, file common.File) error {
	path := p.path(db, key)
	if err := p.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	content := make([]byte, fileHeaderSize, fileHeaderSize+len(file.Data))
	binary.LittleEndian.PutUint32(content, file.Version)
	content = append(content, file.Data...)

	return afero.WriteFile(p.fs, path, content, 0o644)
}

// remove deletes one file, a missing file is not an error
func (p *persistence) remove(db string, key uint32) error {
	err := p.fs.Remove(p.path(db, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// loadAll reads every database below the root directory into dbs.
// A missing root directory is created.
func (p *persistence) loadAll(dbs *xsync.MapOf[string, *database]) error {
	if err := p.fs.MkdirAll(p.root, 0o755); err != nil {
		return err
	}

	entries, err := afero.ReadDir(p.fs, p.root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		db, err := p.loadDatabase(entry.Name())
		if err != nil {
			return fmt.Errorf("database %s: %w", entry.Name(), err)
		}
		dbs.Store(entry.Name(), db)
	}
	return nil
}

// loadDatabase reads all files of one database
func (p *persistence) loadDatabase(name string) (*database, error) {
	db := newDatabase()
	dir := filepath.Join(p.root, name)

	buckets, err := afero.ReadDir(p.fs, dir)
	if err != nil {
		return nil, err
	}

	for _, bucket := range buckets {
		if !bucket.IsDir() {
			continue
		}
		files, err := afero.ReadDir(p.fs, filepath.Join(dir, bucket.Name()))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			key, err := strconv.ParseUint(f.Name(), 10, 32)
			if f.IsDir() || err != nil {
				Logger.Warningf("Ignoring %s in database %s", filepath.Join(bucket.Name(), f.Name()), name)
				continue
			}

			content, err := afero.ReadFile(p.fs, filepath.Join(dir, bucket.Name(), f.Name()))
			if err != nil {
				return nil, err
			}
			if len(content) < fileHeaderSize {
				return nil, fmt.Errorf("file %d is truncated", key)
			}

			db.load(uint32(key), common.File{
				Version: binary.LittleEndian.Uint32(content),
				Data:    content[fileHeaderSize:],
			})
		}
	}

	Logger.Debugf("Loaded database %s with %d files", name, db.index.Len())
	return db, nil
}
