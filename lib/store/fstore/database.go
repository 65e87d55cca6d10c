package fstore

import (
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/google/btree"
	"sync"
)

// btreeDegree is the degree of the per database index
const btreeDegree = 32

// --------------------------------------------------------------------------
// Index Item
// --------------------------------------------------------------------------

// fileItem is a file stored in the index, ordered by key
type fileItem struct {
	key  uint32
	file common.File
}

// Less implements btree.Item
func (i *fileItem) Less(than btree.Item) bool {
	return i.key < than.(*fileItem).key
}

// pivot returns an item that only carries a key (for lookups)
func pivot(key uint32) *fileItem {
	return &fileItem{key: key}
}

// keyFile copies the item into a common.KeyFile
func (i *fileItem) keyFile() common.KeyFile {
	data := make([]byte, len(i.file.Data))
	copy(data, i.file.Data)
	return common.KeyFile{Key: i.key, File: common.File{Version: i.file.Version, Data: data}}
}

// --------------------------------------------------------------------------
// Database
// --------------------------------------------------------------------------

// database holds the files and the version of one database.
// Readers take the read lock, Set takes the write lock for the whole write set.
type database struct {
	mu      sync.RWMutex
	version uint32
	index   *btree.BTree
}

// newDatabase creates an empty database. Versions start at 1.
func newDatabase() *database {
	return &database{
		version: 1,
		index:   btree.New(btreeDegree),
	}
}

// rangeAsc calls fn for every item with a key in [key1, key2] in ascending order
func (d *database) rangeAsc(key1, key2 uint32, fn func(item *fileItem)) {
	if key1 > key2 {
		return
	}
	d.index.AscendGreaterOrEqual(pivot(key1), func(i btree.Item) bool {
		item := i.(*fileItem)
		if item.key > key2 {
			return false
		}
		fn(item)
		return true
	})
}

// last returns the item with the greatest key in [key1, key2] or nil
func (d *database) last(key1, key2 uint32) *fileItem {
	if key1 > key2 {
		return nil
	}
	var found *fileItem
	d.index.DescendLessOrEqual(pivot(key2), func(i btree.Item) bool {
		item := i.(*fileItem)
		if item.key >= key1 {
			found = item
		}
		return false
	})
	return found
}

// get returns the item for key or nil
func (d *database) get(key uint32) *fileItem {
	if i := d.index.Get(pivot(key)); i != nil {
		return i.(*fileItem)
	}
	return nil
}

// put stores data under key and returns the new file version
func (d *database) put(key uint32, data []byte) uint32 {
	version := uint32(1)
	if old := d.get(key); old != nil {
		version = old.file.Version + 1
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	d.index.ReplaceOrInsert(&fileItem{key: key, file: common.File{Version: version, Data: stored}})
	return version
}

// remove deletes key from the index
func (d *database) remove(key uint32) {
	d.index.Delete(pivot(key))
}

// load inserts a file with a known version (used when reading the data directory)
func (d *database) load(key uint32, file common.File) {
	d.index.ReplaceOrInsert(&fileItem{key: key, file: file})
}
