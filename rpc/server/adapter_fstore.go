package server

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/rpc/common"
	"sort"
)

func NewFileStoreServerAdapter() IRPCServerAdapter {
	return &fileStoreServerAdapterImpl{}
}

type fileStoreServerAdapterImpl struct{}

func (adapter *fileStoreServerAdapterImpl) Handle(ctx context.Context, req *common.Message, db store.IFileStore) *common.Message {
	// Check for nil store
	if db == nil {
		return common.NewErrorResponse(req.Op, "handler: store is nil")
	}

	// Handle different operations
	switch req.Op {
	case common.OpGet:
		resp, err := db.Get(ctx, req.Key1, req.Key2)
		if err != nil {
			return common.NewErrorResponse(req.Op, err.Error())
		}
		return common.NewGetResponse(resp.DBVersion, sortedFiles(resp.Data))
	case common.OpGetLast:
		resp, err := db.GetLast(ctx, req.Key1, req.Key2)
		if err != nil {
			return common.NewErrorResponse(req.Op, err.Error())
		}
		return common.NewGetLastResponse(resp.DBVersion, resp.Last)
	case common.OpGetFileVersion:
		resp, err := db.GetFileVersion(ctx, req.Key1)
		if err != nil {
			return common.NewErrorResponse(req.Op, err.Error())
		}
		return common.NewGetFileVersionResponse(resp.DBVersion, resp.FileVersion)
	case common.OpSet:
		if err := db.Set(ctx, req.DBVersion, req.Values); err != nil {
			return common.NewErrorResponse(req.Op, err.Error())
		}
		return common.NewSetResponse()
	default:
		return common.NewErrorResponse(req.Op,
			fmt.Sprintf("RPC FileStoreAdapter - Unsupported operation: %s", req.Op),
		)
	}
}

// sortedFiles returns the files of a get result in ascending key order
func sortedFiles(data map[uint32]common.File) []common.KeyFile {
	files := make([]common.KeyFile, 0, len(data))
	for key, file := range data {
		files = append(files, common.KeyFile{Key: key, File: file})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files
}
