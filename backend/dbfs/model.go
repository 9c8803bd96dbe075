package dbfs

import "time"

const (
	fileKindDir  = 1
	fileKindFile = 2
)

const (
	defaultDirMode  = 0755
	defaultFileMode = 0644
)

type entryTab struct {
	Id            uint64 `json:"id"`
	EntryId       uint64 `json:"entry_id"`
	ParentEntryId uint64 `json:"parent_entry_id"`
	RefData       string `json:"ref_data"`
	FileKind      int32  `json:"file_kind"`
	Ctime         int64  `json:"ctime"`
	Mtime         int64  `json:"mtime"`
	FileSize      int64  `json:"file_size"`
	FileMode      uint32 `json:"file_mode"`
	MediaType     string `json:"media_type"`
	FileName      string `json:"file_name"`
}

func (e *entryTab) isDir() bool {
	return e.FileKind == fileKindDir
}

func (e *entryTab) ctime() time.Time {
	return time.UnixMilli(e.Ctime)
}

func (e *entryTab) mtime() time.Time {
	return time.UnixMilli(e.Mtime)
}
