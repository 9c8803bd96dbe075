package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SaveStreamToFile writes r to a temp file next to dst, syncs it and renames
// it over dst. It returns the number of bytes written.
func SaveStreamToFile(dst string, r io.Reader) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create directory failed, dir:%s, err:%w", dir, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(dst)+".*.temp")
	if err != nil {
		return 0, fmt.Errorf("create tmp file failed, err:%w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("copy stream to tmp file failed, err:%w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("sync tmp file failed, err:%w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close tmp file failed, err:%w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return 0, fmt.Errorf("rename tmp file to target failed, err:%w", err)
	}
	return n, nil
}
