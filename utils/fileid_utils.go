package utils

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

func EncodeFileId(fileid uint64) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, fileid)
	return hex.EncodeToString(buf)
}

// HashKey spreads keys over buckets, the result is a hex string.
func HashKey(key string) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, xxhash.Sum64String(key))
	return hex.EncodeToString(buf)
}

// BuildETag returns a strong entity tag derived from the given parts.
func BuildETag(parts ...string) string {
	d := xxhash.New()
	_, _ = d.WriteString(strings.Join(parts, "|"))
	return `"` + strconv.FormatUint(d.Sum64(), 16) + `"`
}

// ContentETag is BuildETag over the raw content and its modification time.
func ContentETag(data []byte, mtime int64) string {
	return BuildETag(strconv.FormatUint(xxhash.Sum64(data), 16), strconv.FormatInt(mtime, 10))
}
