package backend

import (
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const sniffSize = 3072

// DetectMediaType prefers the declared type, then the file extension and
// finally sniffs the leading bytes of the content.
func DetectMediaType(name string, declared string, head []byte) string {
	if v := strings.TrimSpace(declared); len(v) != 0 {
		return v
	}
	if v := mime.TypeByExtension(strings.ToLower(path.Ext(name))); len(v) != 0 {
		return v
	}
	if len(head) > sniffSize {
		head = head[:sniffSize]
	}
	return mimetype.Detect(head).String()
}
