package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/tgdav/webdav"
	"go.uber.org/zap"
)

// UploadLimitMiddleware fails PUT requests whose declared length is over
// limit before any body is read. Streams of unknown length pass through and
// are checked by the storage.
func UploadLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.Request.Method != http.MethodPut || c.Request.ContentLength <= limit {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		logutil.GetLogger(ctx).Debug("upload exceed length limit",
			zap.String("path", c.Request.URL.Path), zap.Int64("length", c.Request.ContentLength), zap.Int64("limit", limit))
		c.AbortWithStatus(webdav.StatusInsufficientStorage)
	}
}
