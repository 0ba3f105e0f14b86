package web

import (
	"io/fs"
	"mime"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// ServeEmbeddedStatic writes one embedded asset; unknown names are 404.
func ServeEmbeddedStatic(contextGin *gin.Context, filesystem fs.FS, name string) {
	if !fs.ValidPath(name) {
		contextGin.AbortWithStatus(http.StatusNotFound)
		return
	}
	data, err := fs.ReadFile(filesystem, name)
	if err != nil {
		contextGin.AbortWithStatus(http.StatusNotFound)
		return
	}
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	contextGin.Header("Cache-Control", "public, max-age=86400")
	contextGin.Header("X-Content-Type-Options", "nosniff")
	contextGin.Data(http.StatusOK, contentType, data)
}
