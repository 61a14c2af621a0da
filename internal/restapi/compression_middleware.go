package restapi

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

const (
	// Plans for a handful of travelers are often smaller than this and are
	// sent as is.
	compressionMinSize = 1024
	compressionLevel   = 6
)

// NewCompressionMiddleware gzips responses of at least minSize bytes for
// clients that accept it.
func NewCompressionMiddleware(minSize, level int) (func(http.Handler) http.Handler, error) {
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(minSize),
		gzhttp.CompressionLevel(level),
		gzhttp.ContentTypes([]string{"application/json"}),
	)
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler { return wrapper(next) }, nil
}

// CompressionMiddleware applies gzip compression with the default settings.
func CompressionMiddleware(next http.Handler) http.Handler {
	wrapper, err := NewCompressionMiddleware(compressionMinSize, compressionLevel)
	if err != nil {
		return gzhttp.GzipHandler(next)
	}
	return wrapper(next)
}
