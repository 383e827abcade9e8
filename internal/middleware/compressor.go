package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/drstein77/furniturepredictor/internal/compress"
	"github.com/drstein77/furniturepredictor/internal/models"
)

const defaultEntryName = "data.csv"

// LimitBody caps request bodies at limit bytes. Reads past the cap fail
// with *http.MaxBytesError. It must run before anything that buffers the
// body, such as ArchiveTypeMiddleware.
func LimitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// ArchiveTypeMiddleware picks the archive format from the archiveType query
// parameter (zip by default) and applies CreateCompressMiddleware with it.
func ArchiveTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		archiveType := r.URL.Query().Get("archiveType")
		if archiveType != "tar" && archiveType != "zip" {
			archiveType = "zip" // Default value
		}

		compressMiddleware := CreateCompressMiddleware(archiveType)
		compressMiddleware(next).ServeHTTP(w, r)
	})
}

// CreateCompressMiddleware unpacks request bodies sent with a matching
// Content-Encoding and packs successful responses when the client accepts
// the archive type.
func CreateCompressMiddleware(compressionType string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if compressionType != "tar" && compressionType != "zip" {
				h.ServeHTTP(w, r)
				return
			}

			// By default set the original http.ResponseWriter
			ow := w

			// Check if the client can accept compressed data
			if accepts(r.Header.Values("Accept-Encoding"), compressionType) {
				aw := &archiveResponseWriter{ResponseWriter: w, archiveType: compressionType}
				ow = aw
				defer aw.Close()
			}

			// Check if the client sent compressed data
			if r.Header.Get("Content-Encoding") == compressionType {
				var cr io.ReadCloser
				var err error
				if compressionType == "tar" {
					cr, err = compress.NewTarReader(r.Body)
				} else {
					cr, err = compress.NewZipReader(r.Body)
				}
				if err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						w.Header().Set("Content-Type", "application/json")
						w.WriteHeader(http.StatusRequestEntityTooLarge)
						_ = json.NewEncoder(w).Encode(models.ErrorResponse{
							Error: fmt.Sprintf("file exceeds the %d byte limit", tooLarge.Limit),
							Code:  models.CodeFileTooLarge,
						})
						return
					}
					http.Error(w, "Failed to unpack request body: "+err.Error(), http.StatusBadRequest)
					return
				}
				r.Body = cr
				r.Header.Del("Content-Encoding")
				defer cr.Close()
			}

			// Transfer control to the handler
			h.ServeHTTP(ow, r)
		})
	}
}

// archiveResponseWriter packs a 200 response body into a single-entry
// archive. Any other status is passed through untouched.
type archiveResponseWriter struct {
	http.ResponseWriter
	archiveType string
	w           io.WriteCloser
	passthrough bool
	wroteHeader bool
}

func (a *archiveResponseWriter) WriteHeader(code int) {
	if a.wroteHeader {
		return
	}
	a.wroteHeader = true

	if code != http.StatusOK {
		a.passthrough = true
	} else {
		a.Header().Set("Content-Encoding", a.archiveType)
		a.Header().Del("Content-Length")
	}
	a.ResponseWriter.WriteHeader(code)
}

func (a *archiveResponseWriter) Write(p []byte) (int, error) {
	if !a.wroteHeader {
		a.WriteHeader(http.StatusOK)
	}
	if a.passthrough {
		return a.ResponseWriter.Write(p)
	}

	if a.w == nil {
		name := entryName(a.Header().Get("Content-Disposition"))
		if a.archiveType == "tar" {
			a.w = compress.NewTarWriter(a.ResponseWriter, name)
		} else {
			zw, err := compress.NewZipWriter(a.ResponseWriter, name)
			if err != nil {
				return 0, err
			}
			a.w = zw
		}
	}
	return a.w.Write(p)
}

// Close finishes the archive, if one was started.
func (a *archiveResponseWriter) Close() error {
	if a.w == nil {
		return nil
	}
	return a.w.Close()
}

// accepts reports whether the Accept-Encoding values list coding. Matching
// is by token, so "gzip" does not accept "zip".
func accepts(values []string, coding string) bool {
	for _, v := range values {
		for _, token := range strings.Split(v, ",") {
			name, params, _ := strings.Cut(strings.TrimSpace(token), ";")
			if !strings.EqualFold(name, coding) {
				continue
			}
			if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
				if weight, err := strconv.ParseFloat(q, 64); err == nil && weight == 0 {
					return false
				}
			}
			return true
		}
	}
	return false
}

func entryName(disposition string) string {
	if disposition == "" {
		return defaultEntryName
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return defaultEntryName
	}
	return params["filename"]
}
