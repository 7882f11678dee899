package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/service"
	apperrors "github.com/nahankar/shatika/pkg/errors"
	"github.com/nahankar/shatika/pkg/httputil"
	"github.com/nahankar/shatika/pkg/middleware"
)

// maxJSONBody limits JSON request bodies.
const maxJSONBody = 1 << 20

// multipartOverhead is allowed on top of the file size for form fields
// and part headers.
const multipartOverhead = 64 << 10

// multipartMemory is how much of a multipart form is buffered in memory
// before spilling to temporary files.
const multipartMemory = 1 << 20

// ContentTypeJSON rejects request bodies declared as anything other than
// application/json. A body without a Content-Type is accepted.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Message: "Content-Type must be application/json",
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody caps JSON request bodies.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		}
		next.ServeHTTP(w, r)
	})
}

// isAdmin reports whether the caller is an authenticated admin.
func isAdmin(r *http.Request) bool {
	return middleware.RoleFromContext(r.Context()) == domain.RoleAdmin
}

// pathUUID reads a UUID path value. On failure it has already written a
// 400 and returns false.
func pathUUID(w http.ResponseWriter, value string) (string, bool) {
	id, ok := httputil.ParseUUID(w, value)
	if !ok {
		return "", false
	}
	return id.String(), true
}

// queryString returns a pointer to the trimmed query value, or nil when
// the parameter is absent or blank.
func queryString(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}

// queryInt64 parses an optional integer query parameter.
func queryInt64(r *http.Request, key string) (*int64, error) {
	v := queryString(r, key)
	if v == nil {
		return nil, nil
	}
	n, err := strconv.ParseInt(*v, 10, 64)
	if err != nil || n < 0 {
		return nil, apperrors.InvalidInput(key + " must be a non-negative integer")
	}
	return &n, nil
}

// readUpload parses a multipart request and returns its "file" part. The
// returned cleanup closes the file and removes temporary parts.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (service.UploadInput, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.UploadInput{}, noop, apperrors.FileTooLarge(maxBytes)
		}
		return service.UploadInput{}, noop, apperrors.InvalidInput("request must be multipart/form-data with a file field")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		return service.UploadInput{}, noop, apperrors.InvalidInput("file is required")
	}

	cleanup := func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}
	return service.UploadInput{
		Folder:   strings.TrimSpace(r.FormValue("folder")),
		FileName: header.Filename,
		Size:     header.Size,
		Data:     file,
	}, cleanup, nil
}
