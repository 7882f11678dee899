package domain

// MaxUploadSize is the default upload limit in bytes.
const MaxUploadSize int64 = 5 << 20

// allowedContentTypes is the set of MIME types accepted for upload.
var allowedContentTypes = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

// IsAllowedContentType checks whether the given content type is allowed.
func IsAllowedContentType(ct string) bool {
	_, ok := allowedContentTypes[ct]
	return ok
}

// ExtensionFor returns the file extension stored for an allowed type.
func ExtensionFor(ct string) string {
	return allowedContentTypes[ct]
}

// Upload folders group stored files by what they belong to.
const (
	FolderProducts   = "products"
	FolderFacets     = "facets"
	FolderThumbnails = "thumbnails"
	FolderMisc       = "misc"
)

// IsValidFolder reports whether folder is an allowed upload folder.
func IsValidFolder(folder string) bool {
	switch folder {
	case FolderProducts, FolderFacets, FolderThumbnails, FolderMisc:
		return true
	}
	return false
}

// StoredFile is the result of an upload.
type StoredFile struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
