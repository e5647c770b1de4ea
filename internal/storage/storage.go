package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Storage defines the interface for product image storage.
type Storage interface {
	// Upload stores a file and returns the result with key and URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes a file by its key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// AllowedImageType reports whether contentType may be uploaded.
func AllowedImageType(contentType string) bool {
	_, ok := imageExtensions[strings.ToLower(contentType)]
	return ok
}

// ProductImageKey returns a fresh key such as products/{id}/{uuid}.jpg.
// The extension follows the content type, falling back to the filename's.
func ProductImageKey(productID, filename, contentType string) string {
	ext, ok := imageExtensions[strings.ToLower(contentType)]
	if !ok {
		ext = strings.ToLower(path.Ext(filename))
	}
	return "products/" + productID + "/" + uuid.NewString() + ext
}

// PublicURL joins a base URL and a key.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + key
}
