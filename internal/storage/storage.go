// Package storage persists processed product images and resolves the
// references stored on products back to objects.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ImageStore saves and deletes product images.
//
// Save returns the reference recorded on the product (a URL path for local
// storage, an absolute URL for S3). Delete must succeed silently when ref is
// empty or the object is already gone.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
	Exists(ctx context.Context, ref string) (bool, error)
}

// ContentType of every stored image; uploads are always re-encoded.
const ContentType = "image/jpeg"

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// AllowedExtension reports whether filename carries an accepted photo extension.
func AllowedExtension(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return allowedExtensions[ext]
}

// KeyFor derives the object key for a product's image. Keys use the product
// id, which never changes, so renaming a product cannot orphan its photo.
func KeyFor(productID int) string {
	return fmt.Sprintf("%d.jpg", productID)
}

// RevisionKeyFor names a replacement photo so it can be written next to the
// one it replaces.
func RevisionKeyFor(productID int, revision string) string {
	return fmt.Sprintf("%d-%s.jpg", productID, revision)
}
