package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	gcs "cloud.google.com/go/storage"
)

// Folder is a logical upload destination with its own size and type limits.
type Folder string

const (
	FolderAvatars  Folder = "avatars"
	FolderCovers   Folder = "covers"
	FolderPosts    Folder = "posts"
	FolderMessages Folder = "messages"
)

var (
	ErrQuotaExceeded   = errors.New("file exceeds the size limit for this folder")
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrUnknownFolder   = errors.New("unknown upload folder")
)

const mb = 1 << 20

var maxSizes = map[Folder]int64{
	FolderAvatars:  2 * mb,
	FolderCovers:   5 * mb,
	FolderPosts:    10 * mb,
	FolderMessages: 5 * mb,
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var allowedVideoTypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
}

// ValidateUpload checks folder, size and content type before any bytes are
// sent. Video is only accepted into the posts folder.
func ValidateUpload(folder Folder, contentType string, size int64) error {
	limit, ok := maxSizes[folder]
	if !ok {
		return ErrUnknownFolder
	}
	if size > limit {
		return fmt.Errorf("%w: %d bytes over %d", ErrQuotaExceeded, size, limit)
	}
	if allowedImageTypes[contentType] {
		return nil
	}
	if allowedVideoTypes[contentType] && folder == FolderPosts {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
}

// Uploader writes validated files to the storage bucket and hands back public
// URLs.
type Uploader struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

func NewUploader(bucket *gcs.BucketHandle, bucketName string) *Uploader {
	return &Uploader{bucket: bucket, bucketName: bucketName}
}

// Upload validates and stores a file, returning its public URL and object
// path. The Blob Store re-validates limits server-side; this check just fails
// fast before the transfer.
func (u *Uploader) Upload(ctx context.Context, folder Folder, userID uint, filename, contentType string, size int64, r io.Reader) (string, string, error) {
	if err := ValidateUpload(folder, contentType, size); err != nil {
		return "", "", err
	}

	objectPath := fmt.Sprintf("%s/%d-%d%s", folder, userID, time.Now().UnixNano(), path.Ext(filename))

	w := u.bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", "", fmt.Errorf("failed to upload file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, objectPath)
	return url, objectPath, nil
}

// Delete removes an object by its path.
func (u *Uploader) Delete(ctx context.Context, objectPath string) error {
	if err := u.bucket.Object(objectPath).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectPath, err)
	}
	return nil
}
