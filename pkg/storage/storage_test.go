package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name        string
		folder      Folder
		contentType string
		size        int64
		wantErr     error
	}{
		{"avatar jpeg in range", FolderAvatars, "image/jpeg", 1 * mb, nil},
		{"avatar over quota", FolderAvatars, "image/jpeg", 3 * mb, ErrQuotaExceeded},
		{"cover at limit", FolderCovers, "image/png", 5 * mb, nil},
		{"post video allowed", FolderPosts, "video/mp4", 9 * mb, nil},
		{"video outside posts", FolderMessages, "video/mp4", 1 * mb, ErrUnsupportedType},
		{"executable rejected", FolderPosts, "application/octet-stream", 1 * mb, ErrUnsupportedType},
		{"unknown folder", Folder("tmp"), "image/jpeg", 1 * mb, ErrUnknownFolder},
		{"message image", FolderMessages, "image/webp", 4 * mb, nil},
		{"message image over quota", FolderMessages, "image/webp", 6 * mb, ErrQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.folder, tt.contentType, tt.size)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
