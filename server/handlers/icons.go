package handlers

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"contactdesk/apperrors"
	"contactdesk/pkg/logger"
	"contactdesk/pkg/metrics"
)

// URLPrefix is the public path uploaded icons are served under.
const URLPrefix = "/uploads/"

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9.]+`)

// IconStore validates uploaded contact icons and persists them on disk.
// Filenames combine the upload time in milliseconds with a sanitized
// version of the original name, which keeps collisions rare but not
// impossible; a same-millisecond upload of the same name overwrites.
type IconStore struct {
	dir     string
	maxSize int64
}

func NewIconStore(dir string, maxSize int64) (*IconStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory %s: %w", dir, err)
	}
	return &IconStore{dir: dir, maxSize: maxSize}, nil
}

// Save validates the upload and writes it under the uploads directory,
// returning the public path to store in the contact's icon field. The
// checks run before any database write: size ceiling, declared image
// content type, and an actual image decode.
func (is *IconStore) Save(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > is.maxSize {
		metrics.IconUploads.WithLabelValues("too_large").Inc()
		return "", apperrors.NewFileTooLarge(is.maxSize)
	}
	if fileHeader.Size == 0 {
		metrics.IconUploads.WithLabelValues("empty").Inc()
		return "", apperrors.NewValidationError("Empty file uploaded")
	}

	declared := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(declared, "image/") {
		metrics.IconUploads.WithLabelValues("bad_type").Inc()
		return "", apperrors.NewUnsupportedMediaType(declared)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", apperrors.NewInternalError("Failed to open uploaded file").WithInternal(err)
	}
	defer file.Close()

	// Decode config only; proves the payload really is an image without
	// loading pixels.
	if _, _, err := image.DecodeConfig(io.LimitReader(file, is.maxSize)); err != nil {
		metrics.IconUploads.WithLabelValues("bad_content").Inc()
		return "", apperrors.NewUnsupportedMediaType(declared).
			WithDetails("reason", "content is not a decodable image")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", apperrors.NewInternalError("Failed to rewind uploaded file").WithInternal(err)
	}

	filename := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizeFilename(fileHeader.Filename))
	dst, err := os.Create(filepath.Join(is.dir, filename))
	if err != nil {
		return "", apperrors.NewInternalError("Failed to store uploaded file").WithInternal(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", apperrors.NewInternalError("Failed to store uploaded file").WithInternal(err)
	}

	metrics.IconUploads.WithLabelValues("accepted").Inc()
	metrics.IconUploadBytes.Observe(float64(fileHeader.Size))

	return URLPrefix + filename, nil
}

// Remove deletes the stored file behind an icon path. Failures are logged
// and swallowed: losing a cleanup never fails the logical operation that
// triggered it.
func (is *IconStore) Remove(iconPath string) {
	if iconPath == "" {
		return
	}

	// The stored value is a public path; only its basename maps to disk.
	name := filepath.Base(iconPath)
	if err := os.Remove(filepath.Join(is.dir, name)); err != nil {
		if os.IsNotExist(err) {
			metrics.IconFilesRemoved.WithLabelValues("missing").Inc()
			logger.WithField("icon", iconPath).Warn("icon file already gone during cleanup")
			return
		}
		metrics.IconFilesRemoved.WithLabelValues("error").Inc()
		logger.LogAppError(
			apperrors.NewInternalError("Failed to remove icon file").
				WithDetails("icon", iconPath).
				WithInternal(err),
			logger.ERROR,
		)
		return
	}
	metrics.IconFilesRemoved.WithLabelValues("removed").Inc()
}

// sanitizeFilename collapses every run of characters outside [a-zA-Z0-9.]
// into a single underscore, keeping the extension readable.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	filename = filenameSanitizer.ReplaceAllString(filename, "_")
	if len(filename) > 128 {
		ext := filepath.Ext(filename)
		// An extension at or over the cap cannot be preserved.
		if len(ext) >= 128 {
			return filename[:128]
		}
		filename = filename[:128-len(ext)] + ext
	}
	return filename
}
