package validators

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileNameTooLong     = errors.New("file name is too long")
	ErrFileTypeUnsupported = errors.New("unsupported file type")
	ErrNoFile              = errors.New("no file provided")
)

var allowedExtensions = []string{
	".jpg", ".jpeg", ".webp", ".png",
	".mp4", ".avi", ".mov", ".mkv", ".mk3d", ".mks", ".mka",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".txt", ".zip", ".rar", ".7z",
}

const maxFileNameSize = 255

// FileValidator checks an uploaded file's name, extension and size
// against the configured limits. Returns the HTTP status to respond
// with when validation fails.
func FileValidator(fh *multipart.FileHeader) (int, error) {
	if fh == nil {
		return http.StatusBadRequest, ErrNoFile
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, ErrFileNameTooLong
	}

	ext := strings.ToLower(path.Ext(fh.Filename))
	if !slices.Contains(allowedExtensions, ext) {
		return http.StatusBadRequest, ErrFileTypeUnsupported
	}

	if fh.Size > viper.GetInt64("upload.max_size") {
		return http.StatusRequestEntityTooLarge, ErrFileTooLarge
	}

	return 0, nil
}

// DetectType returns the declared Content-Type of an upload, sniffing
// the actual bytes when the client didn't declare one
func DetectType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}

	f, err := fh.Open()
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return "application/octet-stream"
	}

	return mime.String()
}
