// Package storage persists raw file bytes on the local filesystem,
// addressed by generated storage names
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrNotOnDisk = errors.New("file missing on server")

const suffixCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Disk struct {
	root string
}

func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory, %w", err)
	}

	return &Disk{root: root}, nil
}

// SanitizeName reduces a file name to a safe character set so it can't
// escape the uploads directory or break shells and headers
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	return b.String()
}

// StorageName builds a collision-resistant name for an uploaded file:
// the sanitized original name plus a random suffix, keeping the extension
// so served files stay recognizable
func StorageName(originalName string) (string, error) {
	ext := path.Ext(originalName)
	base := strings.TrimSuffix(originalName, ext)

	suffix, err := gonanoid.Generate(suffixCharset, 10)
	if err != nil {
		return "", err
	}

	return SanitizeName(base) + "_" + suffix + SanitizeName(ext), nil
}

// Save writes the file bytes under the given storage name and returns
// the locator recorded in the database
func (d *Disk) Save(name string, r io.Reader) (string, error) {
	dst, err := os.Create(filepath.Join(d.root, name))
	if err != nil {
		return "", fmt.Errorf("failed to create file on disk, %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write file to disk, %w", err)
	}

	return "/uploads/" + name, nil
}

// Open resolves a stored locator to a readable file. Only the basename is
// used so records survive the uploads directory moving.
func (d *Disk) Open(locator string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(filepath.Join(d.root, path.Base(locator)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotOnDisk
		}
		return nil, nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return f, stat, nil
}

// Delete removes the blob behind a locator. A missing blob is not an
// error, record deletion is best-effort cleanup.
func (d *Disk) Delete(locator string) error {
	err := os.Remove(filepath.Join(d.root, path.Base(locator)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
