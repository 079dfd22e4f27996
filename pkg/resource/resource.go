package resource

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rescp17/slidingftp/pkg/protocol"
)

// Resource is a readable file a client may request by name.
type Resource struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
	Checksum string `json:"checksum,omitempty"`
	Path     string `json:"-"`
}

// Locate resolves name to a regular UTF-8 text file. With a non-empty root,
// name must stay inside root; anything else is reported as not found.
func Locate(root, name string) (Resource, error) {
	path, err := resolve(root, name)
	if err != nil {
		return Resource{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Resource{}, fmt.Errorf("%w: %s", protocol.ErrNotFound, name)
		}
		return Resource{}, err
	}
	if info.IsDir() {
		return Resource{}, fmt.Errorf("%w: %s is a directory", protocol.ErrNotFound, name)
	}

	res := Resource{
		Name: name,
		Size: info.Size(),
		Path: path,
	}
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		res.MimeType = "application/octet-stream"
	} else {
		res.MimeType = mime.String()
	}
	sum, text, err := inspectFile(path)
	if err != nil {
		return Resource{}, err
	}
	if !text {
		return Resource{}, fmt.Errorf("%w: %s", protocol.ErrNotText, name)
	}
	res.Checksum = sum
	return res, nil
}

func inspectFile(path string) (string, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("fail to close file", "error", err.Error())
		}
	}()
	return Inspect(file)
}

func resolve(root, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty name", protocol.ErrNotFound)
	}
	if root == "" {
		return name, nil
	}

	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %s is outside the served root", protocol.ErrNotFound, name)
	}
	path := filepath.Join(root, name)

	// A symlink inside root may still point elsewhere.
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", protocol.ErrNotFound, name)
		}
		return "", err
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(realRoot, target)
	if err != nil || !filepath.IsLocal(rel) {
		slog.Warn("Rejected resource resolving outside root", "name", name, "target", target)
		return "", fmt.Errorf("%w: %s is outside the served root", protocol.ErrNotFound, name)
	}
	return path, nil
}

// Open opens the resource for reading.
func (r Resource) Open() (*os.File, error) {
	return os.Open(r.Path)
}
