package server

import (
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/shelfmap/shelfmap/pkg/geometry"
	"github.com/shelfmap/shelfmap/pkg/inventory"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// uniqueFilename sanitizes the client-supplied name and appends a random
// suffix so concurrent uploads of "shelf.jpg" never collide.
func uniqueFilename(original string) string {
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = unsafeFilename.ReplaceAllString(stem, "_")
	if stem == "" || stem == "." {
		stem = "upload"
	}
	return fmt.Sprintf("%s_%s%s", stem, strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
}

// saveUpload stores one uploaded image under the uploads directory and
// returns its filename and intrinsic pixel size. The size feeds the
// editor's coordinate mapping, so a file that does not decode as an image
// is rejected.
func (s *Server) saveUpload(file multipart.File, header *multipart.FileHeader) (string, geometry.Size, error) {
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return "", geometry.Size{}, inventory.WrapError(inventory.ErrCodeInvalidImage, err, "decode image %s", header.Filename)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", geometry.Size{}, inventory.WrapError(inventory.ErrCodeInternal, err, "rewind upload")
	}

	name := uniqueFilename(header.Filename)
	dst, err := os.Create(filepath.Join(s.uploadsDir, name))
	if err != nil {
		return "", geometry.Size{}, inventory.WrapError(inventory.ErrCodeInternal, err, "create upload file")
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", geometry.Size{}, inventory.WrapError(inventory.ErrCodeInternal, err, "write upload file")
	}
	size := geometry.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}
	s.logger.Debug("stored upload", "file", name, "width", cfg.Width, "height", cfg.Height)
	return name, size, nil
}

// removeUpload deletes a stored image. Best effort: a missing file or a
// filesystem error leaves a stale upload behind, never a failed request.
func (s *Server) removeUpload(filename string) {
	if filename == "" {
		return
	}
	path := filepath.Join(s.uploadsDir, filepath.Base(filename))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("remove upload", "file", filename, "error", err)
	}
}

// uploadPath turns a stored filename into the public URL path. An empty
// filename stays empty; the JSON field is omitted.
func uploadPath(filename string) string {
	if filename == "" {
		return ""
	}
	if strings.HasPrefix(filename, "/uploads/") {
		return filename
	}
	return "/uploads/" + filename
}

// storedFilename strips the public prefix back off for storage.
func storedFilename(path string) string {
	return strings.TrimPrefix(path, "/uploads/")
}
