package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// SaveUpload persists an uploaded file under <UPLOAD_ROOT>/<dir> with
// a collision-resistant name and returns the stored path in the
// forward-slash, leading-slash form used across the API
// (e.g. "/uploads/project_files/project_3_ab12cd34ef56ab78.pdf").
func SaveUpload(dir, prefix string, fh *multipart.FileHeader) (string, error) {
	root := os.Getenv("UPLOAD_ROOT")
	if root == "" {
		root = "uploads"
	}
	uploadDir := filepath.Join(root, dir)
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %v", err)
	}

	ext := filepath.Ext(fh.Filename)
	name := fmt.Sprintf("%s_%s%s", prefix, TokenHex(8), ext)
	dst := filepath.Join(uploadDir, name)

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %v", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %v", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("failed to write file: %v", err)
	}

	return "/" + filepath.ToSlash(dst), nil
}

// RemoveStoredFile deletes a file previously returned by SaveUpload.
// Missing files and filesystem errors are reported but not fatal to callers.
func RemoveStoredFile(storedPath string) error {
	if storedPath == "" {
		return nil
	}
	local := filepath.FromSlash(strings.TrimLeft(storedPath, "/\\"))
	if _, err := os.Stat(local); err != nil {
		return nil
	}
	return os.Remove(local)
}
