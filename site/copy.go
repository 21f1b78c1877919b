// ABOUTME: File-level helpers for the builder: markup rewriting and verbatim copies.
// ABOUTME: Parent directories are created lazily so empty source directories are not mirrored.
package site

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// regularFileInfo returns the FileInfo for a regular file, following a
// symlink when it points at one. It returns nil for anything else.
func regularFileInfo(path string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type().IsRegular() {
		return d.Info()
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	return info, nil
}

// writeMarkup injects the partial into the page at src and writes the result
// to dst. It reports whether the placeholder was present.
func writeMarkup(src, dst, partial, token string, perm fs.FileMode) (bool, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return false, err
	}
	page := string(data)
	injected := strings.Contains(page, token)

	if err := writeFile(dst, []byte(Inject(page, partial, token)), perm); err != nil {
		return false, err
	}
	return injected, nil
}

// writeFile writes data to path, creating parent directories as needed.
func writeFile(path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	return os.WriteFile(path, data, perm)
}

// copyFile copies src to dst byte for byte. Permissions and modification time
// are carried over best-effort.
func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	_ = os.Chmod(dst, info.Mode().Perm())
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}
