package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalFolder is a Remote backed by a directory on disk. Folder ids and file
// ids are absolute paths.
type LocalFolder struct {
	// Dir is the directory that contains the backup folder.
	Dir string
}

// FindOrCreateFolder creates Dir/root/name if needed. An empty or "root"
// root means Dir itself.
func (l LocalFolder) FindOrCreateFolder(_ context.Context, name, root string) (string, error) {
	if l.Dir == "" {
		return "", fmt.Errorf("local backup directory not configured")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid folder name %q", name)
	}
	base := l.Dir
	if root != "" && root != "root" {
		base = filepath.Join(base, root)
	}
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// Upload copies filePath into parentID/displayName.
func (l LocalFolder) Upload(ctx context.Context, filePath, displayName, parentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst := filepath.Join(parentID, filepath.Base(displayName))
	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return dst, nil
}

// List returns the regular files in parentID, skipping partial uploads.
func (l LocalFolder) List(_ context.Context, parentID string) ([]RemoteFile, error) {
	dirEntries, err := os.ReadDir(parentID)
	if err != nil {
		return nil, err
	}
	files := []RemoteFile{}
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasSuffix(de.Name(), ".tmp") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		p := filepath.Join(parentID, de.Name())
		files = append(files, RemoteFile{
			ID:          p,
			Name:        de.Name(),
			CreatedAt:   info.ModTime(),
			DownloadURL: "file://" + filepath.ToSlash(p),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Delete removes a file previously returned by List or Upload.
func (l LocalFolder) Delete(_ context.Context, id string) error {
	abs, err := filepath.Abs(id)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(l.Dir)
	if err != nil {
		return err
	}
	if rel, err := filepath.Rel(root, abs); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%s is outside the backup directory", id)
	}
	return os.Remove(abs)
}
