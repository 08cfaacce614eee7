package filesync

import (
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// Directory is an acquired, writable location. All paths passed to its
// methods are relative to the directory root.
type Directory struct {
	kind BackendKind
	path string
	fs   afero.Fs
}

// FileInfo describes a file present in a sync directory.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

func newDirectory(kind BackendKind, path string, base afero.Fs) *Directory {
	return &Directory{
		kind: kind,
		path: path,
		fs:   afero.NewBasePathFs(base, path),
	}
}

// Kind reports which backend produced the directory.
func (d *Directory) Kind() BackendKind { return d.kind }

// Path is the host path the directory is rooted at.
func (d *Directory) Path() string { return d.path }

// Check verifies the directory is still reachable.
func (d *Directory) Check() error {
	info, err := d.fs.Stat("/")
	if err != nil {
		return fmt.Errorf("stat %s: %w", d.path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("stat %s: not a directory", d.path)
	}
	return nil
}

// WriteFile creates or truncates name and writes data.
func (d *Directory) WriteFile(name string, data []byte) error {
	return afero.WriteFile(d.fs, name, data, filePerm)
}

// ReadFile returns the contents of name.
func (d *Directory) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(d.fs, name)
}

// List returns the regular files at the top level, sorted by name.
func (d *Directory) List() ([]FileInfo, error) {
	entries, err := afero.ReadDir(d.fs, "/")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.path, err)
	}
	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Mode().IsRegular() {
			continue
		}
		files = append(files, fileInfoFrom(e))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func fileInfoFrom(info fs.FileInfo) FileInfo {
	return FileInfo{Name: info.Name(), Size: info.Size(), Modified: info.ModTime()}
}
