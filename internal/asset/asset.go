package asset

import (
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"
)

// Entry is a regular file found directly inside an asset directory
type Entry struct {
	Name string      // base name, unique within the directory
	Path string      // full path on the filesystem it was discovered on
	Mode os.FileMode // permission bits, reused for the copy
}

// Discover lists the regular files directly inside dir, ordered by name.
// Subdirectories are not descended into. Symlinks are not followed, even
// when they point at regular files, and like devices and other non-regular
// entries they are left out; a directory holding only symlinks is empty.
func Discover(fs billy.Filesystem, dir string) ([]Entry, error) {
	infos, err := fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, Entry{
			Name: info.Name(),
			Path: fs.Join(dir, info.Name()),
			Mode: info.Mode().Perm(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

// Names returns the entry names in order
func Names(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// IsDir reports whether path exists on fs and is a directory
func IsDir(fs billy.Filesystem, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
