package mirror

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/bookmirror/bookmirror/internal/bookmark"
)

// tempPattern names in-flight files; the inventory skips tempPrefix.
const (
	tempPrefix  = ".bookmirror-"
	tempPattern = tempPrefix + "*.part"
)

// iCloud Drive replaces evicted files with a hidden ".<name>.icloud" placeholder.
const icloudSuffix = ".icloud"

// junkFiles are created by file managers and never belong to a bookmark.
var junkFiles = map[string]bool{
	".DS_Store":   true,
	".localized":  true,
	"Thumbs.db":   true,
	"desktop.ini": true,
}

// Dir is the mirror output directory.
type Dir struct {
	fs   afero.Fs
	path string
}

// NewDir returns a Dir rooted at path on fs.
func NewDir(fs afero.Fs, path string) *Dir {
	return &Dir{fs: fs, path: path}
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// Fs returns the file system the directory lives on.
func (d *Dir) Fs() afero.Fs {
	return d.fs
}

// Ensure creates the directory if it does not exist.
func (d *Dir) Ensure() error {
	if err := d.fs.MkdirAll(d.path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", bookmark.ErrDirectoryUnavailable, d.path, err)
	}
	return nil
}

// Inventory is the set of stems currently materialized in the directory.
type Inventory struct {
	files map[string][]string // stem -> file names, sorted
}

// Inventory lists the direct regular files of the directory.
// Subdirectories, in-flight downloads and file manager metadata are
// ignored. An iCloud placeholder counts as the file it stands for.
func (d *Dir) Inventory() (*Inventory, error) {
	infos, err := afero.ReadDir(d.fs, d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bookmark.ErrDirectoryUnavailable, err)
	}

	inv := &Inventory{files: make(map[string][]string)}
	for _, info := range infos {
		if info.IsDir() || !info.Mode().IsRegular() {
			continue
		}
		name := info.Name()
		if junkFiles[name] || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		stem := Stem(entryName(name))
		inv.files[stem] = append(inv.files[stem], name)
	}
	for _, names := range inv.files {
		sort.Strings(names)
	}

	return inv, nil
}

// entryName maps an iCloud placeholder to the name of the file it replaces.
func entryName(name string) string {
	if strings.HasPrefix(name, ".") && strings.HasSuffix(name, icloudSuffix) {
		if inner := strings.TrimSuffix(name[1:], icloudSuffix); strings.Contains(inner, ".") {
			return inner
		}
	}
	return name
}

// Stem returns a file name without its final extension.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Stems returns the set of stems in the inventory.
func (inv *Inventory) Stems() map[string]bool {
	stems := make(map[string]bool, len(inv.files))
	for stem := range inv.files {
		stems[stem] = true
	}
	return stems
}

// Files returns the file names registered under stem, in name order.
func (inv *Inventory) Files(stem string) []string {
	return inv.files[stem]
}

// Len returns the number of distinct stems.
func (inv *Inventory) Len() int {
	return len(inv.files)
}

// Has reports whether a file with the given stem exists.
func (inv *Inventory) Has(stem string) bool {
	_, ok := inv.files[stem]
	return ok
}

// Remove deletes the file materialized for stem and returns its name.
//
// The extension is not tracked, so the file is found by stem. When several
// files share the stem the first in name order is deleted and the rest are
// left for the operator.
func (d *Dir) Remove(inv *Inventory, stem string, logger *log.Logger) (string, error) {
	names := inv.Files(stem)
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no file for %q", bookmark.ErrFileSystem, stem)
	}
	if len(names) > 1 && logger != nil {
		logger.Printf("Warning: %d files share stem %q, removing %s only", len(names), stem, names[0])
	}

	name := names[0]
	if err := d.fs.Remove(filepath.Join(d.path, name)); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("%w: failed to remove %s: %v", bookmark.ErrFileSystem, name, err)
	}

	inv.files[stem] = names[1:]
	if len(inv.files[stem]) == 0 {
		delete(inv.files, stem)
	}
	return name, nil
}
