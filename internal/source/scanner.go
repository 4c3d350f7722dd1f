package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDir discovers ledger CSV files under root. A root that names a single
// file yields just that file; a missing root yields nothing.
func ScanDir(root string) ([]DiscoveredFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return []DiscoveredFile{discovered(root, info)}, nil
	}

	var files []DiscoveredFile
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // file vanished between walk and stat
		}
		files = append(files, discovered(path, fi))
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

func discovered(path string, fi os.FileInfo) DiscoveredFile {
	base := filepath.Base(path)
	return DiscoveredFile{
		Path:      path,
		Name:      strings.TrimSuffix(base, filepath.Ext(base)),
		MtimeNs:   fi.ModTime().UnixNano(),
		SizeBytes: fi.Size(),
	}
}
