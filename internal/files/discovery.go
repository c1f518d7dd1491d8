package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MeasurementExt is the extension of EC-Lab ASCII exports
const MeasurementExt = ".mpt"

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a discovery rooted at basePath. Relative directories
// passed to its methods are resolved against it.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindMeasurementFiles finds all .mpt files (any case) directly in dir, sorted by name
func (d *Discovery) FindMeasurementFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), MeasurementExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sortByName(files)
	return files, nil
}

// FindFilesByPattern finds regular files in dir matching a glob pattern, sorted by name
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	searchPattern := filepath.Join(d.resolve(dir), pattern)

	matches, err := filepath.Glob(searchPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sortByName(files)
	return files, nil
}

// ResolveInputs expands command line arguments into measurement file paths.
// A directory contributes its .mpt files, an argument with glob metacharacters
// its matches, anything else is taken as a file path. Order follows the
// arguments and duplicates are dropped.
func (d *Discovery) ResolveInputs(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		resolved := d.resolve(arg)
		if strings.ContainsAny(arg, "*?[") {
			found, err := d.FindFilesByPattern(filepath.Dir(resolved), filepath.Base(resolved))
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f.Path)
			}
			continue
		}

		info, err := os.Stat(resolved)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(resolved)
			continue
		}
		found, err := d.FindMeasurementFiles(resolved)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f.Path)
		}
	}
	return paths, nil
}

func sortByName(files []FileInfo) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
}
