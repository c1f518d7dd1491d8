package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Manager places output files for processed measurements
type Manager struct {
	outputDir string
}

// NewManager creates a manager writing below outputDir
func NewManager(outputDir string) *Manager {
	return &Manager{outputDir: outputDir}
}

// OutputDir returns the directory outputs are written to
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Stem returns the file name of source without directory and extension
func Stem(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Labels returns one output label per source, in order. A label is the
// source's stem; stems shared by several sources are prefixed with the parent
// directory name, and a numeric suffix resolves any clash left over.
func Labels(sources []string) []string {
	stems := make(map[string]int, len(sources))
	for _, source := range sources {
		stems[Stem(source)]++
	}

	labels := make([]string, len(sources))
	used := make(map[string]bool, len(sources))
	for i, source := range sources {
		label := Stem(source)
		if stems[label] > 1 {
			parent := filepath.Base(filepath.Dir(source))
			if parent != "." && parent != string(filepath.Separator) {
				label = parent + "_" + label
			}
		}
		base := label
		for n := 2; used[label]; n++ {
			label = fmt.Sprintf("%s_%d", base, n)
		}
		used[label] = true
		labels[i] = label
	}
	return labels
}

// OutputPath returns the path of an output for the file labelled label, e.g.
// OutputPath("a_C01", "_cropped.csv") is "<out>/a_C01_cropped.csv".
func (m *Manager) OutputPath(label, suffix string) string {
	return filepath.Join(m.outputDir, label+suffix)
}

// EnsureDirectory creates the output directory if it doesn't exist
func (m *Manager) EnsureDirectory() error {
	slog.Debug("Ensuring output directory exists",
		slog.String("path", m.outputDir))

	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", m.outputDir, err)
	}
	return nil
}

// Create opens a new output file at path, creating parent directories and
// truncating an existing file.
func (m *Manager) Create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	slog.Debug("Created output file", slog.String("path", path))
	return f, nil
}
