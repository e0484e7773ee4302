package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/younsl/lamstat/pkg/formatter"
)

// FileWriter writes one CSV per function into a directory
type FileWriter struct {
	dir string
}

// NewFileWriter creates a FileWriter for dir. An empty dir means the
// working directory.
func NewFileWriter(dir string) *FileWriter {
	if dir == "" {
		dir = "."
	}
	return &FileWriter{dir: dir}
}

// Path returns the file a function's table is written to
func (w *FileWriter) Path(function, suffix string) string {
	return filepath.Join(w.dir, function+suffix+".csv")
}

// Write stores t at Path(function, suffix), replacing any existing file,
// and returns the path and the file size
func (w *FileWriter) Write(function, suffix string, t *formatter.Table) (string, int64, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("error creating output directory %s: %w", w.dir, err)
	}

	path := w.Path(function, suffix)
	// Written beside the target and renamed into place
	tmp, err := os.CreateTemp(w.dir, "."+function+"-*.csv")
	if err != nil {
		return "", 0, fmt.Errorf("error creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := t.WriteCSV(tmp); err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("error closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("error moving output into place: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("error reading %s: %w", path, err)
	}

	return path, info.Size(), nil
}
