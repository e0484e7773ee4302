package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/younsl/lamstat/pkg/formatter"
)

func sampleTable() *formatter.Table {
	return &formatter.Table{
		Columns: []string{"timestamp", "requestId", "duration"},
		Rows: [][]interface{}{
			{time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), "abc-123", 2.78},
		},
	}
}

func TestWriteCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewFileWriter(dir)

	path, size, err := w.Write("slack_invitor", "_logs", sampleTable())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "slack_invitor_logs.csv"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "timestamp,requestId,duration\n2023-11-14T22:13:20.000Z,abc-123,2.78\n", string(data))
	assert.Equal(t, int64(len(data)), size)

	// no temporary files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir)
	require.NoError(t, os.WriteFile(w.Path("fn", "_events"), []byte("stale contents that are longer\n"), 0o644))

	path, _, err := w.Write("fn", "_events", sampleTable())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestDefaultDirectory(t *testing.T) {
	assert.Equal(t, filepath.Join(".", "fn_metrics.csv"), NewFileWriter("").Path("fn", "_metrics"))
}
