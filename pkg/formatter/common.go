package formatter

import (
	"fmt"
	"io"
	"time"
)

// printTimestamp prints when the run started and how long it took
func printTimestamp(out io.Writer, runStart time.Time, runDuration time.Duration) {
	timeStr := runStart.Format("2006-01-02 15:04:05")
	durationStr := fmt.Sprintf("%.2fs", runDuration.Seconds())

	fmt.Fprintf(out, "Extraction completed at %s (took %s)\n", timeStr, durationStr)
}
