package formatter

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/younsl/lamstat/internal/models"
)

// PrintSummaryTable prints one line per function with its outcome
func PrintSummaryTable(out io.Writer, results []models.FunctionResult, runStart time.Time, runDuration time.Duration) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No functions processed.")
		return
	}

	// kubectl style spacing, as the other tables
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintln(w, "FUNCTION\tMODE\tSTATUS\tRECORDS\tWARNINGS\tSIZE\tOUTPUT")

	var totalRecords, totalWarnings, written int
	var totalBytes int64
	for _, r := range results {
		size := "-"
		if r.Bytes > 0 {
			size = humanize.Bytes(uint64(r.Bytes))
		}

		output := "-"
		switch {
		case r.S3URI != "":
			output = r.S3URI
		case r.Path != "":
			output = r.Path
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateString(r.Function, 50),
			r.Mode,
			r.Status,
			humanize.Comma(int64(r.Records)),
			r.Warnings,
			size,
			output,
		)

		totalRecords += r.Records
		totalWarnings += r.Warnings
		totalBytes += r.Bytes
		if r.Status == models.StatusWritten {
			written++
		}
	}

	fmt.Fprintf(w, "Total:\t\t%d written\t%s\t%d\t%s\t\n",
		written,
		humanize.Comma(int64(totalRecords)),
		totalWarnings,
		humanize.Bytes(uint64(totalBytes)),
	)
	w.Flush()

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "%s: %v\n", r.Function, r.Err)
		}
	}

	printTimestamp(out, runStart, runDuration)
}

// truncateString truncates a string to the given max length and adds "..." if necessary
func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
