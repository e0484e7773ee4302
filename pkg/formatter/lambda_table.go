package formatter

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/younsl/lamstat/internal/models"
)

// PrintFunctionTable prints the Lambda functions selected by --all-functions
func PrintFunctionTable(out io.Writer, functions []models.LambdaFunctionInfo) {
	// Early return if no results
	if len(functions) == 0 {
		fmt.Fprintln(out, "No Lambda functions found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "FUNCTION\tRUNTIME\tMEMORY\tLAST MODIFIED")

	for _, function := range functions {
		lastModified := "Unknown"
		if function.LastModified != nil {
			lastModified = function.LastModified.Format("2006-01-02")
		}

		runtime := function.Runtime
		if runtime == "" {
			runtime = "-" // container image functions have no runtime
		}

		fmt.Fprintf(w, "%s\t%s\t%d MB\t%s\n",
			truncateString(function.FunctionName, 50),
			runtime,
			function.MemorySize,
			lastModified,
		)
	}

	printRuntimeTotals(w, functions)
	w.Flush()
}

// printRuntimeTotals prints the function count per runtime below the table
func printRuntimeTotals(w io.Writer, functions []models.LambdaFunctionInfo) {
	runtimeCounts := make(map[string]int)
	for _, function := range functions {
		runtimeCounts[function.Runtime]++
	}

	var runtimes []string
	for runtime := range runtimeCounts {
		if runtime != "" {
			runtimes = append(runtimes, runtime)
		}
	}
	sort.Strings(runtimes)

	var parts string
	for i, runtime := range runtimes {
		if i > 0 {
			parts += ", "
		}
		parts += fmt.Sprintf("%s=%d", runtime, runtimeCounts[runtime])
	}

	fmt.Fprintf(w, "Total:\t%d functions\t\t%s\n", len(functions), parts)
}
