package formatter

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/younsl/lamstat/internal/models"
)

// PrintModeTable lists the extraction modes with their output suffix
func PrintModeTable(out io.Writer) {
	modes := make([]string, 0, len(models.ModeDescriptions))
	for mode := range models.ModeDescriptions {
		modes = append(modes, mode)
	}
	sort.Strings(modes)

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tOUTPUT\tDESCRIPTION")
	for _, mode := range modes {
		fmt.Fprintf(w, "%s\t<function>%s.csv\t%s\n", mode, models.ModeSuffixes[mode], models.ModeDescriptions[mode])
	}
	w.Flush()
}
