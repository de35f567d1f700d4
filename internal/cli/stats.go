package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/raphaelgruber/compere-go/internal/metrics"
)

// printCallStats prints per-endpoint call statistics for this process.
func printCallStats(s metrics.Snapshot) {
	fmt.Fprintf(os.Stderr, "\nAPI calls (%.1fs):\n", s.UptimeSeconds)
	if len(s.Operations) == 0 {
		fmt.Fprintln(os.Stderr, "  none")
		return
	}

	w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  OPERATION\tCALLS\tERRORS\tAVG\tMIN\tMAX")
	for _, op := range s.Operations {
		fmt.Fprintf(w, "  %s\t%d\t%d\t%.0fms\t%dms\t%dms\n",
			op.Operation, op.Count, op.Errors, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
	w.Flush()
}
