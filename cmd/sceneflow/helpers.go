package main

import (
	"fmt"
	"io"

	"sceneflow/internal/report"
)

// printReport renders one batch report as a table plus a one-line tally.
func printReport(w io.Writer, title string, rep *report.Report) {
	rows := make([][]string, 0, rep.Len())
	for _, res := range rep.Results() {
		rows = append(rows, []string{res.Key, res.Outcome.String(), res.Reason})
	}
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintln(w, renderTable([]string{"KEY", "OUTCOME", "REASON"}, rows))

	counts := rep.Counts()
	fmt.Fprintf(w, "succeeded %d, skipped %d, failed %d\n\n",
		counts[report.Succeeded], counts[report.Skipped], counts[report.Failed])
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
