package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"
)

const defaultHistoryLimit = 20

// cmdHistory prints the most recent control calls from the ledger.
func (a *app) cmdHistory(args []string) error {
	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid history limit %q", args[0])
		}
		limit = n
	}

	led, closeLedger, err := a.openLedger()
	if err != nil {
		return err
	}
	defer closeLedger()

	entries, err := led.Recent(limit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			entry.Timestamp.Local().Format(time.RFC3339),
			entry.Device, entry.Action, entry.Argument, entry.Outcome)
	}
	return w.Flush()
}
