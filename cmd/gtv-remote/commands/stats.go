package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gtv-remote/gtv-go/pkg/log"
)

// RunStats summarises the capture at path and prints the result.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats, err := reader.Collect()
	if err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats log.Stats) {
	fmt.Fprintln(w, "=== Remote Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.Events > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.FirstEvent.Format(time.RFC3339),
			stats.LastEvent.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.LastEvent.Sub(stats.FirstEvent).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.Events)
	fmt.Fprintf(w, "Connections:  %d\n", stats.Connections)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError, log.CategoryCommand} {
		if count := stats.ByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}

	if len(stats.ByOpcode) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Messages by Opcode:")
	opcodes := make([]string, 0, len(stats.ByOpcode))
	for op := range stats.ByOpcode {
		opcodes = append(opcodes, op)
	}
	// Most frequent first, ties by opcode.
	sort.Slice(opcodes, func(i, j int) bool {
		a, b := stats.ByOpcode[opcodes[i]], stats.ByOpcode[opcodes[j]]
		if a != b {
			return a > b
		}
		return opcodes[i] < opcodes[j]
	})
	for _, op := range opcodes {
		fmt.Fprintf(w, "  %-12s %d\n", op+":", stats.ByOpcode[op])
	}
}
