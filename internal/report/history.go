package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nerrad567/dockscan/internal/dock"
)

// WriteHistory renders stored runs, newest first, to w.
//
// Parameters:
//   - w: Destination
//   - format: FormatJSON writes an array of runs; FormatText one block per run
//   - runs: Runs as returned by dock.Repository.ListRuns
//
// Returns:
//   - error: ErrUnknownFormat, or a write failure
func WriteHistory(w io.Writer, format Format, runs []dock.Run) error {
	switch format {
	case FormatJSON:
		if runs == nil {
			runs = []dock.Run{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runs); err != nil {
			return fmt.Errorf("encoding history: %w", err)
		}
		return nil
	case FormatText:
		return writeHistoryText(w, runs)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeHistoryText(w io.Writer, runs []dock.Run) error {
	var b strings.Builder
	if len(runs) == 0 {
		b.WriteString("no scans recorded\n")
	}
	for _, r := range runs {
		fmt.Fprintf(&b, "RUN: %s | %s | Host: %s | Source: %s | Docks: %d\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Hostname, r.Source, r.DockCount())
		for _, e := range r.Entries {
			fmt.Fprintf(&b, "  DOCK: %s | Serial: %s | Firmware: %s\n", e.Model, e.SerialNumber, e.FirmwareVersion)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}
