package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nerrad567/dockscan/internal/compliance"
	"github.com/nerrad567/dockscan/internal/dock"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("report: unknown format")

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Host describes the endpoint the scan ran on.
type Host struct {
	Name            string `json:"name"`
	OS              string `json:"os,omitempty"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelArch      string `json:"kernel_arch,omitempty"`
}

// AttemptReport is the serialisable form of dock.Attempt.
type AttemptReport struct {
	Method       dock.Method `json:"method"`
	Observations int         `json:"observations"`
	Accepted     int         `json:"accepted"`
	Error        string      `json:"error,omitempty"`
	DurationMS   int64       `json:"duration_ms"`
}

// Document is one scan result.
type Document struct {
	Hostname  string                `json:"hostname"`
	Host      Host                  `json:"host"`
	RunID     string                `json:"run_id"`
	Timestamp time.Time             `json:"timestamp"`
	DockCount int                   `json:"dock_count"`
	Source    dock.Method           `json:"source"`
	Compliant bool                  `json:"compliant"`
	ExitCode  int                   `json:"exit_code"`
	Reason    string                `json:"reason"`
	Docks     []dock.InventoryEntry `json:"docks"`
	Attempts  []AttemptReport       `json:"attempts"`
	Findings  []compliance.Finding  `json:"findings,omitempty"`
}

// NewDocument assembles a document from a resolution and its verdict.
func NewDocument(runID string, host Host, ts time.Time, inv dock.Inventory, v compliance.Verdict) Document {
	docks := inv.Entries
	if docks == nil {
		docks = []dock.InventoryEntry{}
	}

	attempts := make([]AttemptReport, 0, len(inv.Attempts))
	for _, a := range inv.Attempts {
		ar := AttemptReport{
			Method:       a.Method,
			Observations: a.Observations,
			Accepted:     a.Accepted,
			DurationMS:   a.Duration.Milliseconds(),
		}
		if a.Err != nil {
			ar.Error = a.Err.Error()
		}
		attempts = append(attempts, ar)
	}

	return Document{
		Hostname:  host.Name,
		Host:      host,
		RunID:     runID,
		Timestamp: ts.UTC(),
		DockCount: inv.DockCount(),
		Source:    inv.Source,
		Compliant: v.Compliant,
		ExitCode:  v.ExitCode,
		Reason:    v.Reason,
		Docks:     docks,
		Attempts:  attempts,
		Findings:  v.Findings,
	}
}

// Models returns the dock models in entry order.
func (d Document) Models() []string {
	models := make([]string, 0, len(d.Docks))
	for _, e := range d.Docks {
		models = append(models, e.Model)
	}
	return models
}

// Serials returns the dock serial numbers in entry order.
func (d Document) Serials() []string {
	serials := make([]string, 0, len(d.Docks))
	for _, e := range d.Docks {
		serials = append(serials, e.SerialNumber)
	}
	return serials
}

// Write renders doc to w in the given format.
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return nil
	case FormatText:
		return writeText(w, doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile renders doc to path, replacing any previous report atomically.
func WriteFile(path string, format Format, doc Document) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dockscan-report-*")
	if err != nil {
		return fmt.Errorf("creating temp report: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // No-op after a successful rename

	if err := Write(tmp, format, doc); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing report: %w", err)
	}
	return nil
}

func writeText(w io.Writer, doc Document) error {
	var b strings.Builder
	for _, e := range doc.Docks {
		fmt.Fprintf(&b, "DOCK: %s | Serial: %s | Firmware: %s | Status: %s | Method: %s\n",
			e.Model, e.SerialNumber, e.FirmwareVersion, orDash(e.Status), e.Method)
	}
	for _, f := range doc.Findings {
		fmt.Fprintf(&b, "FIRMWARE: %s\n", f)
	}

	state := "compliant"
	if !doc.Compliant {
		state = "non-compliant"
	}
	fmt.Fprintf(&b, "SUMMARY: %s on %s (%s)\n", doc.Reason, doc.Hostname, state)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
