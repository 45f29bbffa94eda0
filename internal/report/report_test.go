package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/dockscan/internal/compliance"
	"github.com/nerrad567/dockscan/internal/dock"
)

func testDocument(t *testing.T) Document {
	t.Helper()

	inv := dock.Inventory{
		Source: dock.MethodUSBEnumeration,
		Entries: dock.Deduplicate([]dock.Observation{
			dock.NewObservation(dock.MethodUSBEnumeration, "Dell WD-19S", "CN0X1", "", "OK", `USB\VID_413C&PID_B06E\CN0X1`, "B06E"),
		}),
		Attempts: []dock.Attempt{
			{Method: dock.MethodPrimaryManagementAgent, Err: dock.NewDetectionFailure(dock.MethodPrimaryManagementAgent, errors.New("Invalid namespace")), Duration: 1500 * time.Millisecond},
			{Method: dock.MethodUSBEnumeration, Observations: 3, Accepted: 1, Duration: 200 * time.Millisecond},
		},
	}
	v := new(compliance.Evaluator).Evaluate(inv)
	ts := time.Date(2026, 6, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

	return NewDocument("3f8c2a4e-0d7e-4bb0-9f51-6a1d2c9e7b10", Host{Name: "LAPTOP-01", OS: "windows"}, ts, inv, v)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{" TEXT ", FormatText, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("ParseFormat() error = %v, want ErrUnknownFormat", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestNewDocument(t *testing.T) {
	doc := testDocument(t)

	if doc.DockCount != 1 || !doc.Compliant || doc.ExitCode != compliance.ExitCompliant {
		t.Errorf("document = %+v", doc)
	}
	if doc.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, want UTC", doc.Timestamp.Location())
	}
	if len(doc.Attempts) != 2 || doc.Attempts[0].Error == "" || doc.Attempts[0].DurationMS != 1500 {
		t.Errorf("Attempts = %+v", doc.Attempts)
	}
	if got := doc.Models(); len(got) != 1 || got[0] != "Dell WD-19S" {
		t.Errorf("Models() = %v", got)
	}
	if got := doc.Serials(); len(got) != 1 || got[0] != "CN0X1" {
		t.Errorf("Serials() = %v", got)
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, testDocument(t)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, key := range []string{"hostname", "run_id", "timestamp", "dock_count", "source", "compliant", "docks", "attempts"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if decoded["source"] != "usb_enumeration" {
		t.Errorf("source = %v, want usb_enumeration", decoded["source"])
	}
	if decoded["dock_count"] != float64(1) {
		t.Errorf("dock_count = %v, want 1", decoded["dock_count"])
	}
}

func TestWrite_JSONEmptyInventory(t *testing.T) {
	inv := dock.Inventory{}
	doc := NewDocument("id", Host{Name: "h"}, time.Now(), inv, new(compliance.Evaluator).Evaluate(inv))

	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, doc); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"docks": []`) {
		t.Errorf("empty inventory should serialise docks as [], got:\n%s", buf.String())
	}
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatText, testDocument(t)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q, want dock line and summary", lines)
	}
	if !strings.HasPrefix(lines[0], "DOCK: Dell WD-19S | Serial: CN0X1 | Firmware: N/A") {
		t.Errorf("dock line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "SUMMARY: 1 dock(s) detected via usb_enumeration on LAPTOP-01 (compliant)") {
		t.Errorf("summary = %q", lines[1])
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, Format("yaml"), Document{}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Write() error = %v, want ErrUnknownFormat", err)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dockscan.json")

	if err := WriteFile(path, FormatJSON, testDocument(t)); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !json.Valid(data) {
		t.Errorf("file is not valid JSON: %s", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}
