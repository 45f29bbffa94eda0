package registry

import (
	"errors"
	"time"

	"github.com/nerrad567/dockscan/internal/report"
)

// DefaultKeyPath is the key written under HKEY_LOCAL_MACHINE.
const DefaultKeyPath = `SOFTWARE\DockScan`

var (
	// ErrUnsupported is returned on platforms without a registry.
	ErrUnsupported = errors.New("registry: not supported on this platform")

	// ErrInvalidKey is returned when the key path is empty or absolute.
	ErrInvalidKey = errors.New("registry: invalid key path")
)

// Values is the flattened form of a report written to the registry.
type Values struct {
	DockCount   uint32
	DockModels  []string
	DockSerials []string
	Source      string
	LastScan    string
	RunID       string
}

// ValuesFrom flattens a report document.
func ValuesFrom(doc report.Document) Values {
	return Values{
		DockCount:   uint32(doc.DockCount), //nolint:gosec // Dock counts are tiny
		DockModels:  doc.Models(),
		DockSerials: doc.Serials(),
		Source:      doc.Source.String(),
		LastScan:    doc.Timestamp.UTC().Format(time.RFC3339),
		RunID:       doc.RunID,
	}
}

// Writer stores scan results in the registry.
type Writer struct {
	keyPath string
}

// NewWriter creates a Writer for keyPath under HKLM. An empty path uses DefaultKeyPath.
func NewWriter(keyPath string) (*Writer, error) {
	if keyPath == "" {
		keyPath = DefaultKeyPath
	}
	if keyPath[0] == '\\' || keyPath[len(keyPath)-1] == '\\' {
		return nil, ErrInvalidKey
	}
	return &Writer{keyPath: keyPath}, nil
}

// KeyPath returns the key the writer targets.
func (w *Writer) KeyPath() string {
	return w.keyPath
}

// WriteInventory writes the document's values, creating the key if needed.
func (w *Writer) WriteInventory(doc report.Document) error {
	return writeValues(w.keyPath, ValuesFrom(doc))
}
