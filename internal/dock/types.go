package dock

import (
	"strings"
	"time"
)

// Sentinel attribute values used when a detection source cannot report a field.
const (
	// UnknownSerial marks a serial number that could not be determined.
	// It is distinct from an empty string, which is never stored.
	UnknownSerial = "Unknown"

	// UnknownFirmware marks a firmware version that could not be determined.
	UnknownFirmware = "N/A"
)

// Method identifies the detection strategy that produced an Observation.
// Lower values are higher priority.
type Method int

const (
	// MethodNone is the zero value, used as the Source of an empty Inventory.
	MethodNone Method = iota

	// MethodPrimaryManagementAgent queries the Dell Command|Monitor CIM classes.
	MethodPrimaryManagementAgent

	// MethodSecondaryManagementNamespace queries the secondary Dell inventory namespace.
	MethodSecondaryManagementNamespace

	// MethodUSBEnumeration matches USB PnP devices by vendor and product ID.
	MethodUSBEnumeration

	// MethodThunderboltEnumeration matches Thunderbolt PnP devices by name.
	MethodThunderboltEnumeration
)

// methodNames maps methods to their stable string form (used in JSON, SQLite and metrics labels).
var methodNames = map[Method]string{
	MethodNone:                         "none",
	MethodPrimaryManagementAgent:       "primary_management_agent",
	MethodSecondaryManagementNamespace: "secondary_management_namespace",
	MethodUSBEnumeration:               "usb_enumeration",
	MethodThunderboltEnumeration:       "thunderbolt_enumeration",
}

// AllMethods lists the detection methods in priority order.
func AllMethods() []Method {
	return []Method{
		MethodPrimaryManagementAgent,
		MethodSecondaryManagementNamespace,
		MethodUSBEnumeration,
		MethodThunderboltEnumeration,
	}
}

// String returns the stable string form of the method.
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMethod converts a string form back into a Method.
// Returns ErrInvalidMethod if the name is not recognised.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return MethodNone, ErrInvalidMethod
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Observation is a single candidate device reported by one detection method.
//
// Observations are values: detection sources create them through
// NewObservation and nothing downstream modifies them.
type Observation struct {
	Method          Method `json:"method"`
	Model           string `json:"model"`
	SerialNumber    string `json:"serial_number"`
	FirmwareVersion string `json:"firmware_version"`
	Status          string `json:"status"`
	RawDeviceID     string `json:"raw_device_id"`

	// ProductID is only set for USB-sourced observations.
	ProductID string `json:"product_id,omitempty"`
}

// NewObservation builds an Observation with normalised sentinel values.
//
// Empty or whitespace-only serials become UnknownSerial and empty firmware
// becomes UnknownFirmware. Product IDs are upper-cased so USB paths reported
// with different casing produce the same grouping key.
func NewObservation(method Method, model, serial, firmware, status, rawDeviceID, productID string) Observation {
	return Observation{
		Method:          method,
		Model:           strings.TrimSpace(model),
		SerialNumber:    normaliseSerial(serial),
		FirmwareVersion: normaliseFirmware(firmware),
		Status:          strings.TrimSpace(status),
		RawDeviceID:     strings.TrimSpace(rawDeviceID),
		ProductID:       strings.ToUpper(strings.TrimSpace(productID)),
	}
}

// HasSerial reports whether the observation carries a real serial number.
func (o Observation) HasSerial() bool {
	return IsKnownSerial(o.SerialNumber)
}

// IsKnownSerial reports whether s is a real serial rather than a sentinel or empty.
func IsKnownSerial(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.EqualFold(s, UnknownSerial)
}

func normaliseSerial(s string) string {
	if !IsKnownSerial(s) {
		return UnknownSerial
	}
	return strings.TrimSpace(s)
}

func normaliseFirmware(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownFirmware
	}
	return s
}

// InventoryEntry is one resolved physical dock.
type InventoryEntry struct {
	Method          Method `json:"method"`
	Model           string `json:"model"`
	SerialNumber    string `json:"serial_number"`
	FirmwareVersion string `json:"firmware_version"`
	Status          string `json:"status"`
	RawDeviceID     string `json:"raw_device_id"`
	ProductID       string `json:"product_id,omitempty"`

	// Key is the grouping key the entry was merged under.
	Key string `json:"key"`

	// MergedCount is how many observations collapsed into this entry.
	MergedCount int `json:"merged_count"`
}

// newEntry builds an entry from its representative observation.
func newEntry(rep Observation, key string, merged int) InventoryEntry {
	return InventoryEntry{
		Method:          rep.Method,
		Model:           rep.Model,
		SerialNumber:    rep.SerialNumber,
		FirmwareVersion: rep.FirmwareVersion,
		Status:          rep.Status,
		RawDeviceID:     rep.RawDeviceID,
		ProductID:       rep.ProductID,
		Key:             key,
		MergedCount:     merged,
	}
}

// AsObservation converts the entry back into the observation it was built from.
func (e InventoryEntry) AsObservation() Observation {
	return Observation{
		Method:          e.Method,
		Model:           e.Model,
		SerialNumber:    e.SerialNumber,
		FirmwareVersion: e.FirmwareVersion,
		Status:          e.Status,
		RawDeviceID:     e.RawDeviceID,
		ProductID:       e.ProductID,
	}
}

// Attempt records the outcome of invoking one detection method.
type Attempt struct {
	Method Method `json:"method"`

	// Observations is the number of observations the method returned.
	Observations int `json:"observations"`

	// Accepted is the number that passed the model filter.
	Accepted int `json:"accepted"`

	// Err is the detection failure, if any.
	Err error `json:"-"`

	Duration time.Duration `json:"duration_ns"`
}

// Failed reports whether the method failed.
func (a Attempt) Failed() bool {
	return a.Err != nil
}

// Inventory is the result of a resolution.
type Inventory struct {
	Entries []InventoryEntry `json:"entries"`

	// Source is the method whose batch produced Entries, or MethodNone.
	Source Method `json:"source"`

	// Attempts lists every method that was invoked, in invocation order.
	Attempts []Attempt `json:"attempts"`
}

// DockCount returns the number of resolved docks.
func (inv Inventory) DockCount() int {
	return len(inv.Entries)
}

// Empty reports whether no dock was resolved.
func (inv Inventory) Empty() bool {
	return len(inv.Entries) == 0
}
