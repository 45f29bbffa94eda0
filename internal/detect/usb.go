package detect

import (
	"regexp"
	"strings"

	"github.com/nerrad567/dockscan/internal/dock"
)

// DellVendorID is the USB vendor ID assigned to Dell.
const DellVendorID = "413C"

// DefaultUSBProducts maps Dell dock USB product IDs to model names.
var DefaultUSBProducts = map[string]string{
	"B06E": "Dell WD-19S",
	"B06F": "Dell WD-19",
	"B0A0": "Dell WD-19TB",
	"B0A1": "Dell WD-19DC",
	"B0A2": "Dell WD-19DC",
	"B0A5": "Dell WD-22TB4",
	"B0A6": "Dell UD-22",
}

var (
	productIDPattern = regexp.MustCompile(`(?i)PID_([0-9A-F]{4})`)
	dockNamePattern  = regexp.MustCompile(`(?i)dock`)
)

// ProductTable resolves USB product IDs to dock model names.
type ProductTable map[string]string

// NewProductTable returns DefaultUSBProducts with extra entries added or
// overriding. Keys are normalised to upper case.
func NewProductTable(extra map[string]string) ProductTable {
	table := make(ProductTable, len(DefaultUSBProducts)+len(extra))
	for pid, model := range DefaultUSBProducts {
		table[pid] = model
	}
	for pid, model := range extra {
		pid = strings.ToUpper(strings.TrimSpace(pid))
		if pid != "" && strings.TrimSpace(model) != "" {
			table[pid] = strings.TrimSpace(model)
		}
	}
	return table
}

// Model returns the model for pid. When the product is not in the table it
// uses the PnP name if that looks like a dock. ok is false for any other
// device: keyboards, mice and monitors share the Dell vendor ID.
func (t ProductTable) Model(pid, pnpName string) (model string, ok bool) {
	if model, ok := t[strings.ToUpper(pid)]; ok {
		return model, true
	}
	if dockNamePattern.MatchString(pnpName) {
		return strings.TrimSpace(pnpName), true
	}
	return "", false
}

// ParseProductID extracts the four hex digits after PID_ in a device path.
func ParseProductID(deviceID string) string {
	m := productIDPattern.FindStringSubmatch(deviceID)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// ParseUSBSerial returns the instance segment of a USB device path when it
// is a device-reported serial.
//
// Windows synthesises an instance ID containing '&' for devices that report
// no serial (and for every interface of a composite device); those return
// dock.UnknownSerial.
func ParseUSBSerial(deviceID string) string {
	idx := strings.LastIndex(deviceID, `\`)
	if idx < 0 || idx == len(deviceID)-1 {
		return dock.UnknownSerial
	}
	instance := deviceID[idx+1:]
	if strings.Contains(instance, "&") {
		return dock.UnknownSerial
	}
	return instance
}
