package detect

import (
	"context"

	"github.com/nerrad567/dockscan/internal/cim"
	"github.com/nerrad567/dockscan/internal/dock"
)

// Queries issued by each method.
var (
	PrimaryQuery = cim.Query{
		Namespace:  `root\dcim\sysman`,
		Class:      "DCIM_Chassis",
		Filter:     "ChassisPackageType = 1",
		Properties: []string{"Model", "ElementName", "Tag", "SerialNumber", "Version", "HealthState", "InstanceID"},
	}

	SecondaryQuery = cim.Query{
		Namespace:  `root\dell\sysinv`,
		Class:      "dell_softwareidentity",
		Filter:     "ElementName LIKE '%Dock%'",
		Properties: []string{"ElementName", "SerialNumber", "VersionString", "Status", "InstanceID"},
	}

	USBQuery = cim.Query{
		Namespace:  `root\cimv2`,
		Class:      "Win32_PnPEntity",
		Filter:     `DeviceID LIKE 'USB\\VID_` + DellVendorID + `&PID_%'`,
		Properties: []string{"Name", "DeviceID", "Status"},
	}

	ThunderboltQuery = cim.Query{
		Namespace:  `root\cimv2`,
		Class:      "Win32_PnPEntity",
		Filter:     "Name LIKE '%Thunderbolt%' AND Manufacturer LIKE '%Dell%'",
		Properties: []string{"Name", "DeviceID", "Status"},
	}
)

// healthStates maps CIM HealthState values to display text.
var healthStates = map[int]string{
	0:  "Unknown",
	5:  "OK",
	10: "Degraded",
	15: "Minor Failure",
	20: "Major Failure",
	25: "Critical Failure",
	30: "Non-recoverable Error",
}

// Config selects the methods to run.
type Config struct {
	Primary     bool
	Secondary   bool
	USB         bool
	Thunderbolt bool

	// USBProducts adds or overrides entries in DefaultUSBProducts.
	USBProducts map[string]string
}

// DefaultConfig enables every method with the built-in product table.
func DefaultConfig() Config {
	return Config{Primary: true, Secondary: true, USB: true, Thunderbolt: true}
}

// mapFunc turns one CIM instance into an observation. ok=false skips it.
type mapFunc func(inst cim.Instance) (obs dock.Observation, ok bool)

// Detector runs one CIM query and maps its results.
type Detector struct {
	method  dock.Method
	query   cim.Query
	querier cim.Querier
	mapper  mapFunc
}

// Method implements dock.Detector.
func (d *Detector) Method() dock.Method {
	return d.method
}

// Query returns the CIM query the detector issues.
func (d *Detector) Query() cim.Query {
	return d.query
}

// Detect implements dock.Detector. Query errors are returned as
// dock.DetectionFailure.
func (d *Detector) Detect(ctx context.Context) ([]dock.Observation, error) {
	instances, err := d.querier.Query(ctx, d.query)
	if err != nil {
		return nil, dock.NewDetectionFailure(d.method, err)
	}

	observations := make([]dock.Observation, 0, len(instances))
	for _, inst := range instances {
		if obs, ok := d.mapper(inst); ok {
			observations = append(observations, obs)
		}
	}
	return observations, nil
}

// New builds the enabled detectors in priority order.
//
// Parameters:
//   - q: Querier used by every method
//   - cfg: Method selection and USB product overrides
//
// Returns:
//   - []dock.Detector: Enabled detectors, highest priority first
func New(q cim.Querier, cfg Config) []dock.Detector {
	var detectors []dock.Detector
	if cfg.Primary {
		detectors = append(detectors, NewPrimary(q))
	}
	if cfg.Secondary {
		detectors = append(detectors, NewSecondary(q))
	}
	if cfg.USB {
		detectors = append(detectors, NewUSB(q, NewProductTable(cfg.USBProducts)))
	}
	if cfg.Thunderbolt {
		detectors = append(detectors, NewThunderbolt(q))
	}
	return detectors
}

// NewPrimary creates the Dell Command|Monitor chassis detector.
func NewPrimary(q cim.Querier) *Detector {
	return &Detector{
		method:  dock.MethodPrimaryManagementAgent,
		query:   PrimaryQuery,
		querier: q,
		mapper: func(inst cim.Instance) (dock.Observation, bool) {
			return dock.NewObservation(
				dock.MethodPrimaryManagementAgent,
				inst.FirstString("Model", "ElementName"),
				inst.FirstString("Tag", "SerialNumber"),
				inst.String("Version"),
				healthText(inst),
				inst.String("InstanceID"),
				"",
			), true
		},
	}
}

// NewSecondary creates the Dell system inventory detector.
func NewSecondary(q cim.Querier) *Detector {
	return &Detector{
		method:  dock.MethodSecondaryManagementNamespace,
		query:   SecondaryQuery,
		querier: q,
		mapper: func(inst cim.Instance) (dock.Observation, bool) {
			return dock.NewObservation(
				dock.MethodSecondaryManagementNamespace,
				inst.String("ElementName"),
				inst.String("SerialNumber"),
				inst.String("VersionString"),
				inst.String("Status"),
				inst.String("InstanceID"),
				"",
			), true
		},
	}
}

// NewUSB creates the USB PnP detector. Devices without a parsable product ID
// and devices the product table does not recognise as docks are skipped.
func NewUSB(q cim.Querier, products ProductTable) *Detector {
	return &Detector{
		method:  dock.MethodUSBEnumeration,
		query:   USBQuery,
		querier: q,
		mapper: func(inst cim.Instance) (dock.Observation, bool) {
			deviceID := inst.String("DeviceID")
			pid := ParseProductID(deviceID)
			if pid == "" {
				return dock.Observation{}, false
			}
			model, known := products.Model(pid, inst.String("Name"))
			if !known {
				return dock.Observation{}, false
			}
			return dock.NewObservation(
				dock.MethodUSBEnumeration,
				model,
				ParseUSBSerial(deviceID),
				dock.UnknownFirmware,
				inst.String("Status"),
				deviceID,
				pid,
			), true
		},
	}
}

// NewThunderbolt creates the Thunderbolt PnP detector.
func NewThunderbolt(q cim.Querier) *Detector {
	return &Detector{
		method:  dock.MethodThunderboltEnumeration,
		query:   ThunderboltQuery,
		querier: q,
		mapper: func(inst cim.Instance) (dock.Observation, bool) {
			name := inst.String("Name")
			if name == "" {
				return dock.Observation{}, false
			}
			return dock.NewObservation(
				dock.MethodThunderboltEnumeration,
				name,
				dock.UnknownSerial,
				dock.UnknownFirmware,
				inst.String("Status"),
				inst.String("DeviceID"),
				"",
			), true
		},
	}
}

func healthText(inst cim.Instance) string {
	if n, ok := inst.Int("HealthState"); ok {
		if text, known := healthStates[n]; known {
			return text
		}
	}
	return inst.String("HealthState")
}
