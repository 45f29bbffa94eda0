package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/dockscan/internal/cim"
	"github.com/nerrad567/dockscan/internal/dock"
)

// fakeQuerier answers per class and records queries.
type fakeQuerier struct {
	results map[string][]cim.Instance
	errs    map[string]error
	queries []cim.Query
}

func (f *fakeQuerier) Query(_ context.Context, q cim.Query) ([]cim.Instance, error) {
	f.queries = append(f.queries, q)
	key := q.Namespace + "/" + q.Class
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.results[key], nil
}

func TestPrimaryDetector(t *testing.T) {
	q := &fakeQuerier{results: map[string][]cim.Instance{
		`root\dcim\sysman/DCIM_Chassis`: {
			{"Model": "WD19TBS", "Tag": "CN0ABC", "Version": "01.00.14", "HealthState": float64(5), "InstanceID": "DCIM:DockingStation:1"},
			{"ElementName": "Dell Dock WD19S", "SerialNumber": "CN0DEF", "HealthState": float64(99)},
		},
	}}

	obs, err := NewPrimary(q).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("len = %d, want 2", len(obs))
	}

	first := obs[0]
	if first.Method != dock.MethodPrimaryManagementAgent || first.Model != "WD19TBS" ||
		first.SerialNumber != "CN0ABC" || first.FirmwareVersion != "01.00.14" ||
		first.Status != "OK" || first.RawDeviceID != "DCIM:DockingStation:1" {
		t.Errorf("first = %+v", first)
	}

	second := obs[1]
	if second.Model != "Dell Dock WD19S" || second.SerialNumber != "CN0DEF" {
		t.Errorf("second = %+v, want ElementName and SerialNumber fallbacks", second)
	}
	if second.FirmwareVersion != dock.UnknownFirmware {
		t.Errorf("FirmwareVersion = %q, want %q", second.FirmwareVersion, dock.UnknownFirmware)
	}
	if second.Status != "99" {
		t.Errorf("Status = %q, want raw value for unknown health state", second.Status)
	}

	if len(q.queries) != 1 || q.queries[0].Filter != "ChassisPackageType = 1" {
		t.Errorf("queries = %+v", q.queries)
	}
}

func TestSecondaryDetector(t *testing.T) {
	q := &fakeQuerier{results: map[string][]cim.Instance{
		`root\dell\sysinv/dell_softwareidentity`: {
			{"ElementName": "Dell Dock WD19DCS", "SerialNumber": "", "VersionString": "01.00.08", "Status": "OK", "InstanceID": "DCIM:INSTALLED#802__Dock"},
		},
	}}

	obs, err := NewSecondary(q).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("len = %d, want 1", len(obs))
	}
	if obs[0].SerialNumber != dock.UnknownSerial {
		t.Errorf("SerialNumber = %q, want %q", obs[0].SerialNumber, dock.UnknownSerial)
	}
	if obs[0].FirmwareVersion != "01.00.08" {
		t.Errorf("FirmwareVersion = %q", obs[0].FirmwareVersion)
	}
}

func TestUSBDetector(t *testing.T) {
	q := &fakeQuerier{results: map[string][]cim.Instance{
		`root\cimv2/Win32_PnPEntity`: {
			{"Name": "USB Composite Device", "DeviceID": `USB\VID_413C&PID_B06E\CN0X1234`, "Status": "OK"},
			{"Name": "USB Input Device", "DeviceID": `USB\VID_413C&PID_B06E&MI_00\6&2A3B4C&0&0000`, "Status": "OK"},
			{"Name": "Dell Universal Dock D6000", "DeviceID": `USB\VID_413C&PID_C010\5&1&2`, "Status": "OK"},
			{"Name": "Dell Keyboard", "DeviceID": `USB\VID_413C&PID_2113\5&1&3`, "Status": "OK"},
			{"Name": "Malformed", "DeviceID": `USB\ROOT_HUB30\4&1`, "Status": "OK"},
		},
	}}

	obs, err := NewUSB(q, NewProductTable(nil)).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("len = %d, want 3 (keyboard and malformed skipped)", len(obs))
	}

	tests := []struct {
		model, serial, pid string
	}{
		{"Dell WD-19S", "CN0X1234", "B06E"},
		{"Dell WD-19S", dock.UnknownSerial, "B06E"},
		{"Dell Universal Dock D6000", dock.UnknownSerial, "C010"},
	}
	for i, tt := range tests {
		if obs[i].Model != tt.model || obs[i].SerialNumber != tt.serial || obs[i].ProductID != tt.pid {
			t.Errorf("obs[%d] = %+v, want model=%q serial=%q pid=%q", i, obs[i], tt.model, tt.serial, tt.pid)
		}
		if obs[i].FirmwareVersion != dock.UnknownFirmware {
			t.Errorf("obs[%d] firmware = %q", i, obs[i].FirmwareVersion)
		}
	}

	// The composite parent absorbs its interface once resolved.
	entries := dock.Deduplicate(obs[:2])
	if len(entries) != 1 || entries[0].SerialNumber != "CN0X1234" {
		t.Errorf("Deduplicate() = %+v, want parent only", entries)
	}
}

func TestThunderboltDetector(t *testing.T) {
	q := &fakeQuerier{results: map[string][]cim.Instance{
		`root\cimv2/Win32_PnPEntity`: {
			{"Name": "Dell Thunderbolt Dock WD22TB4", "DeviceID": `PCI\VEN_8086&DEV_1136\3&11583659&0&07`, "Status": "OK"},
			{"Name": "", "DeviceID": "x"},
		},
	}}

	obs, err := NewThunderbolt(q).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(obs) != 1 {
		t.Fatalf("len = %d, want 1", len(obs))
	}
	if obs[0].SerialNumber != dock.UnknownSerial || obs[0].Method != dock.MethodThunderboltEnumeration {
		t.Errorf("obs = %+v", obs[0])
	}
}

func TestDetect_QueryErrorIsDetectionFailure(t *testing.T) {
	q := &fakeQuerier{errs: map[string]error{
		`root\dcim\sysman/DCIM_Chassis`: cim.ErrNamespaceNotFound,
	}}

	_, err := NewPrimary(q).Detect(context.Background())

	var failure *dock.DetectionFailure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want DetectionFailure", err)
	}
	if failure.Method != dock.MethodPrimaryManagementAgent {
		t.Errorf("Method = %v", failure.Method)
	}
	if !errors.Is(err, cim.ErrNamespaceNotFound) {
		t.Error("cause should remain visible to errors.Is")
	}
}

func TestNew(t *testing.T) {
	q := &fakeQuerier{}

	all := New(q, DefaultConfig())
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	for i, want := range dock.AllMethods() {
		if all[i].Method() != want {
			t.Errorf("detector %d = %v, want %v", i, all[i].Method(), want)
		}
	}

	some := New(q, Config{USB: true, Thunderbolt: true})
	if len(some) != 2 || some[0].Method() != dock.MethodUSBEnumeration {
		t.Errorf("New() = %v, want usb and thunderbolt", some)
	}
}

func TestEndToEnd_FallsBackToUSB(t *testing.T) {
	q := &fakeQuerier{
		errs: map[string]error{
			`root\dcim\sysman/DCIM_Chassis`:          cim.ErrNamespaceNotFound,
			`root\dell\sysinv/dell_softwareidentity`: cim.ErrNamespaceNotFound,
		},
		results: map[string][]cim.Instance{
			`root\cimv2/Win32_PnPEntity`: {
				{"Name": "USB Composite Device", "DeviceID": `USB\VID_413C&PID_B06E\5&1&0`, "Status": "OK"},
				{"Name": "USB Composite Device", "DeviceID": `USB\VID_413C&PID_B06E\5&1&1`, "Status": "OK"},
			},
		},
	}

	filter, err := dock.NewModelFilter(dock.DefaultModelPatterns)
	if err != nil {
		t.Fatalf("NewModelFilter() error = %v", err)
	}
	inv := dock.NewResolver(dock.WithModelFilter(filter)).Resolve(context.Background(), New(q, DefaultConfig()))

	if inv.DockCount() != 1 {
		t.Fatalf("DockCount = %d, want 1", inv.DockCount())
	}
	if inv.Source != dock.MethodUSBEnumeration {
		t.Errorf("Source = %v, want usb_enumeration", inv.Source)
	}
	if inv.Entries[0].Model != "Dell WD-19S" {
		t.Errorf("Model = %q", inv.Entries[0].Model)
	}
	if len(inv.Attempts) != 3 || !inv.Attempts[0].Failed() || !inv.Attempts[1].Failed() {
		t.Errorf("Attempts = %+v", inv.Attempts)
	}
}

func TestEndToEnd_DellPeripheralsAreNotDocks(t *testing.T) {
	q := &fakeQuerier{
		errs: map[string]error{
			`root\dcim\sysman/DCIM_Chassis`:          cim.ErrNamespaceNotFound,
			`root\dell\sysinv/dell_softwareidentity`: cim.ErrNamespaceNotFound,
		},
		results: map[string][]cim.Instance{
			`root\cimv2/Win32_PnPEntity`: {
				{"Name": "Dell KB216 Wired Keyboard", "DeviceID": `USB\VID_413C&PID_2113\5&1&3`, "Status": "OK"},
				{"Name": "Dell MS116 USB Optical Mouse", "DeviceID": `USB\VID_413C&PID_301A\5&1&4`, "Status": "OK"},
			},
		},
	}

	filter, err := dock.NewModelFilter(dock.DefaultModelPatterns)
	if err != nil {
		t.Fatalf("NewModelFilter() error = %v", err)
	}
	inv := dock.NewResolver(dock.WithModelFilter(filter)).Resolve(context.Background(), New(q, DefaultConfig()))

	if !inv.Empty() {
		t.Fatalf("DockCount = %d, want 0: %+v", inv.DockCount(), inv.Entries)
	}
	if inv.Source != dock.MethodNone {
		t.Errorf("Source = %v, want none", inv.Source)
	}
	for _, a := range inv.Attempts {
		if a.Method == dock.MethodUSBEnumeration && a.Observations != 0 {
			t.Errorf("usb observations = %d, want 0", a.Observations)
		}
	}
}
