package dock

import "regexp"

// SubInterfaceFunc reports whether a raw device ID identifies one function of
// a multi-function device rather than the device itself.
type SubInterfaceFunc func(rawDeviceID string) bool

// usbInterfaceMarker matches the Windows USB stack's interface index marker,
// e.g. USB\VID_413C&PID_B06E&MI_02\6&2A3B...
var usbInterfaceMarker = regexp.MustCompile(`(?i)&MI_[0-9A-F]{2}`)

// USBInterfaceMarker is the default SubInterfaceFunc.
//
// The marker is specific to Windows USB device instance paths; device IDs from
// other enumeration stacks need their own predicate.
func USBInterfaceMarker(rawDeviceID string) bool {
	return usbInterfaceMarker.MatchString(rawDeviceID)
}

// PatternSubInterface builds a SubInterfaceFunc from a regular expression.
// An empty pattern returns USBInterfaceMarker.
func PatternSubInterface(pattern string) (SubInterfaceFunc, error) {
	if pattern == "" {
		return USBInterfaceMarker, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}

// Deduplicate collapses observations of the same physical dock using the
// default USB interface marker. See DeduplicateWith.
func Deduplicate(observations []Observation) []InventoryEntry {
	return DeduplicateWith(observations, USBInterfaceMarker)
}

// DeduplicateWith collapses observations that describe the same physical dock
// into one InventoryEntry each.
//
// The steps run in this order:
//  1. Sub-interfaces with no serial are dropped when the batch also holds a
//     parent of the same model that is not a sub-interface and has a serial.
//  2. Each survivor gets a grouping key: its serial, else product ID + model,
//     else model + raw device ID.
//  3. Observations are grouped by key in first-seen order. A group's
//     representative is its first member, replaced by the first later member
//     with a serial if the current one has none.
//
// The input slice is never modified. A nil isSubInterface disables step 1.
//
// Parameters:
//   - observations: One detection batch
//   - isSubInterface: Predicate identifying multi-function interface IDs
//
// Returns:
//   - []InventoryEntry: One entry per key, in first-seen order (nil for empty input)
func DeduplicateWith(observations []Observation, isSubInterface SubInterfaceFunc) []InventoryEntry {
	if len(observations) == 0 {
		return nil
	}

	survivors := suppressSubInterfaces(observations, isSubInterface)

	type group struct {
		rep   Observation
		count int
	}
	order := make([]string, 0, len(survivors))
	groups := make(map[string]*group, len(survivors))

	for _, o := range survivors {
		key := GroupingKey(o)
		g, ok := groups[key]
		if !ok {
			groups[key] = &group{rep: o, count: 1}
			order = append(order, key)
			continue
		}
		g.count++
		if !g.rep.HasSerial() && o.HasSerial() {
			g.rep = o
		}
	}

	entries := make([]InventoryEntry, 0, len(order))
	for _, key := range order {
		g := groups[key]
		entries = append(entries, newEntry(g.rep, key, g.count))
	}
	return entries
}

// keySep joins the parts of a composite key so that distinct
// (productId, model) or (model, rawDeviceId) pairs never concatenate to
// the same string.
const keySep = "\x1f"

// GroupingKey derives the identity key used to merge observations.
func GroupingKey(o Observation) string {
	switch {
	case o.HasSerial():
		return o.SerialNumber
	case o.ProductID != "":
		return o.ProductID + keySep + o.Model
	default:
		return o.Model + keySep + o.RawDeviceID
	}
}

// suppressSubInterfaces returns the observations that survive step 1.
func suppressSubInterfaces(observations []Observation, isSubInterface SubInterfaceFunc) []Observation {
	if isSubInterface == nil {
		return observations
	}

	// Models that have at least one qualifying parent in the batch.
	parents := make(map[string]bool)
	for _, o := range observations {
		if o.HasSerial() && !isSubInterface(o.RawDeviceID) {
			parents[o.Model] = true
		}
	}

	out := make([]Observation, 0, len(observations))
	for _, o := range observations {
		if !o.HasSerial() && isSubInterface(o.RawDeviceID) && parents[o.Model] {
			continue
		}
		out = append(out, o)
	}
	return out
}
