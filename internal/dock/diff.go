package dock

// Diff compares two resolved inventories by grouping key.
//
// Parameters:
//   - prev: Entries from an earlier run
//   - cur: Entries from the current run
//
// Returns:
//   - added: Entries in cur whose key is absent from prev, in cur order
//   - removed: Entries in prev whose key is absent from cur, in prev order
func Diff(prev, cur []InventoryEntry) (added, removed []InventoryEntry) {
	before := make(map[string]bool, len(prev))
	for _, e := range prev {
		before[entryKey(e)] = true
	}
	after := make(map[string]bool, len(cur))
	for _, e := range cur {
		after[entryKey(e)] = true
	}

	for _, e := range cur {
		if !before[entryKey(e)] {
			added = append(added, e)
		}
	}
	for _, e := range prev {
		if !after[entryKey(e)] {
			removed = append(removed, e)
		}
	}
	return added, removed
}

// entryKey falls back to recomputing the key for entries built by hand.
func entryKey(e InventoryEntry) string {
	if e.Key != "" {
		return e.Key
	}
	return GroupingKey(e.AsObservation())
}
