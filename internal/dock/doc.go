// Package dock resolves raw docking-station observations into a deduplicated
// inventory.
//
// A single physical dock is usually reported several times: once per USB
// interface, or once per CIM sub-object. This package collapses those reports
// into one InventoryEntry per dock, keeping the best data available.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                          Resolver                            │
//	│                                                              │
//	│  Detector (primary) ─┐                                       │
//	│  Detector (secondary)├─▶ first non-empty batch ─▶ ModelFilter│
//	│  Detector (usb)      │                            │          │
//	│  Detector (tbt)     ─┘                            ▼          │
//	│                                         DeduplicateWith      │
//	└──────────────────────────────────────────────────┼───────────┘
//	                                                   ▼
//	                                              Inventory
//
// # Key Types
//
//   - Observation: One candidate device from one detection method
//   - InventoryEntry: One resolved dock
//   - Detector: A detection method (see internal/detect for the real ones)
//   - Resolver: Priority-ordered, short-circuiting method runner
//   - SQLiteRepository: Optional persistence of scan runs
//
// # Usage
//
//	filter, err := dock.NewModelFilter(dock.DefaultModelPatterns)
//	if err != nil {
//	    return err
//	}
//	resolver := dock.NewResolver(dock.WithModelFilter(filter))
//	resolver.SetLogger(log)
//
//	inv := resolver.Resolve(ctx, detectors)
//	fmt.Println(inv.DockCount())
//
// # Failure Semantics
//
// Resolve never returns an error. A failing detector is recorded as a
// DetectionFailure in Inventory.Attempts and treated as having found nothing.
// Deduplicate is a pure function over in-memory data.
package dock
