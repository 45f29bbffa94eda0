// Package registry records the last scan result under HKLM so Intune
// detection rules and other management tooling can read it without running
// the agent.
//
// Values written under the configured key (default SOFTWARE\DockScan):
//
//	DockCount    REG_DWORD     number of docks
//	DockModels   REG_MULTI_SZ  model per dock
//	DockSerials  REG_MULTI_SZ  serial per dock
//	Source       REG_SZ        detection method that produced the inventory
//	LastScan     REG_SZ        RFC 3339 UTC timestamp
//	RunID        REG_SZ        scan run identifier
//
// On non-Windows builds every write returns ErrUnsupported.
package registry
