//go:build windows

package registry

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

func writeValues(keyPath string, v Values) error {
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE, keyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("opening HKLM\\%s: %w", keyPath, err)
	}
	defer k.Close()

	if err := k.SetDWordValue("DockCount", v.DockCount); err != nil {
		return fmt.Errorf("setting DockCount: %w", err)
	}
	if err := k.SetStringsValue("DockModels", v.DockModels); err != nil {
		return fmt.Errorf("setting DockModels: %w", err)
	}
	if err := k.SetStringsValue("DockSerials", v.DockSerials); err != nil {
		return fmt.Errorf("setting DockSerials: %w", err)
	}

	for name, value := range map[string]string{
		"Source":   v.Source,
		"LastScan": v.LastScan,
		"RunID":    v.RunID,
	} {
		if err := k.SetStringValue(name, value); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
	}
	return nil
}

