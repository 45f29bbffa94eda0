// Package cim queries Windows CIM/WMI classes.
//
// Detection methods describe what they need as a Query (namespace, class,
// WQL filter, properties) and receive a slice of Instance maps back. The only
// production Querier shells out to PowerShell's Get-CimInstance and decodes
// its JSON output, which avoids COM bindings in the agent binary.
//
// Usage:
//
//	q := cim.NewPowerShellQuerier(process.NewExec(), cim.Options{Timeout: 30 * time.Second})
//	instances, err := q.Query(ctx, cim.Query{
//	    Namespace:  `root\cimv2`,
//	    Class:      "Win32_PnPEntity",
//	    Filter:     `DeviceID LIKE 'USB\\VID_413C&PID_%'`,
//	    Properties: []string{"Name", "DeviceID", "Status"},
//	})
//	if errors.Is(err, cim.ErrNamespaceNotFound) {
//	    // management agent not installed
//	}
package cim
