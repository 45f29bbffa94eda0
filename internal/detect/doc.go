// Package detect implements the dock detection methods on top of CIM queries.
//
// Each method is a dock.Detector. They are listed here in priority order:
//
//	primary_management_agent        root\dcim\sysman  DCIM_Chassis (docking station package type)
//	secondary_management_namespace  root\dell\sysinv  dell_softwareidentity (ElementName LIKE '%Dock%')
//	usb_enumeration                 root\cimv2        Win32_PnPEntity (USB VID 413C)
//	thunderbolt_enumeration         root\cimv2        Win32_PnPEntity (Dell Thunderbolt devices)
//
// The management agent methods report real serials and firmware versions but
// need Dell Command|Monitor installed. The PnP methods work everywhere and
// fall back to the USB product table for model names.
package detect
