// Package compliance turns a resolved dock inventory into an Intune
// detection verdict.
//
// Exit codes follow the Intune custom detection script contract:
//
//	0  dock present (compliant)
//	1  no dock present, or policy violated (non-compliant)
//	2  the agent could not run (configuration or startup failure)
//
// Optional firmware minimums are checked with hashicorp/go-version. Firmware
// that is missing or unparsable never produces a finding.
package compliance
