package main

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/nerrad567/dockscan/internal/infrastructure/logging"
	"github.com/nerrad567/dockscan/internal/report"
)

// hostInfo describes the endpoint for reports and topics.
// Missing details are logged and left empty; the name falls back to
// os.Hostname and finally "unknown".
func hostInfo(ctx context.Context, log *logging.Logger) report.Host {
	var h report.Host

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		log.Warn("host info unavailable", "error", err)
	} else {
		h = report.Host{
			Name:            info.Hostname,
			OS:              info.OS,
			Platform:        info.Platform,
			PlatformVersion: info.PlatformVersion,
			KernelArch:      info.KernelArch,
		}
	}

	if h.Name == "" {
		if name, err := os.Hostname(); err == nil {
			h.Name = name
		}
	}
	if h.Name == "" {
		h.Name = "unknown"
	}
	return h
}
