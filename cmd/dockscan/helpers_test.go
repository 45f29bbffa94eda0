package main

import (
	"bytes"
	"strings"
	"sync"

	"github.com/nerrad567/dockscan/internal/infrastructure/mqtt"
)

// lockedBuffer is a bytes.Buffer safe for one writer and one reader.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) count(substr string) int {
	return strings.Count(b.String(), substr)
}

func mqttScanCommand() mqtt.Command {
	return mqtt.Command{Action: mqtt.ActionScan, RequestID: "test"}
}
