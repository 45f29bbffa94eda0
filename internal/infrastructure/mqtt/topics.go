package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every dockscan topic.
//
// Hierarchy: dockscan/{site}/{hostname}/{inventory|status|command}
const TopicPrefix = "dockscan"

// Topics builds the topics for one endpoint.
// Using these helpers ensures consistent topic naming across the fleet.
//
//	topics := mqtt.NewTopics("emea", "LAPTOP-01")
//	topics.Inventory() // "dockscan/emea/LAPTOP-01/inventory"
type Topics struct {
	site string
	host string
}

// NewTopics returns the topic builder for a site and hostname.
// Characters with meaning in MQTT topic filters are replaced.
func NewTopics(site, host string) Topics {
	return Topics{site: sanitizeSegment(site), host: sanitizeSegment(host)}
}

// Base returns the endpoint's topic root.
//
// Example: dockscan/emea/LAPTOP-01
func (t Topics) Base() string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefix, t.site, t.host)
}

// Inventory returns the retained topic carrying the latest report.
//
// Example: dockscan/emea/LAPTOP-01/inventory
func (t Topics) Inventory() string {
	return t.Base() + "/inventory"
}

// Status returns the retained online/offline topic, also used for the LWT.
//
// Example: dockscan/emea/LAPTOP-01/status
func (t Topics) Status() string {
	return t.Base() + "/status"
}

// Command returns the topic the agent listens on in watch mode.
//
// Example: dockscan/emea/LAPTOP-01/command
func (t Topics) Command() string {
	return t.Base() + "/command"
}

// sanitizeSegment makes s safe to use as a single topic level.
func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', ' ', '\t', 0:
			return '_'
		}
		return r
	}, s)
}
