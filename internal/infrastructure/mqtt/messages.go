package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status values published on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// StatusMessage is the retained payload on the status topic.
type StatusMessage struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Command actions accepted on the command topic.
const (
	ActionScan = "scan"
)

// Command is a request sent to an agent running in watch mode.
type Command struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id,omitempty"`
}

// DecodeCommand parses and validates a command payload.
func DecodeCommand(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	cmd.Action = strings.ToLower(strings.TrimSpace(cmd.Action))
	switch cmd.Action {
	case ActionScan:
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
	}
}

func statusPayload(status, clientID, reason string) []byte {
	// Marshal cannot fail for this struct.
	data, _ := json.Marshal(StatusMessage{ //nolint:errchkjson
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return data
}

// buildOnlinePayload creates the JSON payload for online status messages.
func buildOnlinePayload(clientID string) []byte {
	return statusPayload(StatusOnline, clientID, "")
}

// buildOfflinePayload creates the JSON payload for graceful offline status.
func buildOfflinePayload(clientID string) []byte {
	return statusPayload(StatusOffline, clientID, "graceful_shutdown")
}

// buildWillPayload creates the LWT payload the broker sends on a crash.
func buildWillPayload(clientID string) []byte {
	return statusPayload(StatusOffline, clientID, "unexpected_disconnect")
}
