//go:build integration

package mqtt

import (
	"errors"
	"testing"
	"time"
)

// Integration tests against a real broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_PublishInventoryRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "dockscan-int-publisher"

	client, err := Connect(cfg, NewTopics("int", "publisher"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	received := make(chan []byte, 1)
	err = client.Subscribe(client.Topics().Inventory(), 1, func(_ string, payload []byte) error {
		select {
		case received <- payload:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.PublishInventory(map[string]int{"dock_count": 2}); err != nil {
		t.Fatalf("PublishInventory() error = %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != `{"dock_count":2}` {
			t.Errorf("payload = %s", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for retained inventory")
	}
}

func TestIntegration_ConnectInvalidBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg, NewTopics("int", "nobroker"))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
