// Package mqtt publishes dock inventories to an MQTT broker.
//
// This package manages:
//   - Connection to the fleet broker with auto-reconnect
//   - Retained inventory and status messages per endpoint
//   - Last Will and Testament (LWT) for offline detection
//   - The command topic used to trigger a rescan in watch mode
//
// # Topics
//
//	dockscan/{site}/{hostname}/inventory   retained report JSON
//	dockscan/{site}/{hostname}/status      retained online/offline, LWT
//	dockscan/{site}/{hostname}/command     {"action":"scan"}
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) for brokers outside the corporate network
//   - Supply credentials via DOCKSCAN_MQTT_USERNAME and DOCKSCAN_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.NewTopics(cfg.Site.ID, hostname))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishInventory(doc)
package mqtt
