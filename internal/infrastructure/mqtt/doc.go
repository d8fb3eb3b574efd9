// Package mqtt wraps the Eclipse Paho client for Meridian Core.
//
// MQTT is Meridian's event fabric: CRM services publish domain events
// (contact created, payment overdue, ...) that the automation engine
// consumes, and the engine publishes outbound messages for the channel
// bridges (email relay, WhatsApp gateway) to deliver.
//
// The client provides connection management, publish/subscribe with panic
// recovery, automatic reconnection with subscription restoration, and a
// Last Will and Testament so peers can detect an unclean shutdown.
//
// Thread Safety: all methods are safe for concurrent use.
package mqtt
