// Package messaging renders message templates and publishes outbound
// messages to channel bridges over MQTT.
//
// The core never talks to WhatsApp, email, or SMS providers directly.
// It publishes a rendered message to meridian/outbound/{channel}/{contact_id}
// and a bridge subscribed to that channel delivers it.
package messaging
